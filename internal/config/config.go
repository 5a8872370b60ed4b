package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

const appDirName = "ambientdeck"

type Config struct {
	// spotify / auth
	SpotifyClientID string `envconfig:"SPOTIFY_CLIENT_ID" default:""`
	RedirectURI     string `envconfig:"SPOTIFY_REDIRECT_URI" default:"http://127.0.0.1:8888/callback"`
	Scopes          string `envconfig:"SPOTIFY_SCOPES" default:"user-read-currently-playing user-read-playback-state"`
	AuthorizeURL    string `envconfig:"SPOTIFY_AUTHORIZE_URL" default:"https://accounts.spotify.com/authorize"`
	TokenURL        string `envconfig:"SPOTIFY_TOKEN_URL" default:"https://accounts.spotify.com/api/token"`
	PlayerURL       string `envconfig:"SPOTIFY_PLAYER_URL" default:"https://api.spotify.com/v1/me/player"`

	// lyrics
	LrclibSearchURL string `envconfig:"LRCLIB_SEARCH_URL" default:"https://lrclib.net/api/search"`
	LyricMaxChars   int    `envconfig:"LYRIC_MAX_CHARS" default:"2500"`

	// weather panel
	WeatherURL    string  `envconfig:"WEATHER_URL" default:"https://api.open-meteo.com/v1/forecast"`
	Latitude      float64 `envconfig:"WEATHER_LATITUDE" default:"51.9851"`
	Longitude     float64 `envconfig:"WEATHER_LONGITUDE" default:"5.8987"`
	LocationLabel string  `envconfig:"WEATHER_LOCATION_LABEL" default:"Arnhem"`
	Timezone      string  `envconfig:"WEATHER_TIMEZONE" default:"Europe/Amsterdam"`

	// quote panel, a file path or an http(s) url
	QuoteSource string `envconfig:"QUOTE_SOURCE" default:"data/quote.json"`

	// schedule intervals
	PollIntervalSeconds   int `envconfig:"POLL_INTERVAL_SECONDS" default:"1"`
	SyncTickMillis        int `envconfig:"SYNC_TICK_MILLIS" default:"200"`
	ScrollTickMillis      int `envconfig:"SCROLL_TICK_MILLIS" default:"150"`
	WeatherRefreshMinutes int `envconfig:"WEATHER_REFRESH_MINUTES" default:"10"`
	QuoteRefreshMinutes   int `envconfig:"QUOTE_REFRESH_MINUTES" default:"60"`

	// storage and logging
	CredentialsPath string `envconfig:"CREDENTIALS_DB" default:""`
	LogFile         string `envconfig:"LOG_FILE" default:""`

	HTTPTimeoutSeconds int `envconfig:"HTTP_TIMEOUT_SECONDS" default:"10"`
}

// Load reads configuration from a .env file (when present) and the
// environment. Flag overrides are applied by the caller afterwards.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("[Config] could not read .env file: %v", err)
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}

	if cfg.CredentialsPath == "" {
		cfg.CredentialsPath = defaultCredentialsPath()
	}

	return cfg, nil
}

func (c *Config) PollEvery() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *Config) SyncTickEvery() time.Duration {
	return time.Duration(c.SyncTickMillis) * time.Millisecond
}

func (c *Config) ScrollTickEvery() time.Duration {
	return time.Duration(c.ScrollTickMillis) * time.Millisecond
}

func (c *Config) WeatherEvery() time.Duration {
	return time.Duration(c.WeatherRefreshMinutes) * time.Minute
}

func (c *Config) QuoteEvery() time.Duration {
	return time.Duration(c.QuoteRefreshMinutes) * time.Minute
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func defaultCredentialsPath() string {
	// xdg cache home takes priority
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", appDirName, "credentials.db")
		}
		base = filepath.Join(homeDir, ".cache")
	}
	return filepath.Join(base, appDirName, "credentials.db")
}
