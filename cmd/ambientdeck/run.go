package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ambientdeck/internal/auth"
	"ambientdeck/internal/config"
	"ambientdeck/internal/credstore"
	"ambientdeck/internal/lyrics"
	"ambientdeck/internal/nowplaying"
	"ambientdeck/internal/quote"
	"ambientdeck/internal/schedule"
	"ambientdeck/internal/spotify"
	"ambientdeck/internal/ui"
	"ambientdeck/internal/weather"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "start the interactive dashboard",
	Long:  `starts the full-screen dashboard with clock, weather, quote and now-playing panels.`,
	RunE:  runDashboard,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// loadConfig reads the environment configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if clientID != "" {
		cfg.SpotifyClientID = clientID
	}
	if redirectURI != "" {
		cfg.RedirectURI = redirectURI
	}
	if lrclibURL != "" {
		cfg.LrclibSearchURL = lrclibURL
	}
	if quoteSource != "" {
		cfg.QuoteSource = quoteSource
	}
	if cmd.Flags().Changed("log-file") {
		cfg.LogFile = logFile
	}

	return cfg, nil
}

// setupLogging routes logs to the configured file. Without one, logs are
// discarded so they cannot corrupt the full-screen UI.
func setupLogging(cfg *config.Config) {
	if cfg.LogFile == "" {
		log.SetOutput(io.Discard)
		return
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open log file: %v\n", err)
		log.SetOutput(io.Discard)
		return
	}
	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		<-sigChan
		cancel()
	}()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cfg)

	store, err := credstore.Open(cfg.CredentialsPath)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	defer store.Close()

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout()}

	manager, err := auth.NewManager(auth.ManagerConfig{
		Store:        store,
		ClientID:     cfg.SpotifyClientID,
		AuthorizeURL: cfg.AuthorizeURL,
		TokenURL:     cfg.TokenURL,
		RedirectURI:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
		HTTPClient:   httpClient,
	})
	if err != nil {
		return fmt.Errorf("failed to create auth manager: %w", err)
	}

	resolver, err := lyrics.NewResolver(lyrics.ResolverConfig{
		SearchURL:     cfg.LrclibSearchURL,
		HTTPClient:    httpClient,
		MaxPlainChars: cfg.LyricMaxChars,
	})
	if err != nil {
		return fmt.Errorf("failed to create lyric resolver: %w", err)
	}

	model := ui.NewModel(ui.ModelConfig{
		LocationLabel: cfg.LocationLabel,
		OnLogin: func(ctx context.Context) error {
			return loginFlow(ctx, manager, true)
		},
	})

	program := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)
	sink := ui.NewProgramSink(program)

	poller := nowplaying.NewPoller(nowplaying.PollerConfig{
		Tokens:   manager,
		Player:   spotify.NewClient(cfg.PlayerURL, httpClient),
		Resolver: resolver,
		Sink:     sink,
	})

	weatherPanel := weather.NewPanel(weather.PanelConfig{
		ForecastURL: cfg.WeatherURL,
		HTTPClient:  httpClient,
		Latitude:    cfg.Latitude,
		Longitude:   cfg.Longitude,
		Timezone:    cfg.Timezone,
		Sink:        sink,
	})

	quotePanel := quote.NewPanel(cfg.QuoteSource, httpClient, sink)

	sched := schedule.New(
		schedule.Task{
			Name:      "playback-poll",
			Every:     cfg.PollEvery(),
			Immediate: true,
			Run:       poller.Cycle,
		},
		schedule.Task{
			Name:  "lyric-sync",
			Every: cfg.SyncTickEvery(),
			Run:   func(context.Context) { poller.SyncTick() },
		},
		schedule.Task{
			Name:  "lyric-scroll",
			Every: cfg.ScrollTickEvery(),
			Run:   func(context.Context) { poller.ScrollTick() },
		},
		schedule.Task{
			Name:      "weather-refresh",
			Every:     cfg.WeatherEvery(),
			Immediate: true,
			Run:       weatherPanel.Refresh,
		},
		schedule.Task{
			Name:      "quote-refresh",
			Every:     cfg.QuoteEvery(),
			Immediate: true,
			Run:       quotePanel.Refresh,
		},
	)

	go sched.Run(ctx)

	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("error running bubble tea: %w", err)
	}

	cancel()
	poller.Wait()

	return nil
}

// loginFlow runs the full PKCE exchange: authorization URL, loopback
// callback, code exchange. With openBrowser set it also tries to hand the
// URL to the desktop browser, which is what the in-UI login key wants.
func loginFlow(ctx context.Context, manager *auth.Manager, openBrowser bool) error {
	authURL, err := manager.BeginLogin()
	if err != nil {
		return err
	}

	log.Infof("[Auth] authorize at: %s", authURL)
	if openBrowser {
		if err := browse(authURL); err != nil {
			log.Warnf("[Auth] could not open browser: %v", err)
		}
	} else {
		fmt.Println("open this url in your browser to connect spotify:")
		fmt.Println()
		fmt.Println("  " + authURL)
		fmt.Println()
	}

	code, err := manager.WaitForCode(ctx)
	if err != nil {
		return err
	}

	return manager.CompleteLogin(ctx, code)
}

func browse(target string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	default:
		return exec.Command("xdg-open", target).Start()
	}
}
