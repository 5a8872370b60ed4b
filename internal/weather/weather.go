package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"ambientdeck/internal/display"
)

// wmoText maps WMO weather interpretation codes to short labels.
var wmoText = map[int]string{
	0:  "Clear",
	1:  "Mostly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Rime fog",
	51: "Light drizzle",
	53: "Drizzle",
	55: "Heavy drizzle",
	61: "Light rain",
	63: "Rain",
	65: "Heavy rain",
	71: "Light snow",
	73: "Snow",
	75: "Heavy snow",
	80: "Rain showers",
	81: "Heavy showers",
	82: "Violent showers",
	95: "Thunderstorm",
}

// CodeText translates a WMO code into display text. Unknown codes keep the
// numeric value visible.
func CodeText(code int) string {
	if text, ok := wmoText[code]; ok {
		return text
	}
	return fmt.Sprintf("Weather (%d)", code)
}

// Panel periodically pulls current conditions and the day's sun times from
// an Open-Meteo compatible endpoint and renders them.
type Panel struct {
	forecastURL string
	httpClient  *http.Client
	latitude    float64
	longitude   float64
	timezone    string
	sink        display.Sink
	now         func() time.Time
}

type PanelConfig struct {
	ForecastURL string
	HTTPClient  *http.Client
	Latitude    float64
	Longitude   float64
	Timezone    string
	Sink        display.Sink
}

func NewPanel(cfg PanelConfig) *Panel {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	sink := cfg.Sink
	if sink == nil {
		sink = display.Discard
	}
	return &Panel{
		forecastURL: cfg.ForecastURL,
		httpClient:  httpClient,
		latitude:    cfg.Latitude,
		longitude:   cfg.Longitude,
		timezone:    cfg.Timezone,
		sink:        sink,
		now:         time.Now,
	}
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
	Daily struct {
		Sunrise []string `json:"sunrise"`
		Sunset  []string `json:"sunset"`
	} `json:"daily"`
}

// Refresh fetches and renders. Failures leave the previous values on screen
// and flag the description line.
func (p *Panel) Refresh(ctx context.Context) {
	data, err := p.fetch(ctx)
	if err != nil {
		log.Warnf("[Weather] refresh failed: %v", err)
		p.sink.Render(display.RegionWeatherDesc, "Weather unavailable")
		return
	}

	temp := int(math.Round(data.Current.Temperature))
	p.sink.Render(display.RegionWeatherTemp, fmt.Sprintf("%d°", temp))
	p.sink.Render(display.RegionWeatherDesc, CodeText(data.Current.WeatherCode))
	p.sink.Render(display.RegionSunrise, firstClockTime(data.Daily.Sunrise))
	p.sink.Render(display.RegionSunset, firstClockTime(data.Daily.Sunset))
	p.sink.Render(display.RegionUpdated, "Updated "+p.now().Format("15:04"))
}

func (p *Panel) fetch(ctx context.Context) (*forecastResponse, error) {
	parsedURL, err := url.Parse(p.forecastURL)
	if err != nil {
		return nil, fmt.Errorf("invalid forecast url %q: %w", p.forecastURL, err)
	}

	query := parsedURL.Query()
	query.Set("latitude", strconv.FormatFloat(p.latitude, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(p.longitude, 'f', -1, 64))
	query.Set("current", "temperature_2m,weather_code")
	query.Set("daily", "sunrise,sunset")
	query.Set("timezone", p.timezone)
	parsedURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsedURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build forecast request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast returned status %d", resp.StatusCode)
	}

	var data forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode forecast: %w", err)
	}
	return &data, nil
}

// firstClockTime formats the first entry of an ISO local-time list as HH:MM.
// Open-Meteo returns times without a zone when a timezone parameter is sent.
func firstClockTime(values []string) string {
	if len(values) == 0 {
		return "--:--"
	}
	t, err := time.Parse("2006-01-02T15:04", values[0])
	if err != nil {
		return "--:--"
	}
	return t.Format("15:04")
}
