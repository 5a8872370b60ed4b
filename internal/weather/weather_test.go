package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ambientdeck/internal/display"
)

type captureSink struct {
	mu     sync.Mutex
	values map[display.Region]string
}

func newCaptureSink() *captureSink {
	return &captureSink{values: make(map[display.Region]string)}
}

func (s *captureSink) Render(region display.Region, text string) {
	s.mu.Lock()
	s.values[region] = text
	s.mu.Unlock()
}

func (s *captureSink) get(region display.Region) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[region]
}

const forecastBody = `{
	"current": {"temperature_2m": 18.6, "weather_code": 61},
	"daily": {
		"sunrise": ["2026-08-29T06:45"],
		"sunset": ["2026-08-29T20:31"]
	}
}`

func TestRefreshRendersForecast(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"latitude":  q.Get("latitude"),
			"longitude": q.Get("longitude"),
			"current":   q.Get("current"),
			"daily":     q.Get("daily"),
			"timezone":  q.Get("timezone"),
		}
		w.Write([]byte(forecastBody))
	}))
	defer srv.Close()

	sink := newCaptureSink()
	p := NewPanel(PanelConfig{
		ForecastURL: srv.URL,
		HTTPClient:  srv.Client(),
		Latitude:    51.9851,
		Longitude:   5.8987,
		Timezone:    "Europe/Amsterdam",
		Sink:        sink,
	})
	now := time.Date(2026, 8, 29, 14, 7, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	p.Refresh(context.Background())

	if gotQuery["latitude"] != "51.9851" || gotQuery["longitude"] != "5.8987" {
		t.Errorf("unexpected coordinates in query: %v", gotQuery)
	}
	if gotQuery["current"] != "temperature_2m,weather_code" || gotQuery["daily"] != "sunrise,sunset" {
		t.Errorf("unexpected field selection: %v", gotQuery)
	}
	if gotQuery["timezone"] != "Europe/Amsterdam" {
		t.Errorf("unexpected timezone %q", gotQuery["timezone"])
	}

	if got := sink.get(display.RegionWeatherTemp); got != "19°" {
		t.Errorf("expected rounded temperature, got %q", got)
	}
	if got := sink.get(display.RegionWeatherDesc); got != "Light rain" {
		t.Errorf("unexpected description %q", got)
	}
	if got := sink.get(display.RegionSunrise); got != "06:45" {
		t.Errorf("unexpected sunrise %q", got)
	}
	if got := sink.get(display.RegionSunset); got != "20:31" {
		t.Errorf("unexpected sunset %q", got)
	}
	if got := sink.get(display.RegionUpdated); got != "Updated 14:07" {
		t.Errorf("unexpected updated label %q", got)
	}
}

func TestRefreshFailureFlagsDescriptionOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := newCaptureSink()
	p := NewPanel(PanelConfig{ForecastURL: srv.URL, HTTPClient: srv.Client(), Sink: sink})

	p.Refresh(context.Background())

	if got := sink.get(display.RegionWeatherDesc); got != "Weather unavailable" {
		t.Errorf("expected the unavailable flag, got %q", got)
	}
	if got := sink.get(display.RegionWeatherTemp); got != "" {
		t.Errorf("expected the temperature untouched, got %q", got)
	}
}

func TestCodeText(t *testing.T) {
	if got := CodeText(0); got != "Clear" {
		t.Errorf("unexpected text %q", got)
	}
	if got := CodeText(99); got != "Weather (99)" {
		t.Errorf("unexpected fallback %q", got)
	}
}
