package ui

import (
	"context"
	"image"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ambientdeck/internal/artwork"
	"ambientdeck/internal/display"
)

// RegionMsg carries one region update from any producer into the model.
type RegionMsg struct {
	Region display.Region
	Text   string
}

// ArtworkMsg delivers a fetched album image and its extracted palette.
type ArtworkMsg struct {
	URL     string
	Image   image.Image
	Palette *artwork.Palette
	Err     error
}

type ClockTickMsg time.Time

// Model renders the dashboard: clock, weather, daily quote, and the
// now-playing section. All dynamic content arrives as RegionMsg values; the
// model owns only presentation state.
type Model struct {
	regions map[display.Region]string
	palette *artwork.Palette

	artURL   string
	artImage image.Image

	locationLabel string
	onLogin       func(ctx context.Context) error

	clock     time.Time
	width     int
	height    int
	hidePanel bool
	quitting  bool
	loginBusy bool
	loginErr  error
}

type ModelConfig struct {
	LocationLabel string
	// OnLogin runs the interactive login flow; invoked from a command
	// goroutine when the login key is pressed.
	OnLogin func(ctx context.Context) error
}

func NewModel(cfg ModelConfig) Model {
	return Model{
		regions:       make(map[display.Region]string),
		palette:       artwork.DefaultPalette(),
		locationLabel: cfg.LocationLabel,
		onLogin:       cfg.OnLogin,
		clock:         time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return clockTickCmd()
}

func clockTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return ClockTickMsg(t)
	})
}

func (m Model) Region(region display.Region) string {
	return m.regions[region]
}

func (m Model) Palette() *artwork.Palette { return m.palette }
func (m Model) IsQuitting() bool          { return m.quitting }
