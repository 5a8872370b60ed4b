package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"ambientdeck/internal/artwork"
	"ambientdeck/internal/display"
)

type loginDoneMsg struct {
	err error
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case RegionMsg:
		return m.handleRegion(msg)

	case ArtworkMsg:
		return m.handleArtwork(msg)

	case loginDoneMsg:
		m.loginBusy = false
		m.loginErr = msg.err
		if msg.err != nil {
			log.Warnf("[UI] login failed: %v", msg.err)
		}
		return m, nil

	case ClockTickMsg:
		m.clock = time.Time(msg)
		return m, clockTickCmd()
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "tab", "i":
		m.hidePanel = !m.hidePanel
		return m, nil

	case "l":
		if m.onLogin == nil || m.loginBusy {
			return m, nil
		}
		m.loginBusy = true
		m.loginErr = nil
		return m, loginCmd(m.onLogin)
	}

	return m, nil
}

func loginCmd(onLogin func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()
		return loginDoneMsg{err: onLogin(ctx)}
	}
}

func (m Model) handleRegion(msg RegionMsg) (tea.Model, tea.Cmd) {
	m.regions[msg.Region] = msg.Text

	if msg.Region == display.RegionArt && msg.Text != m.artURL {
		m.artURL = msg.Text
		if msg.Text == "" {
			m.artImage = nil
			m.palette = artwork.DefaultPalette()
			return m, nil
		}
		return m, fetchArtworkCmd(msg.Text)
	}

	return m, nil
}

func (m Model) handleArtwork(msg ArtworkMsg) (tea.Model, tea.Cmd) {
	// ignore results for art that has been replaced since the fetch started
	if msg.URL != m.artURL {
		return m, nil
	}

	if msg.Err != nil || msg.Image == nil {
		m.artImage = nil
		m.palette = artwork.DefaultPalette()
		return m, nil
	}

	m.artImage = msg.Image
	if msg.Palette != nil {
		m.palette = msg.Palette
	}
	return m, nil
}

func fetchArtworkCmd(artURL string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		img, err := artwork.Fetch(ctx, artURL)
		if err != nil {
			return ArtworkMsg{URL: artURL, Err: err}
		}
		return ArtworkMsg{
			URL:     artURL,
			Image:   img,
			Palette: artwork.ExtractPalette(img),
		}
	}
}
