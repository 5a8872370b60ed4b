package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ambientdeck/internal/display"
)

func TestUpdateStoresRegions(t *testing.T) {
	m := NewModel(ModelConfig{})

	next, _ := m.Update(RegionMsg{Region: display.RegionTrack, Text: "Song"})
	m = next.(Model)

	if got := m.Region(display.RegionTrack); got != "Song" {
		t.Errorf("expected the region stored, got %q", got)
	}
}

func TestUpdateArtRegionTriggersFetch(t *testing.T) {
	m := NewModel(ModelConfig{})

	next, cmd := m.Update(RegionMsg{Region: display.RegionArt, Text: "https://img.example/a.jpg"})
	m = next.(Model)
	if cmd == nil {
		t.Error("expected a fetch command for a new art url")
	}

	// the same url again should not refetch
	_, cmd = m.Update(RegionMsg{Region: display.RegionArt, Text: "https://img.example/a.jpg"})
	if cmd != nil {
		t.Error("expected no refetch for an unchanged art url")
	}

	// clearing the art resets the palette without a fetch
	next, cmd = m.Update(RegionMsg{Region: display.RegionArt, Text: ""})
	m = next.(Model)
	if cmd != nil {
		t.Error("expected no fetch for a cleared art url")
	}
	if m.artImage != nil {
		t.Error("expected the art image dropped")
	}
}

func TestUpdateIgnoresStaleArtwork(t *testing.T) {
	m := NewModel(ModelConfig{})

	next, _ := m.Update(RegionMsg{Region: display.RegionArt, Text: "https://img.example/b.jpg"})
	m = next.(Model)

	next, _ = m.Update(ArtworkMsg{URL: "https://img.example/a.jpg", Palette: nil})
	m = next.(Model)

	if m.artURL != "https://img.example/b.jpg" {
		t.Errorf("expected the current url kept, got %q", m.artURL)
	}
}

func TestQuitKeys(t *testing.T) {
	for _, key := range []string{"q", "esc", "ctrl+c"} {
		m := NewModel(ModelConfig{})
		next, cmd := m.Update(keyMsg(key))
		m = next.(Model)

		if !m.IsQuitting() {
			t.Errorf("key %q should quit", key)
		}
		if cmd == nil {
			t.Errorf("key %q should return the quit command", key)
		}
	}
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func TestViewShowsStatusWhenNotPlaying(t *testing.T) {
	m := NewModel(ModelConfig{LocationLabel: "Arnhem"})
	m.clock = time.Date(2026, 8, 29, 14, 7, 0, 0, time.UTC)

	next, _ := m.Update(RegionMsg{Region: display.RegionStatus, Text: "Nothing playing"})
	m = next.(Model)

	view := m.View()
	if !strings.Contains(view, "Nothing playing") {
		t.Error("expected the status line in the view")
	}
	if !strings.Contains(view, "Arnhem") {
		t.Error("expected the location label in the view")
	}
}

func TestViewShowsTrackAndLyric(t *testing.T) {
	m := NewModel(ModelConfig{})

	for region, text := range map[display.Region]string{
		display.RegionTrack:  "Song",
		display.RegionArtist: "Artist",
		display.RegionLyric:  "the active line",
	} {
		next, _ := m.Update(RegionMsg{Region: region, Text: text})
		m = next.(Model)
	}

	view := m.View()
	for _, want := range []string{"Song", "Artist", "the active line"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in the view", want)
		}
	}
}
