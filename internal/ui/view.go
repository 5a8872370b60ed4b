package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"

	"ambientdeck/internal/artwork"
	"ambientdeck/internal/display"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.width
	if width == 0 {
		width = 100
	}
	height := m.height
	if height == 0 {
		height = 30
	}

	palette := m.palette
	if palette == nil {
		palette = artwork.DefaultPalette()
	}

	var sections []string
	sections = append(sections, m.renderTopRow(palette, width))
	sections = append(sections, m.renderQuote(palette, width))
	if !m.hidePanel {
		sections = append(sections, m.renderNowPlaying(palette, width))
	}

	out := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(out, "\n")
	if len(lines) > height {
		lines = lines[:height]
		out = strings.Join(lines, "\n")
	}

	return out
}

func (m Model) renderTopRow(palette *artwork.Palette, width int) string {
	clockBlock := figure.NewFigure(m.clock.Format("15:04"), "", true).String()
	clockStyled := lipgloss.NewStyle().
		Foreground(lipgloss.Color(palette.Primary)).
		Render(strings.TrimRight(clockBlock, "\n"))

	dateLine := lipgloss.NewStyle().
		Foreground(lipgloss.Color(palette.Secondary)).
		Render(m.clock.Format("Monday, January 2, 2006"))

	left := lipgloss.JoinVertical(lipgloss.Left, clockStyled, dateLine)

	weather := m.renderWeather(palette)

	gap := width - lipgloss.Width(left) - lipgloss.Width(weather) - 4
	if gap < 2 {
		gap = 2
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, left, strings.Repeat(" ", gap), weather)
}

func (m Model) renderWeather(palette *artwork.Palette) string {
	temp := m.regions[display.RegionWeatherTemp]
	if temp == "" {
		temp = "--°"
	}
	desc := m.regions[display.RegionWeatherDesc]
	if desc == "" {
		desc = "—"
	}
	sunrise := valueOr(m.regions[display.RegionSunrise], "--:--")
	sunset := valueOr(m.regions[display.RegionSunset], "--:--")

	tempStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(palette.Primary)).
		Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))

	lines := []string{
		tempStyle.Render(temp) + "  " + desc,
		dimStyle.Render(m.locationLabel),
		dimStyle.Render("↑ " + sunrise + "   ↓ " + sunset),
	}
	if updated := m.regions[display.RegionUpdated]; updated != "" {
		lines = append(lines, dimStyle.Render(updated))
	}

	return lipgloss.JoinVertical(lipgloss.Right, lines...)
}

func (m Model) renderQuote(palette *artwork.Palette, width int) string {
	text := m.regions[display.RegionQuoteText]
	if text == "" {
		return ""
	}

	quoteStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(palette.Secondary)).
		Italic(true).
		Width(width - 4)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))

	lines := []string{"", quoteStyle.Render("“" + text + "”")}
	if author := m.regions[display.RegionQuoteAuthor]; author != "" {
		lines = append(lines, dimStyle.Render(author))
	}
	if meta := m.regions[display.RegionQuoteMeta]; meta != "" {
		lines = append(lines, dimStyle.Render(meta))
	}
	lines = append(lines, "")

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderNowPlaying(palette *artwork.Palette, width int) string {
	if m.loginBusy {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color(palette.Dim)).
			Italic(true).
			Render("♪ Waiting for spotify authorization in the browser...")
	}
	if m.loginErr != nil {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Render("♪ Login failed — press l to retry")
	}

	if status := m.regions[display.RegionStatus]; status != "" {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color(palette.Dim)).
			Italic(true).
			Render("♪ " + status)
	}

	track := m.regions[display.RegionTrack]
	if track == "" {
		return ""
	}

	artWidth, artHeight := 12, 6
	if width < 80 {
		artWidth, artHeight = 8, 4
	}

	artLines := artwork.RenderHalfBlockArt(m.artImage, artWidth, artHeight)

	info := m.renderTrackInfo(palette)
	infoLines := strings.Split(info, "\n")

	rows := len(infoLines)
	if len(artLines) > rows {
		rows = len(artLines)
	}

	var out []string
	for i := 0; i < rows; i++ {
		var row strings.Builder
		if len(artLines) > 0 {
			if i < len(artLines) {
				row.WriteString(artLines[i])
			} else {
				row.WriteString(strings.Repeat(" ", artWidth))
			}
			row.WriteString("  ")
		}
		if i < len(infoLines) {
			row.WriteString(infoLines[i])
		}
		out = append(out, row.String())
	}

	if block := m.regions[display.RegionLyricBlock]; block != "" {
		blockStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(palette.Secondary)).
			Width(width - 4)
		out = append(out, "", blockStyle.Render(block))
	}

	return lipgloss.JoinVertical(lipgloss.Left, out...)
}

func (m Model) renderTrackInfo(palette *artwork.Palette) string {
	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(palette.Primary)).
		Bold(true)
	artistStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Secondary))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))
	lyricStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(palette.Accent)).
		Bold(true)

	lines := []string{
		titleStyle.Render(m.regions[display.RegionTrack]),
		artistStyle.Render(m.regions[display.RegionArtist]),
	}
	if album := m.regions[display.RegionAlbum]; album != "" {
		lines = append(lines, dimStyle.Render(album))
	}
	if lyric := m.regions[display.RegionLyric]; lyric != "" {
		lines = append(lines, "", lyricStyle.Render("♪ "+lyric))
	}

	return strings.Join(lines, "\n")
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
