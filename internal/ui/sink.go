package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"ambientdeck/internal/display"
)

// ProgramSink forwards region updates into a running bubbletea program.
// Program.Send is safe from any goroutine, so producers can render without
// knowing about the UI loop.
type ProgramSink struct {
	program *tea.Program
}

func NewProgramSink(program *tea.Program) *ProgramSink {
	return &ProgramSink{program: program}
}

func (s *ProgramSink) Render(region display.Region, text string) {
	s.program.Send(RegionMsg{Region: region, Text: text})
}
