package nowplaying

import (
	"strings"
	"sync"
)

// ScrollState pans a fixed-height window over plain lyric text, reversing
// direction at either end so the whole block stays readable on a display
// without input.
type ScrollState struct {
	mu      sync.Mutex
	lines   []string
	window  int
	offset  int
	forward bool
}

func NewScrollState(window int) *ScrollState {
	if window <= 0 {
		window = 8
	}
	return &ScrollState{window: window, forward: true}
}

// SetText loads a new block and rewinds to the top.
func (s *ScrollState) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	for _, line := range strings.Split(text, "\n") {
		s.lines = append(s.lines, strings.TrimRight(line, " \t"))
	}
	s.offset = 0
	s.forward = true
}

func (s *ScrollState) Clear() {
	s.mu.Lock()
	s.lines = nil
	s.offset = 0
	s.forward = true
	s.mu.Unlock()
}

func (s *ScrollState) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

// Tick returns the current window and advances one line for the next call.
// Blocks shorter than the window never move.
func (s *ScrollState) Tick() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.lines) == 0 {
		return ""
	}

	end := s.offset + s.window
	if end > len(s.lines) {
		end = len(s.lines)
	}
	view := strings.Join(s.lines[s.offset:end], "\n")

	maxOffset := len(s.lines) - s.window
	if maxOffset <= 0 {
		return view
	}

	if s.forward {
		s.offset++
		if s.offset >= maxOffset {
			s.offset = maxOffset
			s.forward = false
		}
	} else {
		s.offset--
		if s.offset <= 0 {
			s.offset = 0
			s.forward = true
		}
	}

	return view
}
