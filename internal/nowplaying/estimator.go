package nowplaying

import (
	"sync"
	"time"

	"ambientdeck/internal/display"
	"ambientdeck/internal/lyrics"
	"ambientdeck/internal/spotify"
)

// Estimator extrapolates the playback position between polls and keeps the
// highlighted lyric line in step with it. Ticks are cheap; a render is
// emitted only when the active line actually changes.
type Estimator struct {
	mu     sync.Mutex
	sink   display.Sink
	now    func() time.Time
	snap   *spotify.Snapshot
	lines  []lyrics.Line
	active int
}

func NewEstimator(sink display.Sink) *Estimator {
	if sink == nil {
		sink = display.Discard
	}
	return &Estimator{
		sink:   sink,
		now:    time.Now,
		active: -1,
	}
}

// SetSnapshot replaces the playback sample the estimator extrapolates from.
func (e *Estimator) SetSnapshot(snap *spotify.Snapshot) {
	e.mu.Lock()
	e.snap = snap
	e.mu.Unlock()
}

// SetLines replaces the synced line set. The active index is reset so the
// next tick re-selects and re-renders.
func (e *Estimator) SetLines(lines []lyrics.Line) {
	e.mu.Lock()
	e.lines = lines
	e.active = -1
	e.mu.Unlock()
}

// Clear drops the snapshot and lines and blanks the lyric region.
func (e *Estimator) Clear() {
	e.mu.Lock()
	hadActive := e.active >= 0
	e.snap = nil
	e.lines = nil
	e.active = -1
	e.mu.Unlock()

	if hadActive {
		e.sink.Render(display.RegionLyric, "")
	}
}

// Tick recomputes the estimated position and re-renders the lyric region if
// the active line moved. Safe to call from both the poll cycle and the fast
// sync ticker.
func (e *Estimator) Tick() {
	e.mu.Lock()
	if e.snap == nil || len(e.lines) == 0 {
		e.mu.Unlock()
		return
	}

	estimate := e.snap.ProgressMs
	if e.snap.Playing {
		// SampledAt carries a monotonic reading, so wall-clock jumps do
		// not skew the estimate
		estimate += e.now().Sub(e.snap.SampledAt).Milliseconds()
	}

	idx := activeLineIndex(e.lines, estimate)
	if idx == e.active {
		e.mu.Unlock()
		return
	}
	e.active = idx

	text := ""
	if idx >= 0 {
		text = e.lines[idx].Text
	}
	e.mu.Unlock()

	e.sink.Render(display.RegionLyric, text)
}

// activeLineIndex returns the last line whose offset is at or before the
// estimate, or -1 before the first line. A full scan handles seeks in either
// direction.
func activeLineIndex(lines []lyrics.Line, estimateMs int64) int {
	idx := -1
	for i, line := range lines {
		if line.OffsetMs > estimateMs {
			break
		}
		idx = i
	}
	return idx
}
