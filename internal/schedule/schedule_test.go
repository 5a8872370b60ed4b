package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunFiresTasksAndStopsOnCancel(t *testing.T) {
	var ticks atomic.Int64
	var immediate atomic.Int64

	s := New(
		Task{
			Name:  "fast",
			Every: 5 * time.Millisecond,
			Run:   func(ctx context.Context) { ticks.Add(1) },
		},
		Task{
			Name:      "startup",
			Every:     time.Hour,
			Immediate: true,
			Run:       func(ctx context.Context) { immediate.Add(1) },
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for ticks.Load() < 3 {
		select {
		case <-deadline:
			t.Fatal("fast task never reached 3 ticks")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}

	if immediate.Load() != 1 {
		t.Errorf("expected the immediate task to fire once at startup, got %d", immediate.Load())
	}
}

func TestRunSkipsMisconfiguredTasks(t *testing.T) {
	s := New(
		Task{Name: "no interval", Run: func(ctx context.Context) {}},
		Task{Name: "no func", Every: time.Millisecond},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler with only misconfigured tasks should return immediately")
	}
}
