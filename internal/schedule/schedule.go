package schedule

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Task is a named periodic job. Run receives the scheduler's context and
// must return promptly; long work belongs in its own goroutine.
type Task struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context)
	// Immediate fires the task once at startup before the first interval.
	Immediate bool
}

// Scheduler drives a set of periodic tasks, one goroutine per cadence.
type Scheduler struct {
	tasks    []Task
	newTimer func(d time.Duration) *time.Ticker
}

func New(tasks ...Task) *Scheduler {
	return &Scheduler{
		tasks:    tasks,
		newTimer: time.NewTicker,
	}
}

// Run blocks until the context is cancelled and every task goroutine has
// stopped.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for _, task := range s.tasks {
		if task.Every <= 0 || task.Run == nil {
			log.Warnf("[Schedule] skipping misconfigured task %q", task.Name)
			continue
		}

		wg.Add(1)
		go func(task Task) {
			defer wg.Done()

			if task.Immediate {
				task.Run(ctx)
			}

			ticker := s.newTimer(task.Every)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					task.Run(ctx)
				}
			}
		}(task)
	}

	wg.Wait()
}
