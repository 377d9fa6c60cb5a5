package services

import (
	"context"
	"sync"
	"time"

	"devlense/internal/observability"
	serviceinterfaces "devlense/internal/services/interfaces"
)

// Janitor runs a sweep function on a fixed interval between Startup and Shutdown.
type Janitor struct {
	name     string
	interval time.Duration
	sweep    func() int
	logger   *observability.Logger

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

var (
	_ serviceinterfaces.Lifecycle = (*Janitor)(nil)
	_ serviceinterfaces.Lifecycle = (*RedisAuthEventRelay)(nil)
)

// NewJanitor creates a stopped janitor
func NewJanitor(name string, interval time.Duration, sweep func() int, logger *observability.Logger) *Janitor {
	return &Janitor{name: name, interval: interval, sweep: sweep, logger: logger}
}

func (j *Janitor) Startup(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return nil
	}
	j.stop = make(chan struct{})
	j.done = make(chan struct{})
	j.running = true

	go j.loop(context.WithoutCancel(ctx), j.stop, j.done)
	return nil
}

func (j *Janitor) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if removed := j.sweep(); removed > 0 {
				j.logger.Debug(ctx, "Janitor sweep", map[string]interface{}{"janitor": j.name, "removed": removed})
			}
		case <-stop:
			return
		}
	}
}

func (j *Janitor) Shutdown(ctx context.Context) error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return nil
	}
	close(j.stop)
	done := j.done
	j.running = false
	j.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Janitor) IsReady() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}
