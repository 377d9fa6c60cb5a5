package services

import (
	"fmt"
	"sync"

	"devlense/internal/models"
)

// InFlightGuard allows one running submission per user and form kind. It is the
// server-side counterpart of a disabled submit button.
type InFlightGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

// NewInFlightGuard creates an empty guard
func NewInFlightGuard() *InFlightGuard {
	return &InFlightGuard{running: make(map[string]struct{})}
}

func inFlightKey(userID int, kind models.SubmissionKind) string {
	return fmt.Sprintf("%d:%s", userID, kind)
}

// TryAcquire marks the pair as running. The returned release must be called
// once the submission settles; ok is false when one is already running.
func (g *InFlightGuard) TryAcquire(userID int, kind models.SubmissionKind) (release func(), ok bool) {
	key := inFlightKey(userID, kind)

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.running[key]; busy {
		return func() {}, false
	}
	g.running[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.running, key)
			g.mu.Unlock()
		})
	}, true
}

// Running reports whether a submission is in flight for the pair
func (g *InFlightGuard) Running(userID int, kind models.SubmissionKind) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.running[inFlightKey(userID, kind)]
	return busy
}
