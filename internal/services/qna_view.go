package services

import (
	"context"
	"sync"
	"time"

	"devlense/internal/config"
	"devlense/internal/models"
	"devlense/internal/observability"
)

// QnAListView remembers, per session, the last question list that loaded. A
// failed fetch hands back that list so the page stays populated.
type QnAListView struct {
	qna    QnAServiceInterface
	logger *observability.Logger

	mu        sync.Mutex
	lastGood  map[string]lastGoodList
	retention time.Duration
	now       func() time.Time
}

type lastGoodList struct {
	questions []models.Question
	loadedAt  time.Time
}

// NewQnAListView creates a view over qna. Stored lists are kept for the
// default session lifetime; see SetRetention.
func NewQnAListView(qna QnAServiceInterface, logger *observability.Logger) *QnAListView {
	return &QnAListView{
		qna:       qna,
		logger:    logger,
		lastGood:  make(map[string]lastGoodList),
		retention: config.SessionMaxAge,
		now:       time.Now,
	}
}

// SetRetention sets how long a stored list outlives its last load. Pass the
// session TTL.
func (v *QnAListView) SetRetention(d time.Duration) {
	if d <= 0 {
		return
	}
	v.mu.Lock()
	v.retention = d
	v.mu.Unlock()
}

// Load fetches the list newest-first. On success the result replaces what was
// stored for sessionID. On failure the stored list (possibly nil) is returned
// together with the error.
func (v *QnAListView) Load(ctx context.Context, sessionID string) ([]models.Question, error) {
	questions, err := v.qna.ListNewestFirst(ctx)
	if err != nil {
		stale := v.LastGood(sessionID)
		v.logger.Warn(ctx, "Question list fetch failed, keeping last list", map[string]interface{}{
			"session_id":  sessionID,
			"stale_count": len(stale),
			"error":       err.Error(),
		})
		return stale, err
	}

	v.mu.Lock()
	v.lastGood[sessionID] = lastGoodList{questions: questions, loadedAt: v.now()}
	v.mu.Unlock()
	return questions, nil
}

// LastGood returns a copy of the stored list for sessionID
func (v *QnAListView) LastGood(sessionID string) []models.Question {
	v.mu.Lock()
	defer v.mu.Unlock()
	list, ok := v.lastGood[sessionID]
	if !ok {
		return nil
	}
	return append([]models.Question{}, list.questions...)
}

// Forget drops the stored list for sessionID
func (v *QnAListView) Forget(sessionID string) {
	v.mu.Lock()
	delete(v.lastGood, sessionID)
	v.mu.Unlock()
}

// Sweep drops lists whose session must have expired by now. Expiry publishes
// no sign-out event.
func (v *QnAListView) Sweep() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	cutoff := v.now().Add(-v.retention)
	removed := 0
	for id, list := range v.lastGood {
		if list.loadedAt.Before(cutoff) {
			delete(v.lastGood, id)
			removed++
		}
	}
	return removed
}

// Len reports how many sessions have a stored list
func (v *QnAListView) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.lastGood)
}

// Watch forgets a session's list when it signs out, until ctx is done.
func (v *QnAListView) Watch(ctx context.Context, hub *SessionHub) (unsubscribe func()) {
	return hub.Subscribe(ctx, func(event models.AuthEvent) {
		if event.Type == models.AuthEventSignedOut {
			v.Forget(event.SessionID)
		}
	})
}
