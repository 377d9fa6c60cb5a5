package services

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"devlense/internal/models"
	"devlense/internal/observability"
	contextutils "devlense/internal/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// AuthListener receives auth-state changes. It runs on the publisher's goroutine
// and must not block.
type AuthListener func(event models.AuthEvent)

// AuthEventRelay carries events between processes sharing one session store.
type AuthEventRelay interface {
	Publish(ctx context.Context, event models.AuthEvent) error
}

// SessionHub is the single process-wide fan-out point for auth-state changes.
type SessionHub struct {
	mu          sync.RWMutex
	nextID      uint64
	subscribers map[uint64]AuthListener
	relay       AuthEventRelay
	logger      *observability.Logger
}

// NewSessionHub creates a hub with no subscribers
func NewSessionHub(logger *observability.Logger) *SessionHub {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &SessionHub{subscribers: make(map[uint64]AuthListener), logger: logger}
}

// SetRelay forwards locally published events to other processes
func (h *SessionHub) SetRelay(relay AuthEventRelay) {
	h.mu.Lock()
	h.relay = relay
	h.mu.Unlock()
}

// Subscribe registers fn until the returned func is called or ctx is done,
// whichever happens first. Calling the returned func more than once is safe.
func (h *SessionHub) Subscribe(ctx context.Context, fn AuthListener) (unsubscribe func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subscribers[id] = fn
	h.mu.Unlock()

	stop := make(chan struct{})
	var once sync.Once
	unsubscribe = func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, id)
			h.mu.Unlock()
			close(stop)
		})
	}

	if done := ctx.Done(); done != nil {
		go func() {
			select {
			case <-done:
				unsubscribe()
			case <-stop:
			}
		}()
	}
	return unsubscribe
}

// SubscriberCount reports the number of live subscriptions
func (h *SessionHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Publish notifies local subscribers and, when a relay is set, other processes.
func (h *SessionHub) Publish(ctx context.Context, event models.AuthEvent) {
	h.Dispatch(ctx, event)
	observability.GetInstruments().RecordAuthEvent(ctx, string(event.Type))

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay == nil {
		return
	}
	if err := relay.Publish(ctx, event); err != nil {
		h.logger.Warn(ctx, "Failed to relay auth event", map[string]interface{}{
			"type":       string(event.Type),
			"session_id": event.SessionID,
			"error":      err.Error(),
		})
	}
}

// Dispatch notifies local subscribers only
func (h *SessionHub) Dispatch(ctx context.Context, event models.AuthEvent) {
	h.mu.RLock()
	listeners := make([]AuthListener, 0, len(h.subscribers))
	for _, fn := range h.subscribers {
		listeners = append(listeners, fn)
	}
	h.mu.RUnlock()

	for _, fn := range listeners {
		h.invoke(ctx, fn, event)
	}
}

func (h *SessionHub) invoke(ctx context.Context, fn AuthListener, event models.AuthEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error(ctx, "Auth listener panicked", contextutils.ErrorWithContextf("panic: %v", r), map[string]interface{}{
				"type": string(event.Type),
			})
		}
	}()
	fn(event)
}

const authEventChannel = "devlense:auth-events"

type relayEnvelope struct {
	Origin string           `json:"origin"`
	Event  models.AuthEvent `json:"event"`
}

// RedisAuthEventRelay publishes hub events on a Redis channel and dispatches
// events from other processes into the local hub.
type RedisAuthEventRelay struct {
	client redis.UniversalClient
	hub    *SessionHub
	logger *observability.Logger
	origin string

	pubsub *redis.PubSub
	done   chan struct{}
	ready  atomic.Bool
}

// NewRedisAuthEventRelay creates a relay; call Startup to begin receiving
func NewRedisAuthEventRelay(client redis.UniversalClient, hub *SessionHub, logger *observability.Logger) *RedisAuthEventRelay {
	return &RedisAuthEventRelay{
		client: client,
		hub:    hub,
		logger: logger,
		origin: uuid.NewString(),
	}
}

func (r *RedisAuthEventRelay) Publish(ctx context.Context, event models.AuthEvent) error {
	payload, err := json.Marshal(relayEnvelope{Origin: r.origin, Event: event})
	if err != nil {
		return contextutils.WrapError(err, "failed to encode auth event")
	}
	if err := r.client.Publish(ctx, authEventChannel, payload).Err(); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "failed to publish auth event: %v", err)
	}
	return nil
}

// Startup subscribes to the channel and waits for the confirmation
func (r *RedisAuthEventRelay) Startup(ctx context.Context) error {
	r.pubsub = r.client.Subscribe(ctx, authEventChannel)
	if _, err := r.pubsub.Receive(ctx); err != nil {
		_ = r.pubsub.Close()
		return contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "failed to subscribe to auth events: %v", err)
	}

	r.done = make(chan struct{})
	go r.receive(r.pubsub.Channel())
	r.ready.Store(true)
	r.logger.Info(ctx, "Auth event relay started", map[string]interface{}{"channel": authEventChannel})
	return nil
}

func (r *RedisAuthEventRelay) receive(messages <-chan *redis.Message) {
	defer close(r.done)
	ctx := context.Background()
	for msg := range messages {
		var env relayEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			r.logger.Warn(ctx, "Dropping malformed auth event", map[string]interface{}{"error": err.Error()})
			continue
		}
		if env.Origin == r.origin {
			continue
		}
		r.hub.Dispatch(ctx, env.Event)
	}
}

// Shutdown closes the subscription and waits for the receive loop to exit
func (r *RedisAuthEventRelay) Shutdown(ctx context.Context) error {
	r.ready.Store(false)
	if r.pubsub == nil {
		return nil
	}
	if err := r.pubsub.Close(); err != nil {
		return contextutils.WrapError(err, "failed to close auth event subscription")
	}
	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (r *RedisAuthEventRelay) IsReady() bool {
	return r.ready.Load()
}
