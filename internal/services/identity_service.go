package services

import (
	"context"
	"time"

	"devlense/internal/models"
	"devlense/internal/observability"
	contextutils "devlense/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// IdentityServiceInterface is the identity provider boundary used by the session
// guard, the auth API and the navigation stream.
type IdentityServiceInterface interface {
	// GetSession returns nil, nil when token carries no live session
	GetSession(ctx context.Context, token string) (*models.Session, error)
	SignIn(ctx context.Context, username, password string) (*models.Session, string, error)
	SignOut(ctx context.Context, token string) error
	OnAuthStateChange(ctx context.Context, listener AuthListener) (unsubscribe func())
}

// IdentityService issues session tokens, tracks them in a SessionStore and
// announces sign-in and sign-out through the SessionHub.
type IdentityService struct {
	users  UserServiceInterface
	tokens *TokenManager
	store  SessionStore
	hub    *SessionHub
	logger *observability.Logger
}

// NewIdentityService creates a new IdentityService instance
func NewIdentityService(users UserServiceInterface, tokens *TokenManager, store SessionStore, hub *SessionHub, logger *observability.Logger) *IdentityService {
	if users == nil || tokens == nil || store == nil || hub == nil {
		panic("identity service dependencies cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &IdentityService{users: users, tokens: tokens, store: store, hub: hub, logger: logger}
}

func (s *IdentityService) GetSession(ctx context.Context, token string) (result0 *models.Session, err error) {
	ctx, span := observability.TraceIdentityFunction(ctx, "get_session")
	defer observability.FinishSpan(span, &err)

	if token == "" {
		return nil, nil
	}

	claimed, parseErr := s.tokens.Parse(token)
	if parseErr != nil {
		s.logger.Debug(ctx, "Ignoring unusable session token", map[string]interface{}{"reason": parseErr.Error()})
		return nil, nil
	}
	span.SetAttributes(observability.AttributeSessionID(claimed.ID))

	stored, err := s.store.Get(ctx, claimed.ID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to fetch session")
	}
	if stored == nil || stored.UserID != claimed.UserID {
		// Revoked by sign-out or evicted from the store.
		return nil, nil
	}

	span.SetAttributes(observability.AttributeUserID(stored.UserID))
	return stored, nil
}

func (s *IdentityService) SignIn(ctx context.Context, username, password string) (result0 *models.Session, result1 string, err error) {
	ctx, span := observability.TraceIdentityFunction(ctx, "sign_in", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)

	user, err := s.users.AuthenticateUser(ctx, username, password)
	if err != nil {
		s.logger.Info(ctx, "Sign-in rejected", map[string]interface{}{"username": username})
		return nil, "", err
	}

	session, token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, "", contextutils.WrapError(err, "failed to save session")
	}

	span.SetAttributes(observability.AttributeUserID(user.ID), observability.AttributeSessionID(session.ID))
	s.logger.Info(ctx, "User signed in", map[string]interface{}{"user_id": user.ID, "session_id": session.ID})

	s.hub.Publish(ctx, models.AuthEvent{
		Type:      models.AuthEventSignedIn,
		SessionID: session.ID,
		UserID:    session.UserID,
		Session:   session,
		At:        time.Now().UTC(),
	})
	return session, token, nil
}

// SignOut revokes the session behind token. Unusable tokens are a no-op.
func (s *IdentityService) SignOut(ctx context.Context, token string) (err error) {
	ctx, span := observability.TraceIdentityFunction(ctx, "sign_out")
	defer observability.FinishSpan(span, &err)

	if token == "" {
		return nil
	}
	claimed, parseErr := s.tokens.Parse(token)
	if parseErr != nil {
		return nil
	}
	span.SetAttributes(observability.AttributeSessionID(claimed.ID), observability.AttributeUserID(claimed.UserID))

	if err := s.store.Delete(ctx, claimed.ID); err != nil {
		return contextutils.WrapError(err, "failed to revoke session")
	}

	s.logger.Info(ctx, "User signed out", map[string]interface{}{"user_id": claimed.UserID, "session_id": claimed.ID})
	s.hub.Publish(ctx, models.AuthEvent{
		Type:      models.AuthEventSignedOut,
		SessionID: claimed.ID,
		UserID:    claimed.UserID,
		At:        time.Now().UTC(),
	})
	return nil
}

// OnAuthStateChange subscribes listener to the hub for the lifetime of ctx
func (s *IdentityService) OnAuthStateChange(ctx context.Context, listener AuthListener) (unsubscribe func()) {
	return s.hub.Subscribe(ctx, listener)
}
