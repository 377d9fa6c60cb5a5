package services

import (
	"errors"
	"time"

	"devlense/internal/models"
	contextutils "devlense/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims is the JWT body of a session token. The jti is the session id.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID   int    `json:"uid"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"admin,omitempty"`
}

// TokenManager signs and validates session tokens with HS256.
type TokenManager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenManager panics on an empty secret
func NewTokenManager(secret, issuer, audience string, ttl time.Duration) *TokenManager {
	if secret == "" {
		panic("session secret is required")
	}
	return &TokenManager{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue creates a new session for user and its signed token
func (tm *TokenManager) Issue(user *models.User) (*models.Session, string, error) {
	now := tm.now().UTC().Truncate(time.Second)
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		IssuedAt:  now,
		ExpiresAt: now.Add(tm.ttl),
	}

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   user.Username,
			Issuer:    tm.issuer,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	}
	if tm.audience != "" {
		claims.Audience = jwt.ClaimStrings{tm.audience}
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return nil, "", contextutils.WrapError(err, "failed to sign session token")
	}
	return session, token, nil
}

// Parse validates the signature, issuer, audience and expiry of token
func (tm *TokenManager) Parse(token string) (*models.Session, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tm.issuer),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
	}
	if tm.audience != "" {
		opts = append(opts, jwt.WithAudience(tm.audience))
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, contextutils.WrapError(contextutils.ErrSessionExpired, err.Error())
		}
		return nil, contextutils.WrapError(contextutils.ErrUnauthorized, err.Error())
	}
	if !parsed.Valid || claims.ID == "" {
		return nil, contextutils.WrapError(contextutils.ErrUnauthorized, "invalid session token")
	}

	session := &models.Session{
		ID:       claims.ID,
		UserID:   claims.UserID,
		Username: claims.Username,
		IsAdmin:  claims.IsAdmin,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return session, nil
}
