package services

import (
	"errors"
	"testing"
	"time"

	"devlense/internal/models"
	contextutils "devlense/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenManager_RequiresSecret(t *testing.T) {
	assert.Panics(t, func() { NewTokenManager("", "devlense", "", time.Hour) })
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	tm := NewTokenManager("test-secret", "devlense", "devlense-web", time.Hour)

	session, token, err := tm.Issue(&models.User{ID: 7, Username: "owner", IsAdmin: true})
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, time.Hour, session.ExpiresAt.Sub(session.IssuedAt))

	parsed, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, parsed.ID)
	assert.Equal(t, 7, parsed.UserID)
	assert.Equal(t, "owner", parsed.Username)
	assert.True(t, parsed.IsAdmin)
	assert.True(t, session.ExpiresAt.Equal(parsed.ExpiresAt))
}

func TestTokenManager_Parse_Rejections(t *testing.T) {
	tm := NewTokenManager("test-secret", "devlense", "", time.Hour)
	_, token, err := tm.Issue(&models.User{ID: 7, Username: "owner"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		manager *TokenManager
		token   string
		want    *contextutils.AppError
	}{
		{name: "wrong secret", manager: NewTokenManager("other-secret", "devlense", "", time.Hour), token: token, want: contextutils.ErrUnauthorized},
		{name: "wrong issuer", manager: NewTokenManager("test-secret", "someone-else", "", time.Hour), token: token, want: contextutils.ErrUnauthorized},
		{name: "wrong audience", manager: NewTokenManager("test-secret", "devlense", "admin-api", time.Hour), token: token, want: contextutils.ErrUnauthorized},
		{name: "malformed", manager: tm, token: "not.a.token", want: contextutils.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.manager.Parse(tt.token)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestTokenManager_Parse_Expired(t *testing.T) {
	tm := NewTokenManager("test-secret", "devlense", "", time.Minute)
	issued := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }

	_, token, err := tm.Issue(&models.User{ID: 7, Username: "owner"})
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tm.Parse(token)
	assert.True(t, errors.Is(err, contextutils.ErrSessionExpired), "got %v", err)
}
