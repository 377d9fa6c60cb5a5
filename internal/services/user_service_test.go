package services

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"devlense/internal/config"
	contextutils "devlense/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var userColumns = []string{"id", "username", "email", "password_hash", "is_admin", "created_at", "updated_at"}

func userRow(t *testing.T, id int, username, password string, isAdmin bool) *sqlmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(userColumns).AddRow(id, username, nil, string(hash), isAdmin, now, now)
}

// TestUserService_NewUserServiceWithLogger tests the constructor
func TestUserService_NewUserServiceWithLogger(t *testing.T) {
	service := NewUserServiceWithLogger(nil, &config.Config{}, createTestLogger())
	assert.NotNil(t, service)
}

func TestUserService_CreateUserWithPassword(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewUserServiceWithLogger(db, &config.Config{}, createTestLogger())

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (username, email, password_hash, is_admin, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`)).
		WithArgs("member", sqlmock.AnyArg(), sqlmock.AnyArg(), false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))

	user, err := service.CreateUserWithPassword(context.Background(), "  member ", "pw", "member@devlense.test")
	require.NoError(t, err)
	assert.Equal(t, 4, user.ID)
	assert.Equal(t, "member", user.Username)
	assert.True(t, user.Email.Valid)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw")))
}

func TestUserService_CreateUserWithPassword_Validation(t *testing.T) {
	service := NewUserServiceWithLogger(nil, &config.Config{}, createTestLogger())
	ctx := context.Background()

	_, err := service.CreateUserWithPassword(ctx, " ", "pw", "")
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidInput))

	_, err = service.CreateUserWithPassword(ctx, "member", "", "")
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidInput))

	_, err = service.CreateUserWithPassword(ctx, "member", "pw", "not-an-email")
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidInput))
}

func TestUserService_CreateUserWithPassword_Duplicate(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewUserServiceWithLogger(db, &config.Config{}, createTestLogger())

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Message: `duplicate key value violates unique constraint "users_username_key"`})

	_, err := service.CreateUserWithPassword(context.Background(), "member", "pw", "")
	assert.True(t, contextutils.IsError(err, contextutils.ErrRecordExists))
}

func TestUserService_AuthenticateUser(t *testing.T) {
	tests := []struct {
		name     string
		rows     func(t *testing.T) *sqlmock.Rows
		password string
		wantErr  *contextutils.AppError
	}{
		{
			name:     "correct password",
			rows:     func(t *testing.T) *sqlmock.Rows { return userRow(t, 1, "member", "pw", false) },
			password: "pw",
		},
		{
			name:     "wrong password",
			rows:     func(t *testing.T) *sqlmock.Rows { return userRow(t, 1, "member", "pw", false) },
			password: "nope",
			wantErr:  contextutils.ErrInvalidCredentials,
		},
		{
			name:     "unknown user",
			rows:     func(*testing.T) *sqlmock.Rows { return sqlmock.NewRows(userColumns) },
			password: "pw",
			wantErr:  contextutils.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			service := NewUserServiceWithLogger(db, &config.Config{}, createTestLogger())
			mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
				WithArgs("member").
				WillReturnRows(tt.rows(t))

			user, err := service.AuthenticateUser(context.Background(), "member", tt.password)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, user.ID)
		})
	}
}

func TestUserService_GetUserByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewUserServiceWithLogger(db, &config.Config{}, createTestLogger())

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).WithArgs(9).WillReturnError(sql.ErrNoRows)

	user, err := service.GetUserByID(context.Background(), 9)
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserService_UpdateUserPassword_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewUserServiceWithLogger(db, &config.Config{}, createTestLogger())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 9).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := service.UpdateUserPassword(context.Background(), 9, "new")
	assert.True(t, contextutils.IsError(err, contextutils.ErrRecordNotFound))
}

func TestUserService_GetAllUsers(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewUserServiceWithLogger(db, &config.Config{}, createTestLogger())

	now := time.Now()
	mock.ExpectQuery("SELECT .* FROM users ORDER BY username").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(2, "alice", "alice@devlense.test", "h", false, now, now).
			AddRow(1, "owner", nil, "h", true, now, now))

	users, err := service.GetAllUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.True(t, users[1].IsAdmin)
	assert.False(t, users[1].Email.Valid)
}

func TestUserService_EnsureAdminUserExists_Creates(t *testing.T) {
	db, mock := newMockDB(t)
	cfg := &config.Config{Server: config.ServerConfig{NotifyAddress: "owner@devlense.test"}}
	service := NewUserServiceWithLogger(db, cfg, createTestLogger())

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).WithArgs("owner").WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("owner", sql.NullString{String: "owner@devlense.test", Valid: true}, sqlmock.AnyArg(), false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_admin = $1 WHERE id = $2")).WithArgs(true, 1).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, service.EnsureAdminUserExists(context.Background(), "owner", "ownerpass"))
}

func TestUserService_EnsureAdminUserExists_UpToDate(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewUserServiceWithLogger(db, &config.Config{}, createTestLogger())

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).WithArgs("owner").WillReturnRows(userRow(t, 1, "owner", "ownerpass", true))

	require.NoError(t, service.EnsureAdminUserExists(context.Background(), "owner", "ownerpass"))
}

func TestUserService_EnsureAdminUserExists_ResetsPassword(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewUserServiceWithLogger(db, &config.Config{}, createTestLogger())

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).WithArgs("owner").WillReturnRows(userRow(t, 1, "owner", "old", false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash = $1, is_admin = $2, updated_at = $3 WHERE id = $4")).
		WithArgs(sqlmock.AnyArg(), true, sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, service.EnsureAdminUserExists(context.Background(), "owner", "ownerpass"))
}

func TestIsDuplicateKeyError(t *testing.T) {
	assert.False(t, isDuplicateKeyError(nil))
	assert.True(t, isDuplicateKeyError(&pq.Error{Code: "23505"}))
	assert.False(t, isDuplicateKeyError(&pq.Error{Code: "23503"}))
	assert.True(t, isDuplicateKeyError(errors.New("constraint failed: UNIQUE constraint failed: users.username (2067)")))
}
