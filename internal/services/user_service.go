package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"devlense/internal/config"
	"devlense/internal/models"
	"devlense/internal/observability"
	contextutils "devlense/internal/utils"

	"github.com/lib/pq"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceInterface defines the interface for user-related operations.
// This allows for easier mocking in tests.
type UserServiceInterface interface {
	CreateUserWithPassword(ctx context.Context, username, password, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, userID int, newPassword string) error
	GetAllUsers(ctx context.Context) ([]models.User, error)
	EnsureAdminUserExists(ctx context.Context, adminUsername, adminPassword string) error
}

// UserService provides methods for user management.
type UserService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

const userSelectFields = `id, username, email, password_hash, is_admin, created_at, updated_at`

// NewUserServiceWithLogger creates a new UserService instance with logger
func NewUserServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *UserService {
	return &UserService{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	return user, nil
}

// getUserByQuery returns nil, nil when no row matches
func (s *UserService) getUserByQuery(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, err.Error())
	}
	return user, nil
}

// CreateUserWithPassword creates a member account. Email may be empty.
func (s *UserService) CreateUserWithPassword(ctx context.Context, username, password, email string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "create_user_with_password", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "username cannot be empty")
	}
	if password == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "password cannot be empty")
	}
	if email != "" && !contextutils.IsValidEmail(email) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid email address: %s", email)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to hash password")
	}

	now := time.Now().UTC()
	user := &models.User{
		Username:     username,
		Email:        sql.NullString{String: email, Valid: email != ""},
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := `INSERT INTO users (username, email, password_hash, is_admin, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err = s.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash, false, now, now).Scan(&user.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordExists, "username %s is taken", username)
		}
		return nil, contextutils.WrapError(err, "failed to create user")
	}

	s.logger.Info(ctx, "Created user", map[string]interface{}{"user_id": user.ID, "username": username})
	return user, nil
}

// AuthenticateUser checks the password and returns the user. Unknown users and
// wrong passwords produce the same error.
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "authenticate_user", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)

	var user *models.User
	user, err = s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, contextutils.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, contextutils.ErrInvalidCredentials
	}

	return user, nil
}

// GetUserByID retrieves a user by their ID
func (s *UserService) GetUserByID(ctx context.Context, id int) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_id", attribute.Int("user.id", id))
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userSelectFields)
	user, err := s.getUserByQuery(ctx, query, id)
	if err != nil {
		s.logger.Error(ctx, "Database error retrieving user", err, map[string]interface{}{"user_id": id})
		return nil, err
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_username", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1", userSelectFields)
	return s.getUserByQuery(ctx, query, username)
}

// UpdateUserPassword updates a user's password
func (s *UserService) UpdateUserPassword(ctx context.Context, userID int, newPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "update_user_password", attribute.Int("user.id", userID))
	defer observability.FinishSpan(span, &err)

	if newPassword == "" {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "password cannot be empty")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return contextutils.WrapError(err, "failed to hash password")
	}

	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, string(hashedPassword), time.Now().UTC(), userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update user password")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return contextutils.WrapError(contextutils.ErrRecordNotFound, "user not found")
	}

	s.logger.Info(ctx, "Password updated successfully", map[string]interface{}{"user_id": userID})
	return nil
}

// GetAllUsers lists every user ordered by username
func (s *UserService) GetAllUsers(ctx context.Context) (result0 []models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_all_users")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM users ORDER BY username", userSelectFields))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list users")
	}
	defer func() { _ = rows.Close() }()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan user")
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate users")
	}

	span.SetAttributes(attribute.Int("users.count", len(users)))
	return users, nil
}

// EnsureAdminUserExists creates the configured site owner account or brings its
// password and admin flag in line with the configuration.
func (s *UserService) EnsureAdminUserExists(ctx context.Context, adminUsername, adminPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "ensure_admin_user_exists", attribute.String("admin.username", adminUsername))
	defer observability.FinishSpan(span, &err)

	if adminUsername == "" {
		return contextutils.ErrorWithContextf("admin username cannot be empty")
	}
	if adminPassword == "" {
		return contextutils.ErrorWithContextf("admin password cannot be empty")
	}

	existingUser, err := s.GetUserByUsername(ctx, adminUsername)
	if err != nil {
		return contextutils.WrapError(err, "failed to check if admin user exists")
	}

	if existingUser == nil {
		email := ""
		if s.cfg != nil && contextutils.IsValidEmail(s.cfg.Server.NotifyAddress) {
			email = s.cfg.Server.NotifyAddress
		}
		user, err := s.CreateUserWithPassword(ctx, adminUsername, adminPassword, email)
		if err != nil {
			return contextutils.WrapError(err, "failed to create admin user")
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE users SET is_admin = $1 WHERE id = $2`, true, user.ID); err != nil {
			return contextutils.WrapError(err, "failed to mark admin user")
		}
		s.logger.Info(ctx, "Created admin user", map[string]interface{}{"username": adminUsername})
		return nil
	}

	passwordMatches := bcrypt.CompareHashAndPassword([]byte(existingUser.PasswordHash), []byte(adminPassword)) == nil
	if passwordMatches && existingUser.IsAdmin {
		s.logger.Info(ctx, "Admin user already exists with correct password", map[string]interface{}{"username": adminUsername})
		return nil
	}

	hash := existingUser.PasswordHash
	if !passwordMatches {
		hashed, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return contextutils.WrapError(err, "failed to hash admin password")
		}
		hash = string(hashed)
	}

	query := `UPDATE users SET password_hash = $1, is_admin = $2, updated_at = $3 WHERE id = $4`
	if _, err := s.db.ExecContext(ctx, query, hash, true, time.Now().UTC(), existingUser.ID); err != nil {
		return contextutils.WrapError(err, "failed to update admin user")
	}

	s.logger.Info(ctx, "Updated admin user", map[string]interface{}{"username": adminUsername, "password_changed": !passwordMatches})
	return nil
}

// isDuplicateKeyError recognises unique constraint violations from both drivers
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// PostgreSQL error code 23505 is for unique constraint violations
		return pqErr.Code == "23505"
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
