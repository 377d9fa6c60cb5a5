package commands

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"devlense/internal/config"
	"devlense/internal/database"
	"devlense/internal/models"
	"devlense/internal/observability"
	"devlense/internal/services"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db      *sql.DB
	url     string
	manager *database.Manager
	logger  *observability.Logger
	users   *services.UserService
	qna     *services.QnAService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := observability.NewLogger(&config.OpenTelemetryConfig{})
	manager := database.NewManager(logger)
	url := "sqlite://" + filepath.Join(t.TempDir(), "adm.db")
	db, err := manager.InitDB(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &testEnv{
		db:      db,
		url:     url,
		manager: manager,
		logger:  logger,
		users:   services.NewUserServiceWithLogger(db, &config.Config{}, logger),
		qna:     services.NewQnAService(db, logger),
	}
}

func (e *testEnv) root() *cobra.Command {
	root := &cobra.Command{Use: "adm", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(UserCommands(e.users, e.logger, e.url))
	root.AddCommand(QnACommands(e.qna, e.logger))
	root.AddCommand(DatabaseCommands(services.NewTableService(e.db, e.logger), e.manager, e.db, e.url, func(ctx context.Context) error {
		return e.users.EnsureAdminUserExists(ctx, "owner", "owner-password")
	}))
	return root
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := e.root()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestUserCreateAndList(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "s3cret-pass\ns3cret-pass\n", "user", "create", "minji", "--email", "minji@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Created user 'minji'")

	user, err := env.users.AuthenticateUser(context.Background(), "minji", "s3cret-pass")
	require.NoError(t, err)
	require.NotNil(t, user)

	out, err = env.run(t, "", "user", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "minji@example.com")
}

func TestUserCreate_PasswordMismatch(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "one-password\nother-password\n", "user", "create", "minji")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "passwords do not match")
}

func TestUserCreate_InvalidEmail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "pw\npw\n", "user", "create", "minji", "--email", "not-an-email")
	assert.Error(t, err)
}

func TestUserResetPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.users.CreateUserWithPassword(ctx, "minji", "old-password", "")
	require.NoError(t, err)

	out, err := env.run(t, "new-password\nnew-password\n", "user", "reset-password", "minji")
	require.NoError(t, err)
	assert.Contains(t, out, "Password reset for user 'minji'")

	user, err := env.users.AuthenticateUser(ctx, "minji", "new-password")
	require.NoError(t, err)
	assert.NotNil(t, user)

	_, err = env.run(t, "x\nx\n", "user", "reset-password", "nobody")
	assert.Error(t, err)
}

func TestQnAListAndAnswer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user, err := env.users.CreateUserWithPassword(ctx, "minji", "password", "")
	require.NoError(t, err)
	question, err := env.qna.Create(ctx, &models.Question{Question: "배포는 어떻게 하나요?", UserID: user.ID})
	require.NoError(t, err)

	out, err := env.run(t, "", "qna", "list", "--pending")
	require.NoError(t, err)
	assert.Contains(t, out, "배포는 어떻게 하나요?")
	assert.Contains(t, out, "(pending)")
	assert.Contains(t, out, "1 question(s)")

	out, err = env.run(t, "", "qna", "answer", strconv.Itoa(question.ID), "Docker", "images", "on", "Fly")
	require.NoError(t, err)
	assert.Contains(t, out, "Answered question")

	questions, err := env.qna.ListNewestFirst(ctx)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, question.ID, questions[0].ID)
	assert.Equal(t, "Docker images on Fly", questions[0].Answer.String)

	out, err = env.run(t, "", "qna", "list", "--pending")
	require.NoError(t, err)
	assert.Contains(t, out, "0 question(s)")
}

func TestQnAAnswer_InvalidID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "qna", "answer", "abc", "text")
	assert.Error(t, err)

	_, err = env.run(t, "", "qna", "answer", "42", "text")
	assert.Error(t, err)
}

func TestDatabaseStatsAndSelect(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.users.CreateUserWithPassword(context.Background(), "minji", "password", "")
	require.NoError(t, err)

	out, err := env.run(t, "", "db", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema at version")

	out, err = env.run(t, "", "db", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "(sqlite)")
	assert.Contains(t, out, "users")
	assert.Contains(t, out, "bug_reports")

	out, err = env.run(t, "", "db", "select", "users", "--desc", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "minji")
	assert.NotContains(t, out, "password")
	assert.Contains(t, out, "1 row(s)")

	_, err = env.run(t, "", "db", "select", "secrets")
	assert.Error(t, err)
}

func TestDatabaseReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.users.CreateUserWithPassword(ctx, "minji", "password", "")
	require.NoError(t, err)

	_, err = env.run(t, "", "db", "reset")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	out, err := env.run(t, "", "db", "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema recreated")
	assert.Contains(t, out, "Admin user recreated")

	users, err := env.users.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "owner", users[0].Username)
	assert.True(t, users[0].IsAdmin)
}

func TestCell(t *testing.T) {
	assert.Equal(t, "NULL", cell(nil))
	assert.Equal(t, "a b", cell("a\nb"))
	long := strings.Repeat("가", 80)
	got := cell(long)
	assert.Equal(t, 60, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
}
