package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"devlense/internal/config"
	"devlense/internal/middleware"
	"devlense/internal/models"
	"devlense/internal/observability"
	"devlense/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockIdentityService for testing
type MockIdentityService struct {
	mock.Mock
}

func (m *MockIdentityService) GetSession(ctx context.Context, token string) (*models.Session, error) {
	args := m.Called(ctx, token)
	session, _ := args.Get(0).(*models.Session)
	return session, args.Error(1)
}

func (m *MockIdentityService) SignIn(ctx context.Context, username, password string) (*models.Session, string, error) {
	args := m.Called(ctx, username, password)
	session, _ := args.Get(0).(*models.Session)
	return session, args.String(1), args.Error(2)
}

func (m *MockIdentityService) SignOut(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockIdentityService) OnAuthStateChange(ctx context.Context, listener services.AuthListener) func() {
	args := m.Called(ctx, listener)
	if fn, ok := args.Get(0).(func()); ok {
		return fn
	}
	return func() {}
}

// MockSubmissionService for testing
type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) SubmitBugReport(ctx context.Context, session *models.Session, form models.BugReportForm, attachment *models.Attachment) (*models.BugReport, error) {
	args := m.Called(ctx, session, form, attachment)
	report, _ := args.Get(0).(*models.BugReport)
	return report, args.Error(1)
}

func (m *MockSubmissionService) SubmitQuestion(ctx context.Context, session *models.Session, form models.QuestionForm) (*services.QuestionSubmission, error) {
	args := m.Called(ctx, session, form)
	result, _ := args.Get(0).(*services.QuestionSubmission)
	return result, args.Error(1)
}

func (m *MockSubmissionService) AskQuestion(ctx context.Context, session *models.Session, form models.QuestionForm) (*models.Question, error) {
	args := m.Called(ctx, session, form)
	question, _ := args.Get(0).(*models.Question)
	return question, args.Error(1)
}

// MockQnAView for testing
type MockQnAView struct {
	mock.Mock
}

func (m *MockQnAView) Load(ctx context.Context, sessionID string) ([]models.Question, error) {
	args := m.Called(ctx, sessionID)
	questions, _ := args.Get(0).([]models.Question)
	return questions, args.Error(1)
}

func (m *MockQnAView) LastGood(sessionID string) []models.Question {
	args := m.Called(sessionID)
	questions, _ := args.Get(0).([]models.Question)
	return questions
}

func testLogger() *observability.Logger {
	return observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			SessionSecret: "test-secret",
			DefaultLocale: "ko",
		},
		Uploads: config.UploadsConfig{MaxBytes: config.MaxAttachmentBytes},
	}
}

func memberSession() *models.Session {
	now := time.Now().UTC()
	return &models.Session{ID: "sess-1", UserID: 7, Username: "member", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
}

type testDeps struct {
	identity    *MockIdentityService
	submissions *MockSubmissionService
	view        *MockQnAView
}

func newTestDeps() *testDeps {
	deps := &testDeps{
		identity:    &MockIdentityService{},
		submissions: &MockSubmissionService{},
		view:        &MockQnAView{},
	}
	// Visitors without a cookie carry no token.
	deps.identity.On("GetSession", mock.Anything, "").Return(nil, nil).Maybe()
	return deps
}

// browser drives the full router and carries cookies between requests
type browser struct {
	t       *testing.T
	router  *gin.Engine
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, deps *testDeps) *browser {
	t.Helper()
	router, err := NewRouter(testConfig(), RouterDeps{
		Identity:    deps.identity,
		Submissions: deps.submissions,
		QnAView:     deps.view,
	}, testLogger())
	require.NoError(t, err)

	// Lets a test start out holding a session token.
	router.GET("/test/seed", func(c *gin.Context) {
		require.NoError(t, storeSessionToken(c, c.Query("token")))
		c.Status(http.StatusNoContent)
	})
	return &browser{t: t, router: router, cookies: map[string]*http.Cookie{}}
}

// signedIn seeds token and makes the identity mock resolve it to session
func (b *browser) signedIn(deps *testDeps, token string, session *models.Session) *browser {
	deps.identity.On("GetSession", mock.Anything, token).Return(session, nil)
	w := b.do(httptest.NewRequest(http.MethodGet, "/test/seed?token="+token, nil))
	require.Equal(b.t, http.StatusNoContent, w.Code)
	return b
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func ginTestContext(req *http.Request) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

var _ middleware.SessionResolver = (*MockIdentityService)(nil)
