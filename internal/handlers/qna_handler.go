package handlers

import (
	"context"
	"net/http"
	"strings"

	"devlense/internal/config"
	"devlense/internal/middleware"
	"devlense/internal/models"
	"devlense/internal/observability"
	"devlense/internal/services"
	contextutils "devlense/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// QnAListLoader loads the question list for one session and remembers the last
// list that loaded.
type QnAListLoader interface {
	Load(ctx context.Context, sessionID string) ([]models.Question, error)
	LastGood(sessionID string) []models.Question
}

// QnAHandler serves the members Q&A page and API
type QnAHandler struct {
	submissions services.SubmissionServiceInterface
	view        QnAListLoader
	logger      *observability.Logger
}

// NewQnAHandler creates a new QnAHandler instance
func NewQnAHandler(submissions services.SubmissionServiceInterface, view QnAListLoader, logger *observability.Logger) *QnAHandler {
	return &QnAHandler{submissions: submissions, view: view, logger: logger}
}

func fetchFailedError(err error, locale contextutils.Locale) *pageError {
	return &pageError{
		Title:   contextutils.T(contextutils.MsgErrorTitle, locale),
		Message: contextutils.T(contextutils.MsgQnAFetchFail, locale, errorDetails(err)),
	}
}

func (h *QnAHandler) pageData(c *gin.Context, session *models.Session) pageData {
	return newPageData(c, session, contextutils.T(contextutils.MsgQnATitle, middleware.RequestLocale(c)))
}

// Page renders the question form and the list, newest first. A failed fetch
// keeps the last list this session saw.
func (h *QnAHandler) Page(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "qna_page")
	defer observability.FinishSpan(span, nil)

	session, _ := middleware.CurrentSession(c)
	data := h.pageData(c, session)
	data.Form = models.QuestionForm{}

	questions, err := h.view.Load(ctx, session.ID)
	data.Questions = questions
	if err != nil {
		data.Error = fetchFailedError(err, data.Locale)
	}
	span.SetAttributes(attribute.Int("qna.count", len(questions)))
	c.HTML(http.StatusOK, pageQnA, data)
}

// PageSubmit handles the question form post
func (h *QnAHandler) PageSubmit(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "qna_submit")
	defer observability.FinishSpan(span, nil)

	session, _ := middleware.CurrentSession(c)
	form := models.QuestionForm{Question: strings.TrimSpace(c.PostForm("question"))}

	question, err := h.submissions.AskQuestion(c.Request.Context(), session, form)
	if err != nil {
		data := h.pageData(c, session)
		data.Form = form
		data.Questions = h.view.LastGood(session.ID)
		data.Error = submissionPageError(err, data.Locale, contextutils.MsgQnAInsertFail)
		c.HTML(middleware.HTTPStatusFor(contextutils.GetErrorCode(err)), pageQnA, data)
		return
	}

	span.SetAttributes(attribute.Int("question.id", question.ID))
	locale := middleware.RequestLocale(c)
	if err := addFlash(c, flashToast, contextutils.T(contextutils.MsgQnASubmitted, locale)); err != nil {
		h.logger.Warn(c.Request.Context(), "Failed to queue confirmation", map[string]interface{}{"error": err.Error()})
	}
	c.Redirect(http.StatusSeeOther, config.QnARoute)
}

// List handles GET /v1/qna. The stale list travels with the error code so a
// client can keep showing it.
func (h *QnAHandler) List(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_questions")
	defer observability.FinishSpan(span, nil)

	session, _ := middleware.CurrentSession(c)
	questions, err := h.view.Load(ctx, session.ID)
	if questions == nil {
		questions = []models.Question{}
	}
	if err != nil {
		appErr := contextutils.NewAppErrorWithCause(contextutils.ErrorCodeFetchFailed, contextutils.SeverityError, "Failed to fetch questions", errorDetails(err), err)
		payload := appErr.ToJSONWithLocale(string(middleware.RequestLocale(c)))
		payload["questions"] = questions
		c.JSON(middleware.HTTPStatusFor(appErr.Code), payload)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

type questionRequest struct {
	Question string `json:"question" binding:"required"`
}

// Create handles POST /v1/qna
func (h *QnAHandler) Create(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "create_question")
	defer observability.FinishSpan(span, nil)

	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}

	session, _ := middleware.CurrentSession(c)
	result, err := h.submissions.SubmitQuestion(c.Request.Context(), session, models.QuestionForm{Question: strings.TrimSpace(req.Question)})
	if err != nil {
		HandleAppError(c, err)
		return
	}

	questions := result.Questions
	if questions == nil {
		questions = []models.Question{}
	}
	body := gin.H{"question": result.Question, "questions": questions}
	if result.ListErr != nil {
		body["list_error"] = contextutils.T(contextutils.MsgQnAFetchFail, middleware.RequestLocale(c), errorDetails(result.ListErr))
	}
	c.JSON(http.StatusCreated, body)
}
