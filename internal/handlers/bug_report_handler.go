package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
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

// BugReportHandler serves the bug report form and its API twin
type BugReportHandler struct {
	submissions services.SubmissionServiceInterface
	config      *config.Config
	logger      *observability.Logger
}

// NewBugReportHandler creates a new BugReportHandler instance
func NewBugReportHandler(submissions services.SubmissionServiceInterface, cfg *config.Config, logger *observability.Logger) *BugReportHandler {
	return &BugReportHandler{submissions: submissions, config: cfg, logger: logger}
}

// parseBugReportForm reads the text fields. Any truthy checkbox value marks the
// report secret.
func parseBugReportForm(c *gin.Context) models.BugReportForm {
	secret, _ := strconv.ParseBool(c.PostForm("is_secret"))
	if strings.EqualFold(c.PostForm("is_secret"), "on") {
		secret = true
	}
	return models.BugReportForm{
		Title:       strings.TrimSpace(c.PostForm("title")),
		Description: strings.TrimSpace(c.PostForm("description")),
		IsSecret:    secret,
	}
}

// openAttachment returns the picked image, or nil when none was sent. The
// caller closes the returned file.
func openAttachment(c *gin.Context) (*models.Attachment, multipart.File, error) {
	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, middleware.BodyReadError(err, "Invalid image upload")
	}
	if header.Size == 0 && header.Filename == "" {
		return nil, nil, nil
	}

	file, err := header.Open()
	if err != nil {
		return nil, nil, contextutils.WrapError(err, "failed to open uploaded image")
	}
	return &models.Attachment{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, file, nil
}

func (h *BugReportHandler) submit(c *gin.Context, form models.BugReportForm) (*models.BugReport, error) {
	session, _ := middleware.CurrentSession(c)

	attachment, file, err := openAttachment(c)
	if err != nil {
		return nil, err
	}
	if file != nil {
		defer func() { _ = file.Close() }()
	}
	return h.submissions.SubmitBugReport(c.Request.Context(), session, form, attachment)
}

func (h *BugReportHandler) pageData(c *gin.Context) pageData {
	session, _ := middleware.CurrentSession(c)
	data := newPageData(c, session, contextutils.T(contextutils.MsgBugReportTitle, middleware.RequestLocale(c)))
	data.MaxImageBytes = h.config.Uploads.MaxBytes
	return data
}

// Page renders an empty bug report form
func (h *BugReportHandler) Page(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "bug_report_page")
	defer observability.FinishSpan(span, nil)

	data := h.pageData(c)
	data.Form = models.BugReportForm{}
	c.HTML(http.StatusOK, pageBugReport, data)
}

// PageSubmit handles the form post. Success redirects back to a cleared form
// with the confirmation dialog queued. Failure re-renders with the input kept.
func (h *BugReportHandler) PageSubmit(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "bug_report_submit")
	defer observability.FinishSpan(span, nil)

	form := parseBugReportForm(c)
	report, err := h.submit(c, form)
	if err != nil {
		span.SetAttributes(attribute.String("error.code", string(contextutils.GetErrorCode(err))))
		data := h.pageData(c)
		data.Form = form
		data.Error = submissionPageError(err, data.Locale, contextutils.MsgBugReportInsertFail)
		c.HTML(middleware.HTTPStatusFor(contextutils.GetErrorCode(err)), pageBugReport, data)
		return
	}

	span.SetAttributes(attribute.Int("bug_report.id", report.ID))
	locale := middleware.RequestLocale(c)
	if err := addFlash(c, flashDialog, contextutils.T(contextutils.MsgBugReportSubmitted, locale)); err != nil {
		h.logger.Warn(c.Request.Context(), "Failed to queue confirmation", map[string]interface{}{"error": err.Error()})
	}
	c.Redirect(http.StatusSeeOther, config.BugReportRoute)
}

// Create handles POST /v1/bug-reports
func (h *BugReportHandler) Create(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "create_bug_report")
	defer observability.FinishSpan(span, nil)

	report, err := h.submit(c, parseBugReportForm(c))
	if err != nil {
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("bug_report.id", report.ID))
	c.JSON(http.StatusCreated, gin.H{"bug_report": report})
}
