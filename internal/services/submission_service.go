package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"

	"devlense/internal/config"
	"devlense/internal/models"
	"devlense/internal/observability"
	"devlense/internal/storage"
	contextutils "devlense/internal/utils"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel/attribute"
)

// QuestionSubmission is the outcome of a successful question submit. Questions is
// the refreshed list; when the refresh failed it is the last good list and
// ListErr says why.
type QuestionSubmission struct {
	Question  *models.Question
	Questions []models.Question
	ListErr   error
}

// SubmissionServiceInterface runs the authenticated form submissions
type SubmissionServiceInterface interface {
	SubmitBugReport(ctx context.Context, session *models.Session, form models.BugReportForm, attachment *models.Attachment) (*models.BugReport, error)
	SubmitQuestion(ctx context.Context, session *models.Session, form models.QuestionForm) (*QuestionSubmission, error)
	AskQuestion(ctx context.Context, session *models.Session, form models.QuestionForm) (*models.Question, error)
}

// SubmissionService validates, uploads and inserts. There are no retries at
// any step; each call inserts at most one row.
type SubmissionService struct {
	reports  BugReportServiceInterface
	qna      QnAServiceInterface
	view     *QnAListView
	store    storage.ObjectStore
	paths    *storage.PathGenerator
	bucket   string
	policy   AttachmentPolicy
	inflight *InFlightGuard
	limiter  SubmissionLimiter
	notifier SubmissionNotifier
	logger   *observability.Logger
}

// SubmissionDeps collects the collaborators of SubmissionService
type SubmissionDeps struct {
	Reports  BugReportServiceInterface
	QnA      QnAServiceInterface
	View     *QnAListView
	Store    storage.ObjectStore
	Limiter  SubmissionLimiter
	Notifier SubmissionNotifier
}

// NewSubmissionService creates a new SubmissionService instance
func NewSubmissionService(cfg *config.Config, deps SubmissionDeps, logger *observability.Logger) *SubmissionService {
	if logger == nil {
		panic("logger cannot be nil")
	}
	if deps.Reports == nil || deps.QnA == nil || deps.Store == nil {
		panic("submission service needs bug report, qna and object store dependencies")
	}

	s := &SubmissionService{
		reports:  deps.Reports,
		qna:      deps.QnA,
		view:     deps.View,
		store:    deps.Store,
		paths:    storage.NewPathGenerator(cfg.Storage.PathPrefix),
		bucket:   cfg.Storage.Bucket,
		policy:   NewAttachmentPolicy(cfg.Uploads.MaxBytes),
		inflight: NewInFlightGuard(),
		limiter:  deps.Limiter,
		notifier: deps.Notifier,
		logger:   logger,
	}
	if s.view == nil {
		s.view = NewQnAListView(deps.QnA, logger)
	}
	if s.limiter == nil {
		s.limiter = NoopLimiter{}
	}
	if s.notifier == nil {
		s.notifier = NoopNotifier{}
	}
	return s
}

// InFlight exposes the guard so pages can render a busy state
func (s *SubmissionService) InFlight() *InFlightGuard {
	return s.inflight
}

// QnAView returns the per-session question list view
func (s *SubmissionService) QnAView() *QnAListView {
	return s.view
}

// admit takes a rate limiter token and the in-flight slot. Callers validate
// first so a rejected form costs no token and makes no network call.
func (s *SubmissionService) admit(ctx context.Context, session *models.Session, kind models.SubmissionKind) (func(), error) {
	allowed, err := s.limiter.Allow(ctx, fmt.Sprintf("%d:%s", session.UserID, kind))
	if err != nil {
		// The limiter backend being down should not block members.
		s.logger.Warn(ctx, "Rate limiter unavailable, allowing submission", map[string]interface{}{
			"user_id": session.UserID,
			"error":   err.Error(),
		})
		allowed = true
	}
	if !allowed {
		return nil, contextutils.WrapErrorf(contextutils.ErrRateLimit, "too many %s submissions", kind)
	}

	release, ok := s.inflight.TryAcquire(session.UserID, kind)
	if !ok {
		return nil, contextutils.WrapErrorf(contextutils.ErrSubmissionInFlight, "a %s submission is already running", kind)
	}
	return release, nil
}

func (s *SubmissionService) record(ctx context.Context, kind models.SubmissionKind, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(contextutils.GetErrorCode(err))
	}
	observability.GetInstruments().RecordSubmission(ctx, string(kind), outcome)
}

// SubmitBugReport uploads the optional attachment and inserts one bug report.
// Nothing is uploaded when validation fails and nothing is inserted when the
// upload fails.
func (s *SubmissionService) SubmitBugReport(ctx context.Context, session *models.Session, form models.BugReportForm, attachment *models.Attachment) (result0 *models.BugReport, err error) {
	ctx, span := observability.TraceSubmissionFunction(ctx, "submit_bug_report",
		observability.AttributeSubmissionKind(string(models.SubmissionBugReport)),
		attribute.Bool("bug_report.has_attachment", attachment != nil),
	)
	defer observability.FinishSpan(span, &err)
	defer func() { s.record(ctx, models.SubmissionBugReport, err) }()

	if session == nil {
		return nil, contextutils.WrapError(contextutils.ErrUnauthorized, "no session")
	}
	span.SetAttributes(observability.AttributeUserID(session.UserID))

	if err = contextutils.ValidateStruct(form); err != nil {
		return nil, err
	}
	if err = s.policy.Validate(ctx, attachment); err != nil {
		return nil, err
	}

	release, err := s.admit(ctx, session, models.SubmissionBugReport)
	if err != nil {
		return nil, err
	}
	defer release()

	report := &models.BugReport{
		Title:       form.Title,
		Description: form.Description,
		UserID:      session.UserID,
		IsSecret:    form.IsSecret,
	}

	if attachment != nil {
		var imageURL string
		imageURL, err = s.upload(ctx, attachment)
		if err != nil {
			return nil, err
		}
		report.ImageURL = sql.NullString{String: imageURL, Valid: true}
	}

	// A client that goes away does not abort the insert.
	created, err := s.reports.Create(context.WithoutCancel(ctx), report)
	if err != nil {
		s.logger.Error(ctx, "Bug report insert failed", err, map[string]interface{}{"user_id": session.UserID})
		return nil, err
	}

	s.notifier.BugReportCreated(ctx, session, created)
	return created, nil
}

// upload reads the body within the size limit, then stores it under a fresh path.
func (s *SubmissionService) upload(ctx context.Context, attachment *models.Attachment) (string, error) {
	if attachment.Body == nil {
		return "", contextutils.WrapError(contextutils.ErrInvalidInput, "attachment has no body")
	}

	data, err := io.ReadAll(io.LimitReader(attachment.Body, s.policy.MaxBytes+1))
	if err != nil {
		return "", contextutils.WrapError(err, "failed to read attachment")
	}
	if int64(len(data)) > s.policy.MaxBytes {
		return "", contextutils.WrapErrorf(contextutils.ErrAttachmentTooLarge, "attachment body exceeds %d bytes", s.policy.MaxBytes)
	}

	// The extension comes from the filename; the sniffed type fills in when it has none.
	extType := attachment.ContentType
	if sniffed := mimetype.Detect(data); IsImageType(sniffed.String()) {
		extType = sniffed.String()
	}
	path := s.paths.ObjectPath(attachment.Filename, extType)

	url, err := s.store.Upload(ctx, s.bucket, path, bytes.NewReader(data), int64(len(data)), attachment.ContentType)
	if err != nil {
		s.logger.Error(ctx, "Attachment upload failed", err, map[string]interface{}{
			"bucket": s.bucket,
			"path":   path,
		})
		if contextutils.GetErrorCode(err) != contextutils.ErrorCodeUploadFailed {
			err = contextutils.NewAppErrorWithCause(contextutils.ErrorCodeUploadFailed, contextutils.SeverityError,
				"failed to upload attachment", err.Error(), err)
		}
		return "", err
	}

	s.logger.Info(ctx, "Attachment uploaded", map[string]interface{}{
		"bucket": s.bucket,
		"path":   path,
		"bytes":  len(data),
	})
	return url, nil
}

// SubmitQuestion inserts one question and reloads the list newest-first
func (s *SubmissionService) SubmitQuestion(ctx context.Context, session *models.Session, form models.QuestionForm) (*QuestionSubmission, error) {
	created, err := s.AskQuestion(ctx, session, form)
	if err != nil {
		return nil, err
	}

	questions, listErr := s.view.Load(ctx, session.ID)
	return &QuestionSubmission{Question: created, Questions: questions, ListErr: listErr}, nil
}

// AskQuestion inserts one question without reloading the list. The page form
// uses it because its redirect reloads the list anyway.
func (s *SubmissionService) AskQuestion(ctx context.Context, session *models.Session, form models.QuestionForm) (result0 *models.Question, err error) {
	ctx, span := observability.TraceSubmissionFunction(ctx, "ask_question",
		observability.AttributeSubmissionKind(string(models.SubmissionQuestion)),
	)
	defer observability.FinishSpan(span, &err)
	defer func() { s.record(ctx, models.SubmissionQuestion, err) }()

	if session == nil {
		return nil, contextutils.WrapError(contextutils.ErrUnauthorized, "no session")
	}
	span.SetAttributes(observability.AttributeUserID(session.UserID))

	if err = contextutils.ValidateStruct(form); err != nil {
		return nil, err
	}

	release, err := s.admit(ctx, session, models.SubmissionQuestion)
	if err != nil {
		return nil, err
	}
	defer release()

	created, err := s.qna.Create(context.WithoutCancel(ctx), &models.Question{
		Question: form.Question,
		UserID:   session.UserID,
	})
	if err != nil {
		s.logger.Error(ctx, "Question insert failed", err, map[string]interface{}{"user_id": session.UserID})
		return nil, err
	}

	s.notifier.QuestionCreated(ctx, session, created)
	return created, nil
}
