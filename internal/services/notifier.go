package services

import (
	"context"
	"time"

	"devlense/internal/models"
	"devlense/internal/observability"
	"devlense/internal/services/mailer"
)

const notifyTimeout = 30 * time.Second

// SubmissionNotifier tells the site owner about new submissions. Delivery is
// best effort: failures are logged and never reach the submitter.
type SubmissionNotifier interface {
	BugReportCreated(ctx context.Context, session *models.Session, report *models.BugReport)
	QuestionCreated(ctx context.Context, session *models.Session, question *models.Question)
}

// NoopNotifier drops every notification
type NoopNotifier struct{}

func (NoopNotifier) BugReportCreated(context.Context, *models.Session, *models.BugReport) {}
func (NoopNotifier) QuestionCreated(context.Context, *models.Session, *models.Question)   {}

// EmailNotifier mails the owner address in the background
type EmailNotifier struct {
	mailer  mailer.Mailer
	to      string
	logger  *observability.Logger
	timeout time.Duration
	async   bool
}

// NewSubmissionNotifier returns a NoopNotifier when there is no owner address or
// mail is disabled.
func NewSubmissionNotifier(m mailer.Mailer, ownerAddress string, logger *observability.Logger) SubmissionNotifier {
	if m == nil || ownerAddress == "" || !m.IsEnabled() {
		return NoopNotifier{}
	}
	return &EmailNotifier{mailer: m, to: ownerAddress, logger: logger, timeout: notifyTimeout, async: true}
}

func (n *EmailNotifier) BugReportCreated(ctx context.Context, session *models.Session, report *models.BugReport) {
	data := map[string]interface{}{
		"Title":       report.Title,
		"Description": report.Description,
		"IsSecret":    report.IsSecret,
		"ImageURL":    report.ImageURL.String,
		"UserID":      report.UserID,
		"Username":    session.Username,
	}
	n.send(ctx, "[DevLense] 새 오류 제보: "+report.Title, TemplateNewBugReport, data)
}

func (n *EmailNotifier) QuestionCreated(ctx context.Context, session *models.Session, question *models.Question) {
	data := map[string]interface{}{
		"QuestionID": question.ID,
		"Question":   question.Question,
		"UserID":     question.UserID,
		"Username":   session.Username,
	}
	n.send(ctx, "[DevLense] 새 질문", TemplateNewQuestion, data)
}

func (n *EmailNotifier) send(ctx context.Context, subject, templateName string, data map[string]interface{}) {
	// The request may finish before the mail does.
	ctx = context.WithoutCancel(ctx)
	deliver := func() {
		sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()
		if err := n.mailer.SendEmail(sendCtx, n.to, subject, templateName, data); err != nil {
			n.logger.Warn(sendCtx, "Owner notification failed", map[string]interface{}{
				"template": templateName,
				"error":    err.Error(),
			})
		}
	}
	if !n.async {
		deliver()
		return
	}
	go deliver()
}
