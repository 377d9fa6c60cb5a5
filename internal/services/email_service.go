// Package services holds the DevLense business logic: identity, submissions,
// the Q&A list, owner notifications and rate limiting.
package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"devlense/internal/config"
	"devlense/internal/observability"
	"devlense/internal/services/mailer"
	contextutils "devlense/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/mail.v2"
)

// Template names understood by EmailService
const (
	TemplateNewBugReport = "new_bug_report"
	TemplateNewQuestion  = "new_question"
	TemplateTestEmail    = "test_email"
)

// EmailService sends e-mail over SMTP using gomail
type EmailService struct {
	cfg    *config.Config
	logger *observability.Logger
	dialer *mail.Dialer
}

var _ mailer.Mailer = (*EmailService)(nil)

// NewEmailService creates a new EmailService instance
func NewEmailService(cfg *config.Config, logger *observability.Logger) *EmailService {
	var dialer *mail.Dialer
	if cfg.Email.Enabled && cfg.Email.SMTP.Host != "" {
		dialer = mail.NewDialer(
			cfg.Email.SMTP.Host,
			cfg.Email.SMTP.Port,
			cfg.Email.SMTP.Username,
			cfg.Email.SMTP.Password,
		)
	}

	return &EmailService{
		cfg:    cfg,
		logger: logger,
		dialer: dialer,
	}
}

// SendEmail sends a generic email with the given parameters
func (e *EmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) (err error) {
	ctx, span := observability.TraceNotificationFunction(ctx, "send_email",
		attribute.String("email.to", to),
		attribute.String("email.subject", subject),
		attribute.String("email.template", templateName),
	)
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() {
		e.logger.Info(ctx, "Email disabled, skipping email send", map[string]interface{}{
			"to":       to,
			"template": templateName,
		})
		return nil
	}

	if e.dialer == nil {
		return contextutils.ErrorWithContextf("email service not properly configured")
	}

	content, err := renderEmail(templateName, data)
	if err != nil {
		return contextutils.WrapError(err, "failed to generate email content")
	}

	m := mail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", e.cfg.Email.SMTP.FromName, e.cfg.Email.SMTP.FromAddress))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", content)

	if err = e.dialer.DialAndSend(m); err != nil {
		e.logger.Error(ctx, "Failed to send email", err, map[string]interface{}{
			"to":       to,
			"template": templateName,
			"subject":  subject,
		})
		return contextutils.WrapError(err, "failed to send email")
	}

	e.logger.Info(ctx, "Email sent successfully", map[string]interface{}{
		"to":       to,
		"template": templateName,
		"subject":  subject,
	})
	return nil
}

// IsEnabled returns whether email functionality is enabled
func (e *EmailService) IsEnabled() bool {
	return e.cfg.Email.Enabled && e.cfg.Email.SMTP.Host != ""
}

const emailLayout = `<!DOCTYPE html>
<html lang="ko">
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: -apple-system, "Apple SD Gothic Neo", sans-serif; line-height: 1.6; color: #222; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .label { color: #666; font-size: 13px; }
        .body { background: #f6f6f6; padding: 16px; border-radius: 6px; white-space: pre-wrap; }
    </style>
</head>
<body><div class="container">{{template "content" .}}</div></body>
</html>`

var emailTemplates = map[string]string{
	TemplateNewBugReport: `{{define "content"}}
<h2>새 오류 제보: {{.Title}}</h2>
<p class="label">작성자 {{.Username}} (#{{.UserID}}){{if .IsSecret}} · 비공개{{end}}</p>
<div class="body">{{.Description}}</div>
{{if .ImageURL}}<p><a href="{{.ImageURL}}">첨부 이미지 보기</a></p>{{end}}
{{end}}`,
	TemplateNewQuestion: `{{define "content"}}
<h2>새 질문이 등록되었습니다</h2>
<p class="label">작성자 {{.Username}} (#{{.UserID}})</p>
<div class="body">{{.Question}}</div>
<p class="label">답변: adm qna answer {{.QuestionID}} "..."</p>
{{end}}`,
	TemplateTestEmail: `{{define "content"}}
<h2>Test email</h2>
<p>SMTP settings for {{.Host}} work.</p>
{{end}}`,
}

// renderEmail executes the named template inside the shared layout
func renderEmail(templateName string, data map[string]interface{}) (string, error) {
	content, ok := emailTemplates[templateName]
	if !ok {
		return "", contextutils.ErrorWithContextf("unknown template: %s", templateName)
	}

	tmpl, err := template.New("layout").Parse(emailLayout)
	if err == nil {
		_, err = tmpl.Parse(content)
	}
	if err != nil {
		return "", contextutils.WrapError(err, "failed to parse template")
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", contextutils.WrapError(err, "failed to execute template")
	}
	return buf.String(), nil
}
