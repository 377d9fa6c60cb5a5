package services

import (
	"context"
	"sync"

	"devlense/internal/config"
	"devlense/internal/observability"
	"devlense/internal/services/mailer"
)

// SentEmail is a message captured by TestEmailService
type SentEmail struct {
	To       string
	Subject  string
	Template string
	Data     map[string]interface{}
}

// TestEmailService implements the Mailer interface for test mode. It renders
// templates like the real service but only logs and records the result.
type TestEmailService struct {
	cfg    *config.Config
	logger *observability.Logger

	mu   sync.Mutex
	sent []SentEmail
}

var _ mailer.Mailer = (*TestEmailService)(nil)

// NewTestEmailService creates a new TestEmailService instance
func NewTestEmailService(cfg *config.Config, logger *observability.Logger) *TestEmailService {
	return &TestEmailService{cfg: cfg, logger: logger}
}

func (e *TestEmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) error {
	if _, err := renderEmail(templateName, data); err != nil {
		return err
	}

	e.mu.Lock()
	e.sent = append(e.sent, SentEmail{To: to, Subject: subject, Template: templateName, Data: data})
	e.mu.Unlock()

	e.logger.Info(ctx, "TEST MODE: Would send email", map[string]interface{}{
		"to":       to,
		"subject":  subject,
		"template": templateName,
	})
	return nil
}

// IsEnabled is always true so notification paths run in tests
func (e *TestEmailService) IsEnabled() bool {
	return true
}

// Sent returns a copy of every captured message
func (e *TestEmailService) Sent() []SentEmail {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]SentEmail(nil), e.sent...)
}
