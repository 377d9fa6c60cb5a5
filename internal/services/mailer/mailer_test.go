package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// MockMailer implements Mailer for testing
type MockMailer struct {
	SendEmailCalled bool
	LastTemplate    string
	IsEnabledResult bool
}

func (m *MockMailer) SendEmail(_ context.Context, _, _, templateName string, _ map[string]interface{}) error {
	m.SendEmailCalled = true
	m.LastTemplate = templateName
	return nil
}

func (m *MockMailer) IsEnabled() bool {
	return m.IsEnabledResult
}

func TestMailerInterface_Implementation(t *testing.T) {
	var _ Mailer = (*MockMailer)(nil)

	mock := &MockMailer{IsEnabledResult: true}

	err := mock.SendEmail(context.Background(), "owner@devlense.test", "새 질문", "new_question", map[string]interface{}{})
	assert.NoError(t, err)
	assert.True(t, mock.SendEmailCalled)
	assert.Equal(t, "new_question", mock.LastTemplate)
	assert.True(t, mock.IsEnabled())
}
