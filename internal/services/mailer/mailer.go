// Package mailer defines the e-mail boundary used for owner notifications.
package mailer

import "context"

// Mailer sends templated e-mail
type Mailer interface {
	// SendEmail renders templateName with data and sends it to a single recipient
	SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) error

	// IsEnabled returns whether email functionality is enabled
	IsEnabled() bool
}
