package config

import "time"

// Timeout constants
const (
	// HTTP timeouts
	DefaultHTTPTimeout  = 60 * time.Second
	ServerReadTimeout   = 30 * time.Second
	ShutdownGracePeriod = 30 * time.Second
	TestTimeout         = 100 * time.Millisecond

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute

	// Session timeouts
	SessionMaxAge = 7 * 24 * time.Hour // 7 days

	// Keep-alive interval for the auth event stream
	AuthEventHeartbeat = 25 * time.Second

	// How often expired in-memory sessions and idle limiter buckets are swept
	JanitorInterval = 5 * time.Minute
)

// Server defaults
const (
	DefaultServerPort     = "8080"
	DefaultMaxOpenConns   = 25
	DefaultMaxIdleConns   = 5
	DefaultRateLimitBurst = 5
)

// Attachment constants
const (
	// MaxAttachmentBytes is the largest accepted image (5 MB)
	MaxAttachmentBytes int64 = 5 * 1024 * 1024

	DefaultAttachmentBucket = "bug-images"
	DefaultAttachmentPrefix = "bug-reports/"

	// StorageRoute is where the fs object store is served from
	StorageRoute = "/storage"
)

// Session configuration constants
const (
	SessionPath     = "/"
	SessionHTTPOnly = true

	// Session name
	SessionName = "devlense-session"
)

// Page routes
const (
	LoginRoute     = "/login"
	BugReportRoute = "/bug-report"
	QnARoute       = "/qna"
)

// Security configuration constants
const (
	// Content Security Policy. Attachments may be served from an external bucket.
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; img-src 'self' data: https:; connect-src 'self';"
)
