package contextutils

import (
	"net/url"
	"strings"
)

// MaskSecret masks a secret (session key, SMTP password, redis password) for logging.
// Only the first and last 4 characters survive.
func MaskSecret(secret string) string {
	if secret == "" {
		return "[EMPTY]"
	}

	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}

	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

// MaskDatabaseURL hides the password in a connection URL. Strings that do not
// parse as URLs, such as sqlite file paths, are returned unchanged.
func MaskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
