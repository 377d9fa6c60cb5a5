package middleware

import (
	"errors"
	"net/http"

	contextutils "devlense/internal/utils"

	"github.com/gin-gonic/gin"
)

// LimitRequestBody caps how much of a request body the handlers may read.
// Reads past limit fail with *http.MaxBytesError and the connection is closed
// once the response is written.
func LimitRequestBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// BodyReadError turns a failed body read into an AppError. A body over the
// request cap reports as an oversized attachment.
func BodyReadError(err error, message string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return contextutils.WrapErrorf(contextutils.ErrAttachmentTooLarge, "request body exceeds %d bytes", tooLarge.Limit)
	}
	return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn, message, "", err)
}
