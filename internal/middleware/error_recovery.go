package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"devlense/internal/observability"
	contextutils "devlense/internal/utils"

	"github.com/gin-gonic/gin"
)

// LocaleKey is the gin context key holding the request's contextutils.Locale
const LocaleKey = "locale"

// ErrorRecoveryMiddleware turns panics into a 500. JSON routes get the
// standard AppError payload; pages get a plain message.
func ErrorRecoveryMiddleware(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				stackTrace := string(debug.Stack())

				var panicErr error
				if e, ok := rec.(error); ok {
					panicErr = e
				} else {
					panicErr = fmt.Errorf("panic: %v", rec)
				}

				logger.Error(c.Request.Context(), "Panic recovered", panicErr, map[string]interface{}{
					"method":      c.Request.Method,
					"path":        c.Request.URL.Path,
					"stack_trace": stackTrace,
				})

				appErr := contextutils.NewAppErrorWithCause(
					contextutils.ErrorCodeInternalError,
					contextutils.SeverityFatal,
					"Internal server error",
					"A panic occurred while processing the request",
					panicErr,
				)
				if gin.Mode() == gin.DebugMode {
					appErr.Details = fmt.Sprintf("%s\nStack trace: %s", appErr.Details, stackTrace)
				}

				if isAPIPath(c.Request.URL.Path) {
					HandleAppError(c, appErr)
				} else {
					c.String(http.StatusInternalServerError, contextutils.GetLocalizedMessage(contextutils.ErrorCodeInternalError, RequestLocale(c)))
				}
				c.Abort()
			}
		}()

		c.Next()
	}
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/v1/")
}

// LocaleMiddleware picks the response language from ?lang= or Accept-Language,
// falling back to defaultLocale for anything without a message table.
func LocaleMiddleware(defaultLocale string) gin.HandlerFunc {
	fallback := contextutils.ParseLocale(defaultLocale)
	return func(c *gin.Context) {
		locale := fallback
		for _, candidate := range []string{c.Query("lang"), c.GetHeader("Accept-Language")} {
			if candidate == "" {
				continue
			}
			if l := contextutils.ParseLocale(candidate); isSupportedLocale(l) {
				locale = l
				break
			}
		}
		c.Set(LocaleKey, locale)
		c.Next()
	}
}

func isSupportedLocale(l contextutils.Locale) bool {
	return l == contextutils.LocaleKorean || l == contextutils.LocaleEnglish
}

// RequestLocale returns the locale chosen by LocaleMiddleware, or the default
func RequestLocale(c *gin.Context) contextutils.Locale {
	if v, ok := c.Get(LocaleKey); ok {
		if l, ok := v.(contextutils.Locale); ok {
			return l
		}
	}
	return contextutils.DefaultLocale
}

// HandleAppError handles any AppError and sends appropriate HTTP response
func HandleAppError(c *gin.Context, err error) {
	var appErr *contextutils.AppError
	if errors.As(err, &appErr) {
		StandardizeAppError(c, appErr)
		return
	}
	StandardizeAppError(c, contextutils.NewAppErrorWithCause(
		contextutils.ErrorCodeInternalError,
		contextutils.SeverityError,
		"Internal server error",
		"",
		err,
	))
}

// StandardizeAppError sends a structured error response with the localized
// user message in message and error.
func StandardizeAppError(c *gin.Context, err *contextutils.AppError) {
	c.JSON(HTTPStatusFor(err.Code), err.ToJSONWithLocale(string(RequestLocale(c))))
}

// HTTPStatusFor maps AppError codes to HTTP status codes
func HTTPStatusFor(code contextutils.ErrorCode) int {
	switch code {
	// 4xx Client Errors
	case contextutils.ErrorCodeInvalidInput, contextutils.ErrorCodeValidationFailed:
		return http.StatusBadRequest

	case contextutils.ErrorCodeAttachmentTooLarge:
		return http.StatusRequestEntityTooLarge

	case contextutils.ErrorCodeAttachmentType:
		return http.StatusUnsupportedMediaType

	case contextutils.ErrorCodeUnauthorized, contextutils.ErrorCodeSessionExpired,
		contextutils.ErrorCodeInvalidCredentials:
		return http.StatusUnauthorized

	case contextutils.ErrorCodeForbidden:
		return http.StatusForbidden

	case contextutils.ErrorCodeRecordNotFound:
		return http.StatusNotFound

	case contextutils.ErrorCodeRecordExists, contextutils.ErrorCodeConflict,
		contextutils.ErrorCodeSubmissionInFlight:
		return http.StatusConflict

	case contextutils.ErrorCodeRateLimit:
		return http.StatusTooManyRequests

	case contextutils.ErrorCodeTimeout:
		return http.StatusRequestTimeout

	// 5xx Server Errors
	case contextutils.ErrorCodeUploadFailed:
		return http.StatusBadGateway

	case contextutils.ErrorCodeServiceUnavailable, contextutils.ErrorCodeDatabaseConnection:
		return http.StatusServiceUnavailable

	case contextutils.ErrorCodeInsertFailed, contextutils.ErrorCodeFetchFailed,
		contextutils.ErrorCodeDatabaseQuery, contextutils.ErrorCodeInternalError:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}
