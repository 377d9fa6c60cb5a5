package contextutils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		expected string
	}{
		{
			name: "error with details",
			appError: &AppError{
				Code:     ErrorCodeInsertFailed,
				Severity: SeverityError,
				Message:  "Insert failed",
				Details:  "duplicate key value violates unique constraint",
			},
			expected: "INSERT_FAILED: Insert failed - duplicate key value violates unique constraint",
		},
		{
			name: "error without details",
			appError: &AppError{
				Code:     ErrorCodeAttachmentTooLarge,
				Severity: SeverityWarn,
				Message:  "Attachment too large",
			},
			expected: "ATTACHMENT_TOO_LARGE: Attachment too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("bucket bug-images: access denied")
	appErr := &AppError{
		Code:     ErrorCodeUploadFailed,
		Severity: SeverityError,
		Message:  "Upload failed",
		Cause:    cause,
	}

	assert.Equal(t, cause, appErr.Unwrap())
}

func TestAppError_Is(t *testing.T) {
	err1 := &AppError{Code: ErrorCodeSubmissionInFlight}
	err2 := &AppError{Code: ErrorCodeSubmissionInFlight}
	err3 := &AppError{Code: ErrorCodeFetchFailed}

	assert.True(t, err1.Is(err2))
	assert.False(t, err1.Is(err3))
	assert.False(t, err1.Is(errors.New("regular error")))
}

func TestNewAppError(t *testing.T) {
	err := NewAppError(ErrorCodeInvalidInput, SeverityWarn, "Invalid input", "Field required")

	assert.Equal(t, ErrorCodeInvalidInput, err.Code)
	assert.Equal(t, SeverityWarn, err.Severity)
	assert.Equal(t, "Invalid input", err.Message)
	assert.Equal(t, "Field required", err.Details)
	assert.Nil(t, err.Cause)
}

func TestNewAppErrorWithCause(t *testing.T) {
	cause := errors.New("database error")
	err := NewAppErrorWithCause(ErrorCodeDatabaseConnection, SeverityError, "DB connection failed", "Connection timeout", cause)

	assert.Equal(t, ErrorCodeDatabaseConnection, err.Code)
	assert.Equal(t, SeverityError, err.Severity)
	assert.Equal(t, "DB connection failed", err.Message)
	assert.Equal(t, "Connection timeout", err.Details)
	assert.Equal(t, cause, err.Cause)
}

func TestWrapError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		result := WrapError(nil, "context")
		assert.Nil(t, result)
	})

	t.Run("AppError wrapping", func(t *testing.T) {
		original := &AppError{
			Code:     ErrorCodeRecordNotFound,
			Severity: SeverityInfo,
			Message:  "Record not found",
		}

		wrapped := WrapError(original, "additional context")

		appErr, ok := wrapped.(*AppError)
		assert.True(t, ok)
		assert.Equal(t, ErrorCodeRecordNotFound, appErr.Code)
		assert.Equal(t, SeverityInfo, appErr.Severity)
		assert.Equal(t, "additional context", appErr.Message)
		assert.True(t, errors.Is(wrapped, ErrRecordNotFound))
		assert.Equal(t, original, appErr.Cause)
	})

	t.Run("regular error wrapping", func(t *testing.T) {
		original := errors.New("database error")
		wrapped := WrapError(original, "context")

		appErr, ok := wrapped.(*AppError)
		assert.True(t, ok)
		assert.Equal(t, ErrorCodeInternalError, appErr.Code)
		assert.Equal(t, SeverityError, appErr.Severity)
		assert.Equal(t, "context", appErr.Message)
		assert.Equal(t, "database error", appErr.Details)
		assert.Equal(t, original, appErr.Cause)
	})
}

func TestWrapErrorf(t *testing.T) {
	original := errors.New("database error")
	wrapped := WrapErrorf(original, "failed to process %s", "user123")

	appErr, ok := wrapped.(*AppError)
	assert.True(t, ok)
	assert.Equal(t, ErrorCodeInternalError, appErr.Code)
	assert.Equal(t, "failed to process user123", appErr.Message)
	assert.Equal(t, "database error", appErr.Details)
}

func TestWrapErrorf_PreservesCodeThroughPercentW(t *testing.T) {
	original := NewAppError(ErrorCodeInsertFailed, SeverityError, "insert failed", "duplicate key")
	wrapped := WrapErrorf(original, "bug report: %w", original)

	assert.Equal(t, ErrorCodeInsertFailed, GetErrorCode(wrapped))
	assert.True(t, errors.Is(wrapped, ErrInsertFailed))

	var appErr *AppError
	assert.True(t, AsError(wrapped, &appErr))
	assert.Equal(t, "duplicate key", appErr.Details)
}

func TestErrorWithContextf(t *testing.T) {
	err := ErrorWithContextf("user not found: %s", "john")

	appErr, ok := err.(*AppError)
	assert.True(t, ok)
	assert.Equal(t, ErrorCodeInternalError, appErr.Code)
	assert.Equal(t, SeverityError, appErr.Severity)
	assert.Equal(t, "user not found: john", appErr.Message)
}

func TestIsError(t *testing.T) {
	err := &AppError{Code: ErrorCodeInvalidInput}
	target := &AppError{Code: ErrorCodeInvalidInput}

	assert.True(t, IsError(err, target))
	assert.False(t, IsError(err, &AppError{Code: ErrorCodeRecordNotFound}))
	assert.False(t, IsError(errors.New("regular error"), target))
	assert.True(t, IsError(WrapError(err, "outer"), target))
}

func TestAsError(t *testing.T) {
	t.Run("successful conversion", func(t *testing.T) {
		original := &AppError{Code: ErrorCodeInvalidInput}
		var target *AppError

		assert.True(t, AsError(original, &target))
		assert.Equal(t, ErrorCodeInvalidInput, target.Code)
	})

	t.Run("failed conversion", func(t *testing.T) {
		original := errors.New("regular error")
		var target *AppError

		assert.False(t, AsError(original, &target))
		assert.Nil(t, target)
	})
}

func TestGetErrorCode(t *testing.T) {
	appErr := &AppError{Code: ErrorCodeInvalidInput}
	regularErr := errors.New("regular error")

	assert.Equal(t, ErrorCodeInvalidInput, GetErrorCode(appErr))
	assert.Equal(t, ErrorCodeInternalError, GetErrorCode(regularErr))
}

func TestGetErrorSeverity(t *testing.T) {
	appErr := &AppError{Severity: SeverityWarn}
	regularErr := errors.New("regular error")

	assert.Equal(t, SeverityWarn, GetErrorSeverity(appErr))
	assert.Equal(t, SeverityError, GetErrorSeverity(regularErr))
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"attachment too large", ErrAttachmentTooLarge, true},
		{"attachment type", ErrAttachmentType, true},
		{"insert failure with backend detail", NewAppError(ErrorCodeInsertFailed, SeverityError, "insert", "duplicate key"), true},
		{"wrapped upload failure", WrapError(ErrUploadFailed, "upload"), true},
		{"database connection", ErrDatabaseConnection, false},
		{"regular error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsUserFacing(tt.err))
		})
	}
}

func TestGetErrorLocalizedMessage(t *testing.T) {
	t.Run("AppError", func(t *testing.T) {
		err := &AppError{
			Code:     ErrorCodeInvalidInput,
			Severity: SeverityWarn,
			Message:  "Invalid input",
			Details:  "Field required",
		}

		msg := GetErrorLocalizedMessage(err, "en")
		assert.Equal(t, "Invalid input: Field required", msg)

		msg = GetErrorLocalizedMessage(err, "ko-KR")
		assert.Equal(t, "잘못된 입력입니다: Field required", msg)
	})

	t.Run("regular error", func(t *testing.T) {
		err := errors.New("regular error")
		msg := GetErrorLocalizedMessage(err, "en")
		assert.Equal(t, "Internal server error", msg)
	})
}

func TestAppError_ToJSON(t *testing.T) {
	err := &AppError{
		Code:     ErrorCodeInvalidInput,
		Severity: SeverityWarn,
		Message:  "Invalid input",
		Details:  "Field required",
		Cause:    errors.New("underlying error"),
	}

	json := err.ToJSON()

	assert.Equal(t, "INVALID_INPUT", json["code"])
	assert.Equal(t, "Invalid input", json["message"])
	assert.Equal(t, "warn", json["severity"])
	assert.Equal(t, "Field required", json["details"])
	assert.NotContains(t, json, "cause") // only error/fatal severities expose the cause
}

func TestAppError_ToJSONWithLocale(t *testing.T) {
	err := &AppError{
		Code:     ErrorCodeInvalidInput,
		Severity: SeverityWarn,
		Message:  "Invalid input",
		Details:  "Field required",
	}

	json := err.ToJSONWithLocale("ko")

	assert.Equal(t, "INVALID_INPUT", json["code"])
	assert.Equal(t, "warn", json["severity"])
	assert.Equal(t, "잘못된 입력입니다: Field required", json["message"])
	assert.Equal(t, json["message"], json["error"])
}

func TestParseLocale(t *testing.T) {
	tests := []struct {
		input    string
		expected Locale
	}{
		{"en", LocaleEnglish},
		{"en-US", LocaleEnglish},
		{"EN", LocaleEnglish},
		{"ko", LocaleKorean},
		{"ko-KR,ko;q=0.9,en-US;q=0.8", LocaleKorean},
		{"en-GB;q=0.7", LocaleEnglish},
		{"", DefaultLocale},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLocale(tt.input))
		})
	}
}
