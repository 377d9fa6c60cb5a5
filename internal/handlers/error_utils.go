package handlers

import (
	"fmt"

	"devlense/internal/middleware"
	contextutils "devlense/internal/utils"

	"github.com/gin-gonic/gin"
)

// HandleAppError sends err as the standard JSON error payload
func HandleAppError(c *gin.Context, err error) {
	middleware.HandleAppError(c, err)
}

// HandleValidationError handles input validation errors consistently
func HandleValidationError(c *gin.Context, field string, value interface{}, reason string) {
	HandleAppError(c, contextutils.NewAppError(
		contextutils.ErrorCodeInvalidInput,
		contextutils.SeverityWarn,
		fmt.Sprintf("Invalid %s", field),
		fmt.Sprintf("Value '%v' is invalid: %s", value, reason),
	))
}

// HandleBindError reports a request body gin could not bind
func HandleBindError(c *gin.Context, err error) {
	HandleAppError(c, contextutils.NewAppErrorWithCause(
		contextutils.ErrorCodeInvalidInput,
		contextutils.SeverityWarn,
		"Invalid request body",
		"",
		err,
	))
}

// errorDetails returns the backend detail carried by an AppError
func errorDetails(err error) string {
	var appErr *contextutils.AppError
	if contextutils.AsError(err, &appErr) {
		if appErr.Details != "" {
			return appErr.Details
		}
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// pageError is the error toast shown above a re-rendered form
type pageError struct {
	Title   string
	Message string
}

// submissionPageError picks the toast for a failed submission. Insert failures
// use the form's own message so the backend detail is shown.
func submissionPageError(err error, locale contextutils.Locale, insertFailKey contextutils.MessageKey) *pageError {
	title := contextutils.T(contextutils.MsgErrorTitle, locale)
	switch contextutils.GetErrorCode(err) {
	case contextutils.ErrorCodeAttachmentTooLarge:
		title = contextutils.T(contextutils.MsgImageTooLargeTitle, locale)
	case contextutils.ErrorCodeAttachmentType:
		title = contextutils.T(contextutils.MsgImageTypeTitle, locale)
	case contextutils.ErrorCodeInsertFailed:
		return &pageError{Title: title, Message: contextutils.T(insertFailKey, locale, errorDetails(err))}
	}
	return &pageError{Title: title, Message: contextutils.GetErrorLocalizedMessage(err, string(locale))}
}
