package contextutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalizedMessages_AddMessage_GetMessage(t *testing.T) {
	lm := NewLocalizedMessages()

	lm.AddMessage(ErrorCodeInvalidInput, LocaleEnglish, "Invalid input")
	lm.AddMessage(ErrorCodeInvalidInput, LocaleKorean, "잘못된 입력입니다")

	assert.Equal(t, "Invalid input", lm.GetMessage(ErrorCodeInvalidInput, LocaleEnglish))
	assert.Equal(t, "잘못된 입력입니다", lm.GetMessage(ErrorCodeInvalidInput, LocaleKorean))

	// Unsupported locales fall back to Korean first
	assert.Equal(t, "잘못된 입력입니다", lm.GetMessage(ErrorCodeInvalidInput, Locale("ja")))

	assert.Equal(t, "An error occurred", lm.GetMessage(ErrorCode("UNKNOWN_ERROR"), LocaleEnglish))
}

func TestLocalizedMessages_EnglishNeverFallsBackToKorean(t *testing.T) {
	lm := NewLocalizedMessages()
	lm.AddMessage(ErrorCodeRecordNotFound, LocaleKorean, "항목을 찾을 수 없습니다")

	assert.Equal(t, "Record not found", lm.GetMessage(ErrorCodeRecordNotFound, LocaleEnglish))
}

func TestLocalizedMessages_GetMessageWithDetails(t *testing.T) {
	lm := NewLocalizedMessages()
	lm.AddMessage(ErrorCodeRecordNotFound, LocaleEnglish, "Record not found")
	lm.AddMessage(ErrorCodeInsertFailed, LocaleKorean, "제출 중 오류가 발생했습니다: %s")

	msg := lm.GetMessageWithDetails(ErrorCodeRecordNotFound, LocaleEnglish, "question 123")
	assert.Equal(t, "Record not found: question 123", msg)

	msg = lm.GetMessageWithDetails(ErrorCodeRecordNotFound, LocaleEnglish, "")
	assert.Equal(t, "Record not found", msg)

	msg = lm.GetMessageWithDetails(ErrorCodeInsertFailed, LocaleKorean, "duplicate key")
	assert.Equal(t, "제출 중 오류가 발생했습니다: duplicate key", msg)
}

func TestLocalizedMessages_Text(t *testing.T) {
	lm := NewLocalizedMessages()
	lm.AddText(MsgQnAFetchFail, LocaleKorean, "Q&A 목록을 불러오는 데 실패했습니다: %s")

	assert.Equal(t, "Q&A 목록을 불러오는 데 실패했습니다: timeout", lm.Text(MsgQnAFetchFail, LocaleKorean, "timeout"))
	assert.Equal(t, "missing.key", lm.Text(MessageKey("missing.key"), LocaleKorean))
}

func TestLocalizedMessages_LoadMessagesFromJSON(t *testing.T) {
	jsonData := `{
		"INVALID_INPUT": {
			"en": "Invalid input",
			"ko": "잘못된 입력입니다"
		},
		"nav.login": {
			"en": "Sign in"
		}
	}`

	lm := NewLocalizedMessages()
	err := lm.LoadMessagesFromJSON(jsonData)
	assert.NoError(t, err)

	assert.Equal(t, "Invalid input", lm.GetMessage(ErrorCodeInvalidInput, LocaleEnglish))
	assert.Equal(t, "잘못된 입력입니다", lm.GetMessage(ErrorCodeInvalidInput, LocaleKorean))
	assert.Equal(t, "Sign in", lm.Text(MsgNavLogin, LocaleEnglish))
}

func TestLocalizedMessages_LoadMessagesFromJSON_InvalidJSON(t *testing.T) {
	lm := NewLocalizedMessages()
	err := lm.LoadMessagesFromJSON(`invalid json`)
	assert.Error(t, err)
}

func TestLocalizedMessages_GetSupportedLocales(t *testing.T) {
	lm := NewLocalizedMessages()
	lm.AddMessage(ErrorCodeInvalidInput, LocaleEnglish, "Invalid input")
	lm.AddMessage(ErrorCodeInvalidInput, LocaleKorean, "잘못된 입력입니다")
	lm.AddText(MsgNavLogin, Locale("ja"), "ログイン")

	locales := lm.GetSupportedLocales()
	assert.Len(t, locales, 3)
	assert.Contains(t, locales, LocaleEnglish)
	assert.Contains(t, locales, LocaleKorean)
	assert.Contains(t, locales, Locale("ja"))
}

func TestGetDefaultMessage(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected string
	}{
		{ErrorCodeInvalidInput, "Invalid input"},
		{ErrorCodeRecordNotFound, "Record not found"},
		{ErrorCodeUnauthorized, "Unauthorized access"},
		{ErrorCodeInternalError, "Internal server error"},
		{ErrorCode("UNKNOWN"), "An error occurred"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, getDefaultMessage(tt.code))
		})
	}
}

func TestGlobalSiteMessages(t *testing.T) {
	assert.Equal(t, "이미지 크기는 5MB 이하여야 합니다.", GetLocalizedMessage(ErrorCodeAttachmentTooLarge, LocaleKorean))
	assert.Equal(t, "이미지 파일만 업로드 가능합니다.", GetLocalizedMessage(ErrorCodeAttachmentType, LocaleKorean))
	assert.Equal(t, "보고서 제출 중 오류가 발생했습니다. (에러: duplicate key)", T(MsgBugReportInsertFail, LocaleKorean, "duplicate key"))
	assert.Equal(t, "답변을 기다리고 있습니다.", T(MsgQnAPending, DefaultLocale))
	assert.Equal(t, "로그인을 하시면 오류수정과 Q&A를 하실 수 있습니다.", T(MsgNavLoginTooltip, LocaleKorean))
	assert.Equal(t, "Log out", T(MsgNavLogout, LocaleEnglish))
}

func TestSetGlobalLocalizedMessages(t *testing.T) {
	previous := globalLocalizedMessages
	t.Cleanup(func() { SetGlobalLocalizedMessages(previous) })

	customMessages := NewLocalizedMessages()
	customMessages.AddMessage(ErrorCodeInvalidInput, LocaleEnglish, "Custom invalid input")

	SetGlobalLocalizedMessages(customMessages)

	assert.Equal(t, "Custom invalid input", GetLocalizedMessage(ErrorCodeInvalidInput, "en"))
}
