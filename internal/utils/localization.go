package contextutils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Locale represents a language locale (e.g., "ko", "en")
type Locale string

const (
	// LocaleKorean is the site's primary language
	LocaleKorean Locale = "ko"
	// LocaleEnglish represents English language
	LocaleEnglish Locale = "en"

	// DefaultLocale is used when a request carries no usable locale
	DefaultLocale = LocaleKorean
)

// MessageKey names a user-visible string that is not tied to an error code,
// such as page titles, toast headings and navigation labels.
type MessageKey string

// LocalizedMessages contains localized messages for different locales. Error codes and
// message keys share one table.
type LocalizedMessages struct {
	messages map[string]map[Locale]string
}

// NewLocalizedMessages creates a new instance of localized messages
func NewLocalizedMessages() *LocalizedMessages {
	return &LocalizedMessages{
		messages: make(map[string]map[Locale]string),
	}
}

func (lm *LocalizedMessages) add(key string, locale Locale, message string) {
	if lm.messages[key] == nil {
		lm.messages[key] = make(map[Locale]string)
	}
	lm.messages[key][locale] = message
}

func (lm *LocalizedMessages) lookup(key string, locale Locale) (string, bool) {
	localeMessages, exists := lm.messages[key]
	if !exists {
		return "", false
	}
	chain := []Locale{locale, DefaultLocale, LocaleEnglish}
	if locale == LocaleEnglish {
		// English callers fall through to the built-in defaults, never to Korean.
		chain = chain[:1]
	}
	for _, l := range chain {
		if message, ok := localeMessages[l]; ok {
			return message, true
		}
	}
	return "", false
}

// AddMessage adds a localized message for a specific error code and locale
func (lm *LocalizedMessages) AddMessage(code ErrorCode, locale Locale, message string) {
	lm.add(string(code), locale, message)
}

// AddText adds a localized message for a UI message key
func (lm *LocalizedMessages) AddText(key MessageKey, locale Locale, message string) {
	lm.add(string(key), locale, message)
}

// GetMessage returns the localized message for an error code and locale, falling back
// to Korean, then English, then a built-in English default.
func (lm *LocalizedMessages) GetMessage(code ErrorCode, locale Locale) string {
	if message, ok := lm.lookup(string(code), locale); ok {
		return message
	}
	return getDefaultMessage(code)
}

// GetMessageWithDetails returns a localized message with additional details. Messages
// containing a %s verb receive the details in place; others get them appended.
func (lm *LocalizedMessages) GetMessageWithDetails(code ErrorCode, locale Locale, details string) string {
	return withDetails(lm.GetMessage(code, locale), details)
}

// Text returns the localized string for key. Unknown keys render as the key itself.
func (lm *LocalizedMessages) Text(key MessageKey, locale Locale, args ...interface{}) string {
	message, ok := lm.lookup(string(key), locale)
	if !ok {
		return string(key)
	}
	if len(args) > 0 {
		return fmt.Sprintf(message, args...)
	}
	return message
}

func withDetails(message, details string) string {
	if strings.Contains(message, "%s") {
		return fmt.Sprintf(message, details)
	}
	if details != "" {
		return fmt.Sprintf("%s: %s", message, details)
	}
	return message
}

// getDefaultMessage returns a default English message for error codes
func getDefaultMessage(code ErrorCode) string {
	switch code {
	case ErrorCodeDatabaseConnection:
		return "Database connection failed"
	case ErrorCodeDatabaseQuery:
		return "Database query failed"
	case ErrorCodeRecordNotFound:
		return "Record not found"
	case ErrorCodeRecordExists:
		return "Record already exists"
	case ErrorCodeInvalidInput:
		return "Invalid input"
	case ErrorCodeValidationFailed:
		return "Validation failed"
	case ErrorCodeUnauthorized:
		return "Unauthorized access"
	case ErrorCodeForbidden:
		return "Access forbidden"
	case ErrorCodeInvalidCredentials:
		return "Invalid credentials"
	case ErrorCodeSessionExpired:
		return "Session expired"
	case ErrorCodeServiceUnavailable:
		return "Service temporarily unavailable"
	case ErrorCodeTimeout:
		return "Request timeout"
	case ErrorCodeRateLimit:
		return "Rate limit exceeded"
	case ErrorCodeInternalError:
		return "Internal server error"
	default:
		return "An error occurred"
	}
}

// LoadMessagesFromJSON loads localized messages from a JSON structure keyed by
// error code or message key, then locale.
func (lm *LocalizedMessages) LoadMessagesFromJSON(jsonData string) error {
	var data map[string]map[string]string
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return WrapError(err, "failed to parse localization JSON")
	}

	for key, localeMessages := range data {
		for localeStr, message := range localeMessages {
			lm.add(key, Locale(localeStr), message)
		}
	}

	return nil
}

// GetSupportedLocales returns a list of supported locales
func (lm *LocalizedMessages) GetSupportedLocales() []Locale {
	locales := make(map[Locale]bool)

	for _, localeMessages := range lm.messages {
		for locale := range localeMessages {
			locales[locale] = true
		}
	}

	result := make([]Locale, 0, len(locales))
	for locale := range locales {
		result = append(result, locale)
	}

	return result
}

// ParseLocale parses a locale string (e.g., "ko-KR", "en-US;q=0.8") and returns the language part
func ParseLocale(localeStr string) Locale {
	localeStr = strings.TrimSpace(strings.SplitN(localeStr, ",", 2)[0])
	localeStr = strings.SplitN(localeStr, ";", 2)[0]
	parts := strings.Split(localeStr, "-")
	if len(parts) > 0 && parts[0] != "" {
		return Locale(strings.ToLower(parts[0]))
	}
	return DefaultLocale
}

var globalLocalizedMessages = NewLocalizedMessages()

func init() {
	m := globalLocalizedMessages

	m.AddMessage(ErrorCodeAttachmentTooLarge, LocaleKorean, "이미지 크기는 5MB 이하여야 합니다.")
	m.AddMessage(ErrorCodeAttachmentTooLarge, LocaleEnglish, "Images must be 5MB or smaller.")
	m.AddMessage(ErrorCodeAttachmentType, LocaleKorean, "이미지 파일만 업로드 가능합니다.")
	m.AddMessage(ErrorCodeAttachmentType, LocaleEnglish, "Only image files can be uploaded.")
	m.AddMessage(ErrorCodeUploadFailed, LocaleKorean, "이미지 업로드 중 오류가 발생했습니다.")
	m.AddMessage(ErrorCodeUploadFailed, LocaleEnglish, "The image could not be uploaded.")
	m.AddMessage(ErrorCodeInsertFailed, LocaleKorean, "제출 중 오류가 발생했습니다: %s")
	m.AddMessage(ErrorCodeInsertFailed, LocaleEnglish, "Submission failed: %s")
	m.AddMessage(ErrorCodeFetchFailed, LocaleKorean, "목록을 불러오는 데 실패했습니다: %s")
	m.AddMessage(ErrorCodeFetchFailed, LocaleEnglish, "Failed to load the list: %s")
	m.AddMessage(ErrorCodeSubmissionInFlight, LocaleKorean, "이미 제출 중입니다.")
	m.AddMessage(ErrorCodeSubmissionInFlight, LocaleEnglish, "A submission is already in progress.")
	m.AddMessage(ErrorCodeValidationFailed, LocaleKorean, "입력값을 확인해 주세요")
	m.AddMessage(ErrorCodeValidationFailed, LocaleEnglish, "Please check your input")
	m.AddMessage(ErrorCodeInvalidInput, LocaleKorean, "잘못된 입력입니다")
	m.AddMessage(ErrorCodeUnauthorized, LocaleKorean, "로그인이 필요합니다.")
	m.AddMessage(ErrorCodeInvalidCredentials, LocaleKorean, "아이디 또는 비밀번호가 올바르지 않습니다.")
	m.AddMessage(ErrorCodeSessionExpired, LocaleKorean, "세션이 만료되었습니다. 다시 로그인해 주세요.")
	m.AddMessage(ErrorCodeRateLimit, LocaleKorean, "요청이 너무 많습니다. 잠시 후 다시 시도해 주세요.")
	m.AddMessage(ErrorCodeRecordNotFound, LocaleKorean, "항목을 찾을 수 없습니다")
	m.AddMessage(ErrorCodeInternalError, LocaleKorean, "서버 내부 오류가 발생했습니다")

	registerSiteTexts(m)
}

// GetLocalizedMessage returns a localized error message using the global instance
func GetLocalizedMessage(code ErrorCode, locale Locale) string {
	return globalLocalizedMessages.GetMessage(code, locale)
}

// GetLocalizedMessageWithDetails returns a localized error message with details
func GetLocalizedMessageWithDetails(code ErrorCode, locale Locale, details string) string {
	return globalLocalizedMessages.GetMessageWithDetails(code, locale, details)
}

// T returns a localized UI string from the global instance.
func T(key MessageKey, locale Locale, args ...interface{}) string {
	return globalLocalizedMessages.Text(key, locale, args...)
}

// SetGlobalLocalizedMessages sets the global localized messages instance
func SetGlobalLocalizedMessages(messages *LocalizedMessages) {
	globalLocalizedMessages = messages
}
