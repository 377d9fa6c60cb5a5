package models

import (
	"database/sql"
	"encoding/json"
	"io"
	"time"
)

// SubmissionKind distinguishes the two submission forms
type SubmissionKind string

const (
	SubmissionBugReport SubmissionKind = "bug_report"
	SubmissionQuestion  SubmissionKind = "question"
)

// BugReport is a row of bug_reports
type BugReport struct {
	ID          int            `json:"id" db:"id"`
	Title       string         `json:"title" db:"title"`
	Description string         `json:"description" db:"description"`
	UserID      int            `json:"user_id" db:"user_id"`
	IsSecret    bool           `json:"is_secret" db:"is_secret"`
	ImageURL    sql.NullString `json:"image_url" db:"image_url"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// MarshalJSON renders a missing image as null
func (r BugReport) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID          int       `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		UserID      int       `json:"user_id"`
		IsSecret    bool      `json:"is_secret"`
		ImageURL    *string   `json:"image_url"`
		CreatedAt   time.Time `json:"created_at"`
	}{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		UserID:      r.UserID,
		IsSecret:    r.IsSecret,
		ImageURL:    nullStringToPointer(r.ImageURL),
		CreatedAt:   r.CreatedAt,
	})
}

// Question is a row of qna. Answer stays NULL until the site owner replies.
type Question struct {
	ID         int            `json:"id" db:"id"`
	Question   string         `json:"question" db:"question"`
	Answer     sql.NullString `json:"answer" db:"answer"`
	UserID     int            `json:"user_id" db:"user_id"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	AnsweredAt sql.NullTime   `json:"answered_at" db:"answered_at"`
}

// IsPending reports whether the question still awaits an answer
func (q Question) IsPending() bool {
	return !q.Answer.Valid || q.Answer.String == ""
}

// MarshalJSON renders a missing answer as null
func (q Question) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID         int        `json:"id"`
		Question   string     `json:"question"`
		Answer     *string    `json:"answer"`
		UserID     int        `json:"user_id"`
		CreatedAt  time.Time  `json:"created_at"`
		AnsweredAt *time.Time `json:"answered_at"`
	}{
		ID:         q.ID,
		Question:   q.Question,
		Answer:     nullStringToPointer(q.Answer),
		UserID:     q.UserID,
		CreatedAt:  q.CreatedAt,
		AnsweredAt: nullTimeToPointer(q.AnsweredAt),
	})
}

// BugReportForm holds the user-entered bug report fields
type BugReportForm struct {
	Title       string `form:"title" json:"title" validate:"required,max=200"`
	Description string `form:"description" json:"description" validate:"required,max=5000"`
	IsSecret    bool   `form:"is_secret" json:"is_secret"`
}

// QuestionForm holds the user-entered question
type QuestionForm struct {
	Question string `form:"question" json:"question" validate:"required,max=2000"`
}

// Attachment is an optional image picked on the bug report form. ContentType is
// the type declared by the client; Size is the declared byte length.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}
