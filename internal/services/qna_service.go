package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"devlense/internal/models"
	"devlense/internal/observability"
	contextutils "devlense/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// QnAServiceInterface is the qna table boundary
type QnAServiceInterface interface {
	Create(ctx context.Context, question *models.Question) (*models.Question, error)
	ListNewestFirst(ctx context.Context) ([]models.Question, error)
	Answer(ctx context.Context, id int, answer string) (*models.Question, error)
}

// QnAService reads and writes member questions
type QnAService struct {
	db     *sql.DB
	logger *observability.Logger
	now    func() time.Time
}

// NewQnAService creates a new QnAService instance
func NewQnAService(db *sql.DB, logger *observability.Logger) *QnAService {
	if db == nil {
		panic("database connection cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &QnAService{db: db, logger: logger, now: time.Now}
}

const questionSelectFields = `id, question, answer, user_id, created_at, answered_at`

func scanQuestion(row rowScanner) (*models.Question, error) {
	q := &models.Question{}
	if err := row.Scan(&q.ID, &q.Question, &q.Answer, &q.UserID, &q.CreatedAt, &q.AnsweredAt); err != nil {
		return nil, err
	}
	return q, nil
}

// Create inserts one question with no answer
func (s *QnAService) Create(ctx context.Context, question *models.Question) (result0 *models.Question, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "create_question",
		observability.AttributeTable("qna"),
		observability.AttributeUserID(question.UserID),
	)
	defer observability.FinishSpan(span, &err)

	created := models.Question{
		Question:  question.Question,
		UserID:    question.UserID,
		CreatedAt: s.now().UTC(),
	}

	query := `INSERT INTO qna (question, user_id, created_at) VALUES ($1, $2, $3) RETURNING id`
	if err = s.db.QueryRowContext(ctx, query, created.Question, created.UserID, created.CreatedAt).Scan(&created.ID); err != nil {
		return nil, insertError("qna", err)
	}

	s.logger.Info(ctx, "Question created", map[string]interface{}{"question_id": created.ID, "user_id": created.UserID})
	return &created, nil
}

// ListNewestFirst returns every question, newest first. Ties on created_at are
// broken by id so later inserts always come first.
func (s *QnAService) ListNewestFirst(ctx context.Context) (result0 []models.Question, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "list_questions", observability.AttributeTable("qna"))
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `SELECT `+questionSelectFields+` FROM qna ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fetchError(err)
	}
	defer func() { _ = rows.Close() }()

	questions := make([]models.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fetchError(err)
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchError(err)
	}

	span.SetAttributes(attribute.Int("qna.count", len(questions)))
	return questions, nil
}

// Answer records the site owner's reply
func (s *QnAService) Answer(ctx context.Context, id int, answer string) (result0 *models.Question, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "answer_question",
		observability.AttributeTable("qna"),
		attribute.Int("question.id", id),
	)
	defer observability.FinishSpan(span, &err)

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "answer cannot be empty")
	}

	query := `UPDATE qna SET answer = $1, answered_at = $2 WHERE id = $3 RETURNING ` + questionSelectFields
	q, err := scanQuestion(s.db.QueryRowContext(ctx, query, answer, s.now().UTC(), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "question %d not found", id)
	}
	if err != nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, err.Error())
	}

	s.logger.Info(ctx, "Question answered", map[string]interface{}{"question_id": id})
	return q, nil
}

func fetchError(err error) error {
	return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeFetchFailed, contextutils.SeverityError,
		"failed to load questions", backendDetail(err), err)
}
