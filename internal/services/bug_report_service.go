package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"devlense/internal/models"
	"devlense/internal/observability"
	contextutils "devlense/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

// BugReportServiceInterface is the bug_reports table boundary
type BugReportServiceInterface interface {
	Create(ctx context.Context, report *models.BugReport) (*models.BugReport, error)
}

// BugReportService writes bug reports
type BugReportService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewBugReportService creates a new BugReportService instance
func NewBugReportService(db *sql.DB, logger *observability.Logger) *BugReportService {
	if db == nil {
		panic("database connection cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &BugReportService{db: db, logger: logger}
}

// Create inserts one row and fills in the generated id and creation time
func (s *BugReportService) Create(ctx context.Context, report *models.BugReport) (result0 *models.BugReport, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "create_bug_report",
		observability.AttributeTable("bug_reports"),
		observability.AttributeUserID(report.UserID),
		attribute.Bool("bug_report.is_secret", report.IsSecret),
		attribute.Bool("bug_report.has_image", report.ImageURL.Valid),
	)
	defer observability.FinishSpan(span, &err)

	created := *report
	created.CreatedAt = time.Now().UTC()

	query := `INSERT INTO bug_reports (title, description, user_id, is_secret, image_url, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err = s.db.QueryRowContext(ctx, query, created.Title, created.Description, created.UserID, created.IsSecret, created.ImageURL, created.CreatedAt).Scan(&created.ID)
	if err != nil {
		return nil, insertError("bug_reports", err)
	}

	s.logger.Info(ctx, "Bug report created", map[string]interface{}{
		"bug_report_id": created.ID,
		"user_id":       created.UserID,
		"has_image":     created.ImageURL.Valid,
	})
	return &created, nil
}

// backendDetail is the driver's own message, without the driver prefix
func backendDetail(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Message
	}
	return err.Error()
}

func insertError(table string, err error) error {
	return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInsertFailed, contextutils.SeverityError,
		"failed to insert into "+table, backendDetail(err), err)
}
