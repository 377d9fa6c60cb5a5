package services

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"devlense/internal/observability"
	contextutils "devlense/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// selectableTables lists the tables and columns the generic select may read.
// password_hash is never selectable.
var selectableTables = map[string][]string{
	"users":       {"id", "username", "email", "is_admin", "created_at", "updated_at"},
	"bug_reports": {"id", "title", "description", "user_id", "is_secret", "image_url", "created_at"},
	"qna":         {"id", "question", "answer", "user_id", "created_at", "answered_at"},
}

// TableNames returns the selectable tables in a stable order
func TableNames() []string {
	return []string{"users", "bug_reports", "qna"}
}

// TableResult is a generic result set
type TableResult struct {
	Table   string
	Columns []string
	Rows    [][]interface{}
}

// TableService runs whitelisted generic reads for the admin CLI.
type TableService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewTableService creates a new TableService instance
func NewTableService(db *sql.DB, logger *observability.Logger) *TableService {
	if db == nil {
		panic("database connection cannot be nil")
	}
	return &TableService{db: db, logger: logger}
}

// Select reads every row of table ordered by orderBy. An empty orderBy means id.
// Table and column names never reach the query unless whitelisted.
func (s *TableService) Select(ctx context.Context, table, orderBy string, descending bool, limit int) (result0 *TableResult, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "table_select",
		observability.AttributeTable(table),
		attribute.String("table.order_by", orderBy),
		attribute.Bool("table.descending", descending),
	)
	defer observability.FinishSpan(span, &err)

	columns, ok := selectableTables[table]
	if !ok {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown table %q", table)
	}
	if orderBy == "" {
		orderBy = "id"
	}
	if !slices.Contains(columns, orderBy) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown column %q for table %s", orderBy, table)
	}

	direction := "ASC"
	if descending {
		direction = "DESC"
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s %s", strings.Join(columns, ", "), table, orderBy, direction)
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fetchError(err)
	}
	defer func() { _ = rows.Close() }()

	result := &TableResult{Table: table, Columns: columns}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fetchError(err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchError(err)
	}

	span.SetAttributes(attribute.Int("table.rows", len(result.Rows)))
	return result, nil
}

// Counts returns the row count of every selectable table
func (s *TableService) Counts(ctx context.Context) (result0 map[string]int, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "table_counts")
	defer observability.FinishSpan(span, &err)

	counts := make(map[string]int, len(selectableTables))
	for _, table := range TableNames() {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to count %s: %v", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
