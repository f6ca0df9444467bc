// Package engine executes validated statements against the store.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	apperr "github.com/sqlask/sqlask/internal/errors"
	"github.com/sqlask/sqlask/internal/observability"
	"github.com/sqlask/sqlask/internal/query"
	"github.com/sqlask/sqlask/internal/store"
)

type Engine struct {
	store   store.Store
	timeout time.Duration
	logger  *slog.Logger
}

// NewEngine returns an executor over s. A positive timeout bounds each
// statement, including opening the store.
func NewEngine(s store.Store, timeout time.Duration) *Engine {
	return &Engine{store: s, timeout: timeout, logger: slog.New(slog.DiscardHandler)}
}

// WithLogger sets the logger used for driver problems that do not fail the
// statement.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Execute opens the store for this statement only, runs it according to its
// verb and closes the store again. Every failure, including an unreachable
// store, is reported in the result with the driver's error text verbatim.
func (e *Engine) Execute(ctx context.Context, q query.GeneratedQuery) query.ExecutionResult {
	start := time.Now()
	result := e.execute(ctx, q)
	result.Duration = time.Since(start)
	result.DurationMS = result.Duration.Milliseconds()
	observability.ObserveStatement(string(result.Verb), string(result.Status), result.Duration)
	return result
}

func (e *Engine) execute(ctx context.Context, q query.GeneratedQuery) query.ExecutionResult {
	verb := q.Verb
	if !verb.IsValid() {
		classified, ok := query.Classify(q.SQL)
		if !ok {
			return query.Failure("", apperr.KindUngeneratableQuery, fmt.Errorf("statement does not start with an allowed SQL command"))
		}
		verb = classified
	}
	sqlText := stripTrailingSemicolons(q.SQL)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	db, err := e.store.Open(ctx)
	if err != nil {
		return query.Failure(verb, apperr.KindStoreUnavailable, err)
	}
	defer func() { _ = db.Close() }()

	switch verb.Category() {
	case query.CategoryRead:
		return runRead(ctx, db, sqlText)
	case query.CategoryWrite:
		return e.runWrite(ctx, db, verb, sqlText)
	default:
		return runSchemaChange(ctx, db, verb, sqlText)
	}
}

func runRead(ctx context.Context, db *sql.DB, sqlText string) query.ExecutionResult {
	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Failure(query.VerbSelect, apperr.KindExecution, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Failure(query.VerbSelect, apperr.KindExecution, err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Failure(query.VerbSelect, apperr.KindExecution, err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.Failure(query.VerbSelect, apperr.KindExecution, err)
	}
	return query.RowSet(columns, resultRows)
}

func (e *Engine) runWrite(ctx context.Context, db *sql.DB, verb query.Verb, sqlText string) query.ExecutionResult {
	res, err := db.ExecContext(ctx, sqlText)
	if err != nil {
		return query.Failure(verb, apperr.KindExecution, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		// The statement already ran; only the count is missing.
		e.logger.WarnContext(ctx, "affected row count unavailable",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.String("verb", string(verb)),
			slog.String("error", err.Error()),
		)
		return query.Message(verb, fmt.Sprintf("%s statement executed successfully; affected row count unavailable", verb))
	}
	result := query.Message(verb, fmt.Sprintf("%d row(s) affected", affected))
	result.RowsAffected = &affected
	return result
}

func runSchemaChange(ctx context.Context, db *sql.DB, verb query.Verb, sqlText string) query.ExecutionResult {
	if _, err := db.ExecContext(ctx, sqlText); err != nil {
		return query.Failure(verb, apperr.KindExecution, err)
	}
	return query.Message(verb, fmt.Sprintf("%s statement executed successfully", verb))
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		case float64:
			normalized[i] = finiteOrText(typed, 64)
		case float32:
			normalized[i] = finiteOrText(float64(typed), 32)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

// finiteOrText keeps finite floats as numbers and spells out Inf and NaN,
// which JSON cannot carry.
func finiteOrText(value float64, bitSize int) any {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return strconv.FormatFloat(value, 'g', -1, bitSize)
	}
	if bitSize == 32 {
		return float32(value)
	}
	return value
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
