package query

import (
	"context"
	"strings"
	"time"

	apperr "github.com/sqlask/sqlask/internal/errors"
)

// Verb is the leading SQL keyword of a statement.
type Verb string

const (
	VerbSelect Verb = "SELECT"
	VerbInsert Verb = "INSERT"
	VerbUpdate Verb = "UPDATE"
	VerbDelete Verb = "DELETE"
	VerbCreate Verb = "CREATE"
	VerbAlter  Verb = "ALTER"
	VerbDrop   Verb = "DROP"
)

// Category groups verbs by the shape of result they produce.
type Category string

const (
	CategoryRead   Category = "read"
	CategoryWrite  Category = "write"
	CategorySchema Category = "schema"
)

var allowedVerbs = map[string]Verb{
	"SELECT": VerbSelect,
	"INSERT": VerbInsert,
	"UPDATE": VerbUpdate,
	"DELETE": VerbDelete,
	"CREATE": VerbCreate,
	"ALTER":  VerbAlter,
	"DROP":   VerbDrop,
}

func (v Verb) Category() Category {
	switch v {
	case VerbSelect:
		return CategoryRead
	case VerbInsert, VerbUpdate, VerbDelete:
		return CategoryWrite
	case VerbCreate, VerbAlter, VerbDrop:
		return CategorySchema
	default:
		return ""
	}
}

func (v Verb) IsValid() bool {
	return v.Category() != ""
}

// Classify reports the verb of sqlText by looking only at its first
// whitespace-delimited token. It is a keyword gate, not a parser: anything
// after the first token is never inspected.
func Classify(sqlText string) (Verb, bool) {
	fields := strings.Fields(sqlText)
	if len(fields) == 0 {
		return "", false
	}
	verb, ok := allowedVerbs[strings.ToUpper(fields[0])]
	return verb, ok
}

// GeneratedQuery is a statement that passed the keyword gate.
type GeneratedQuery struct {
	SQL  string `json:"sql"`
	Verb Verb   `json:"verb"`
}

func NewGeneratedQuery(sqlText string) (GeneratedQuery, error) {
	verb, ok := Classify(sqlText)
	if !ok {
		return GeneratedQuery{}, apperr.New(apperr.KindUngeneratableQuery, "cannot generate query")
	}
	return GeneratedQuery{SQL: sqlText, Verb: verb}, nil
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// ExecutionResult is the outcome of running one statement. Exactly one of
// the row set, the message or the error is meaningful, depending on Status
// and the verb's Category.
type ExecutionResult struct {
	Status       Status        `json:"status"`
	Verb         Verb          `json:"verb,omitempty"`
	Columns      []string      `json:"columns,omitempty"`
	Rows         [][]any       `json:"rows,omitempty"`
	RowCount     int           `json:"row_count"`
	RowsAffected *int64        `json:"rows_affected,omitempty"`
	Message      string        `json:"message,omitempty"`
	Error        string        `json:"error,omitempty"`
	ErrorCode    string        `json:"error_code,omitempty"`
	Duration     time.Duration `json:"-"`
	DurationMS   int64         `json:"duration_ms"`
}

func (r ExecutionResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// IsRowSet reports whether the result carries columns and rows.
func (r ExecutionResult) IsRowSet() bool {
	return r.Succeeded() && r.Verb.Category() == CategoryRead
}

func RowSet(columns []string, rows [][]any) ExecutionResult {
	if rows == nil {
		rows = [][]any{}
	}
	return ExecutionResult{Status: StatusSuccess, Verb: VerbSelect, Columns: columns, Rows: rows, RowCount: len(rows)}
}

func Message(verb Verb, message string) ExecutionResult {
	return ExecutionResult{Status: StatusSuccess, Verb: verb, Message: message}
}

// Failure records err's text verbatim under the given kind.
func Failure(verb Verb, kind apperr.Kind, err error) ExecutionResult {
	return ExecutionResult{
		Status:    StatusFailure,
		Verb:      verb,
		Error:     err.Error(),
		ErrorCode: kind.Code(),
	}
}

// Executor runs a validated statement. Failures are reported inside the
// result, never as an error.
type Executor interface {
	Execute(ctx context.Context, q GeneratedQuery) ExecutionResult
}
