package api

import (
	"net/http"
	"strings"

	"github.com/sqlask/sqlask/internal/query"
)

type queryRequest struct {
	SQL string `json:"sql"`
}

// handleQuery runs caller-supplied SQL through the same keyword gate as
// generated statements. Store failures come back inside the result.
func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Executor == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query executor is not configured", false, nil)
		return
	}

	var request queryRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	sqlText := strings.TrimSpace(request.SQL)
	if sqlText == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}
	generated, err := query.NewGeneratedQuery(sqlText)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_NOT_ALLOWED", "statement must start with SELECT, INSERT, UPDATE, DELETE, CREATE, ALTER or DROP", false, nil)
		return
	}

	writeJSON(w, http.StatusOK, deps.Executor.Execute(r.Context(), generated))
}
