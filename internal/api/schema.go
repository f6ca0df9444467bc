package api

import (
	"errors"
	"net/http"

	apperr "github.com/sqlask/sqlask/internal/errors"
	"github.com/sqlask/sqlask/internal/storage"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema reader is not configured", false, nil)
		return
	}
	description, err := deps.Schema.Describe(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, apperr.KindOf(err).Code(), "failed to read store schema", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tables":   description.Tables,
		"rendered": description.Render(),
	})
}

func handleBootstrap(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Bootstrap == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "BOOTSTRAP_NOT_CONFIGURED", "bootstrap is not configured", false, nil)
		return
	}
	summary, err := deps.Bootstrap(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if apperr.IsKind(err, apperr.KindStoreUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeError(r.Context(), w, status, "BOOTSTRAP_FAILED", "failed to reset demonstration data", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"rolled_back": summary.RolledBack,
		"applied":     summary.Applied,
	})
}

func handleGetResult(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Archive == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "result archive is not configured", false, nil)
		return
	}
	key := r.PathValue("key")
	if err := storage.ValidateResultKey(key); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_RESULT_KEY", err.Error(), false, nil)
		return
	}
	record, err := deps.Archive.Load(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "RESULT_NOT_FOUND", "archived result was not found", false, map[string]any{"key": key})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "ARCHIVE_ERROR", "failed to load archived result", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleDeleteResult removes an archived result. Deleting a key that is
// already gone succeeds.
func handleDeleteResult(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Archive == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "result archive is not configured", false, nil)
		return
	}
	key := r.PathValue("key")
	if err := storage.ValidateResultKey(key); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_RESULT_KEY", err.Error(), false, nil)
		return
	}
	if err := deps.Archive.Delete(r.Context(), key); err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "ARCHIVE_ERROR", "failed to delete archived result", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "key": key})
}
