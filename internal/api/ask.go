package api

import (
	"log/slog"
	"net/http"
	"strings"

	apperr "github.com/sqlask/sqlask/internal/errors"
	"github.com/sqlask/sqlask/internal/nl2sql"
	"github.com/sqlask/sqlask/internal/observability"
)

type askRequest struct {
	Question string `json:"question"`
}

const (
	answerStatusOK     = "ok"
	answerStatusFailed = "failed"
)

// answerResponse is an nl2sql.Answer plus the summary fields the page and
// the CLI print without digging into the stages.
type answerResponse struct {
	nl2sql.Answer
	Status       string `json:"status"`
	ErrorCode    string `json:"error_code,omitempty"`
	Message      string `json:"message,omitempty"`
	Details      string `json:"details,omitempty"`
	ArchiveKey   string `json:"archive_key,omitempty"`
	ArchiveError string `json:"archive_error,omitempty"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PIPELINE_NOT_CONFIGURED", "question pipeline is not configured", false, nil)
		return
	}
	question, ok := readQuestion(w, r)
	if !ok {
		return
	}

	answer := deps.Pipeline.Ask(r.Context(), question)
	response := newAnswerResponse(answer)
	if deps.Archive != nil && answer.Result != nil && answer.Result.IsRowSet() {
		info, err := deps.Archive.Save(r.Context(), answer.Question, *answer.Query, *answer.Result)
		if err != nil {
			response.ArchiveError = err.Error()
			if deps.Logger != nil {
				observability.ForRequest(r.Context(), deps.Logger).WarnContext(r.Context(), "result archive failed",
					slog.String("error", err.Error()),
				)
			}
		} else {
			response.ArchiveKey = info.Key
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TRANSLATE_NOT_CONFIGURED", "query translation is not configured", false, nil)
		return
	}
	question, ok := readQuestion(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newAnswerResponse(deps.Pipeline.Translate(r.Context(), question)))
}

func readQuestion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid question request body", false, map[string]any{"details": err.Error()})
		return "", false
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return "", false
	}
	return question, true
}

func newAnswerResponse(answer nl2sql.Answer) answerResponse {
	response := answerResponse{Answer: answer, Status: answerStatusOK}
	switch {
	case answer.Halted():
		response.Status = answerStatusFailed
		response.ErrorCode = apperr.KindOf(answer.Err).Code()
		response.Message = haltMessage(answer.HaltedAt)
		if answer.Err != nil {
			response.Details = answer.Err.Error()
		}
	case answer.Result != nil && !answer.Result.Succeeded():
		response.Status = answerStatusFailed
		response.ErrorCode = answer.Result.ErrorCode
		response.Message = answer.Result.Error
	case answer.Result != nil:
		response.Message = answer.Result.Message
	}
	return response
}

func haltMessage(stage nl2sql.Stage) string {
	switch stage {
	case nl2sql.StageSchema:
		return "cannot read store schema"
	case nl2sql.StageSelectTables:
		return "cannot identify tables"
	case nl2sql.StageGenerate:
		return "cannot generate query"
	default:
		return "question could not be answered"
	}
}
