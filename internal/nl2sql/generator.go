package nl2sql

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	apperr "github.com/sqlask/sqlask/internal/errors"
	"github.com/sqlask/sqlask/internal/llm"
	"github.com/sqlask/sqlask/internal/observability"
	"github.com/sqlask/sqlask/internal/query"
	"github.com/sqlask/sqlask/internal/schema"
)

const stageGenerate = "generate"

var fencePattern = regexp.MustCompile("(?i)```(sql)?")

// Generator turns a question plus the scoped schema into one statement.
type Generator struct {
	backend llm.Backend
	logger  *slog.Logger
}

func NewGenerator(backend llm.Backend, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{backend: backend, logger: logger}
}

// Generate asks the model for a statement, cleans the reply and checks its
// leading keyword. A reply that does not start with an allowed verb is an
// ungeneratable query.
func (g *Generator) Generate(ctx context.Context, question string, description schema.Description) (query.GeneratedQuery, error) {
	start := time.Now()
	reply, err := g.backend.Complete(ctx, queryGenerationPrompt(question, description))
	observability.ObserveModelCall(stageGenerate, err, time.Since(start))
	if err != nil {
		g.logger.WarnContext(ctx, "query generation failed",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.String("error", err.Error()),
		)
		return query.GeneratedQuery{}, apperr.Wrap(err, apperr.KindModelTransport, "generate query")
	}

	sqlText := Sanitize(reply)
	generated, err := query.NewGeneratedQuery(sqlText)
	if err != nil {
		g.logger.InfoContext(ctx, "model reply is not an allowed statement",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.String("reply", sqlText),
		)
		return query.GeneratedQuery{}, err
	}
	return generated, nil
}

// Sanitize strips code fences and surrounding whitespace from a model reply
// and collapses every whitespace run to a single space.
func Sanitize(reply string) string {
	cleaned := fencePattern.ReplaceAllString(strings.TrimSpace(reply), " ")
	return strings.Join(strings.Fields(cleaned), " ")
}
