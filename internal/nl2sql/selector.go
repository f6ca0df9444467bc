package nl2sql

import (
	"context"
	"log/slog"
	"strings"
	"time"

	apperr "github.com/sqlask/sqlask/internal/errors"
	"github.com/sqlask/sqlask/internal/llm"
	"github.com/sqlask/sqlask/internal/observability"
)

const stageSelectTables = "select_tables"

// Selector asks the model which of the known tables a question needs.
type Selector struct {
	backend llm.Backend
	logger  *slog.Logger
}

func NewSelector(backend llm.Backend, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Selector{backend: backend, logger: logger}
}

// Select returns a non-empty subset of knownTables whenever knownTables is
// non-empty and the model answered. A reply naming no known table falls back
// to every known table. A failed model call yields an empty selection and a
// model transport error.
func (s *Selector) Select(ctx context.Context, question string, knownTables []string) ([]string, error) {
	if len(knownTables) == 0 {
		return nil, nil
	}

	start := time.Now()
	reply, err := s.backend.Complete(ctx, tableSelectionPrompt(question, knownTables))
	observability.ObserveModelCall(stageSelectTables, err, time.Since(start))
	if err != nil {
		s.logger.WarnContext(ctx, "table selection failed",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.String("error", err.Error()),
		)
		return nil, apperr.Wrap(err, apperr.KindModelTransport, "identify relevant tables")
	}

	selected := ParseTableList(reply, knownTables)
	if len(selected) == 0 {
		observability.IncrementTableFallback()
		s.logger.InfoContext(ctx, "table selection fell back to all tables",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.String("reply", reply),
		)
		return append([]string(nil), knownTables...), nil
	}
	return selected, nil
}

// ParseTableList splits a comma-separated reply and keeps the entries that
// name a known table. Matching ignores case and returns the known spelling;
// duplicates are dropped and the reply's order is kept.
func ParseTableList(reply string, knownTables []string) []string {
	canonical := make(map[string]string, len(knownTables))
	for _, name := range knownTables {
		canonical[strings.ToLower(name)] = name
	}

	seen := map[string]struct{}{}
	var selected []string
	for _, entry := range strings.Split(reply, ",") {
		entry = strings.Trim(strings.TrimSpace(entry), "`\"'.")
		name, ok := canonical[strings.ToLower(entry)]
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		selected = append(selected, name)
	}
	return selected
}
