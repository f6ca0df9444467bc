package nl2sql

import (
	"context"
	"log/slog"
	"strings"

	apperr "github.com/sqlask/sqlask/internal/errors"
	"github.com/sqlask/sqlask/internal/observability"
	"github.com/sqlask/sqlask/internal/query"
	"github.com/sqlask/sqlask/internal/schema"
)

// Stage names the step of the pipeline an answer stopped at.
type Stage string

const (
	StageSchema       Stage = "schema"
	StageSelectTables Stage = "select_tables"
	StageGenerate     Stage = "generate"
	StageExecute      Stage = "execute"
)

type SchemaReader interface {
	Describe(ctx context.Context) (schema.Description, error)
}

// Answer is everything one question produced. Query and Result stay nil
// when the pipeline halted before reaching them.
type Answer struct {
	Question string                 `json:"question"`
	Tables   []string               `json:"tables"`
	Schema   *schema.Description    `json:"schema,omitempty"`
	Query    *query.GeneratedQuery  `json:"query,omitempty"`
	Result   *query.ExecutionResult `json:"result,omitempty"`
	HaltedAt Stage                  `json:"halted_at,omitempty"`
	Err      error                  `json:"-"`
}

func (a Answer) Halted() bool {
	return a.HaltedAt != ""
}

// Succeeded reports whether the answer ran to the end without any failure.
func (a Answer) Succeeded() bool {
	if a.Halted() {
		return false
	}
	return a.Result == nil || a.Result.Succeeded()
}

// Pipeline runs a question through table selection, query generation and
// execution. Each call stands alone; no state survives between questions.
type Pipeline struct {
	schema    SchemaReader
	selector  *Selector
	generator *Generator
	executor  query.Executor
	logger    *slog.Logger
}

func NewPipeline(reader SchemaReader, selector *Selector, generator *Generator, executor query.Executor, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		schema:    reader,
		selector:  selector,
		generator: generator,
		executor:  executor,
		logger:    logger,
	}
}

// Ask answers a question end to end. Failures never escape as errors: they
// are recorded on the answer, either as the stage it halted at or inside the
// execution result.
func (p *Pipeline) Ask(ctx context.Context, question string) Answer {
	answer := p.prepare(ctx, question)
	if answer.Halted() {
		observability.ObservePipelineOutcome("halted_" + string(answer.HaltedAt))
		return answer
	}

	result := p.executor.Execute(ctx, *answer.Query)
	answer.Result = &result
	if result.Succeeded() {
		observability.ObservePipelineOutcome("executed")
	} else {
		observability.ObservePipelineOutcome("failed")
	}
	p.logger.InfoContext(ctx, "question answered",
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("verb", string(answer.Query.Verb)),
		slog.String("status", string(result.Status)),
		slog.Int("rows", result.RowCount),
	)
	return answer
}

// Translate runs every stage except execution.
func (p *Pipeline) Translate(ctx context.Context, question string) Answer {
	answer := p.prepare(ctx, question)
	if answer.Halted() {
		observability.ObservePipelineOutcome("halted_" + string(answer.HaltedAt))
		return answer
	}
	observability.ObservePipelineOutcome("translated")
	return answer
}

func (p *Pipeline) prepare(ctx context.Context, question string) Answer {
	question = strings.TrimSpace(question)
	answer := Answer{Question: question, Tables: []string{}}

	description, err := p.schema.Describe(ctx)
	if err != nil {
		return p.halt(ctx, answer, StageSchema, err)
	}

	known := description.TableNames()
	tables, err := p.selector.Select(ctx, question, known)
	if err != nil {
		return p.halt(ctx, answer, StageSelectTables, err)
	}
	if len(known) == 0 {
		// An empty store still gets a generation attempt; whatever the model
		// writes is then rejected by the gate or by the store.
		p.logger.WarnContext(ctx, "store has no tables",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		)
	} else {
		answer.Tables = tables
	}

	scoped := description.Scope(tables)
	answer.Schema = &scoped

	generated, err := p.generator.Generate(ctx, question, scoped)
	if err != nil {
		return p.halt(ctx, answer, StageGenerate, err)
	}
	answer.Query = &generated
	return answer
}

func (p *Pipeline) halt(ctx context.Context, answer Answer, stage Stage, err error) Answer {
	answer.HaltedAt = stage
	answer.Err = err
	p.logger.WarnContext(ctx, "question halted",
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("stage", string(stage)),
		slog.String("kind", string(apperr.KindOf(err))),
		slog.String("error", err.Error()),
	)
	return answer
}
