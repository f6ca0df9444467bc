package nl2sql

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sqlask/sqlask/internal/query"
)

// scriptedBackend answers the table prompt and the query prompt with fixed
// replies and records every prompt it saw.
type scriptedBackend struct {
	mu         sync.Mutex
	tableReply string
	queryReply string
	tableErr   error
	queryErr   error
	prompts    []string
}

func (b *scriptedBackend) Complete(_ context.Context, prompt string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prompts = append(b.prompts, prompt)
	if strings.HasPrefix(prompt, "Given the following question") {
		return b.tableReply, b.tableErr
	}
	return b.queryReply, b.queryErr
}

func (b *scriptedBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.prompts)
}

type recordingExecutor struct {
	calls  []query.GeneratedQuery
	result query.ExecutionResult
}

func (e *recordingExecutor) Execute(_ context.Context, q query.GeneratedQuery) query.ExecutionResult {
	e.calls = append(e.calls, q)
	return e.result
}

var errModelDown = errors.New("dial tcp: connection refused")
