package nl2sql

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/sqlask/sqlask/internal/errors"
	"github.com/sqlask/sqlask/internal/query"
	"github.com/sqlask/sqlask/internal/query/engine"
	"github.com/sqlask/sqlask/internal/schema"
	"github.com/sqlask/sqlask/internal/store"
	"github.com/sqlask/sqlask/internal/store/storetest"
)

func newPipeline(s store.Store, backend *scriptedBackend, executor query.Executor) *Pipeline {
	return NewPipeline(schema.NewReader(s), NewSelector(backend, nil), NewGenerator(backend, nil), executor, nil)
}

func TestAskMarksAboveEighty(t *testing.T) {
	file := storetest.Seeded(t, "sqlite")
	backend := &scriptedBackend{
		tableReply: "STUDENT",
		queryReply: "SELECT * FROM STUDENT WHERE MARKS > 80",
	}

	answer := newPipeline(file, backend, engine.NewEngine(file, 5*time.Second)).Ask(context.Background(), "  List all students with marks above 80 ")

	require.False(t, answer.Halted(), "halted at %s: %v", answer.HaltedAt, answer.Err)
	assert.True(t, answer.Succeeded())
	assert.Equal(t, "List all students with marks above 80", answer.Question)
	assert.Equal(t, []string{"STUDENT"}, answer.Tables)
	require.NotNil(t, answer.Schema)
	assert.Equal(t, []string{"STUDENT"}, answer.Schema.TableNames())
	require.NotNil(t, answer.Query)
	assert.Equal(t, query.VerbSelect, answer.Query.Verb)
	assert.Contains(t, answer.Query.SQL, "MARKS > 80")
	require.NotNil(t, answer.Result)
	assert.Len(t, answer.Result.Rows, 5)
}

func TestAskProseHaltsBeforeExecution(t *testing.T) {
	backend := &scriptedBackend{tableReply: "STUDENT", queryReply: "I cannot determine a query"}
	executor := &recordingExecutor{}

	answer := newPipeline(storetest.Seeded(t, "sqlite"), backend, executor).Ask(context.Background(), "What is the meaning of life?")

	assert.Equal(t, StageGenerate, answer.HaltedAt)
	assert.False(t, answer.Succeeded())
	assert.Nil(t, answer.Query)
	assert.Nil(t, answer.Result)
	assert.True(t, apperr.IsKind(answer.Err, apperr.KindUngeneratableQuery))
	assert.Equal(t, "cannot generate query", answer.Err.Error())
	assert.Empty(t, executor.calls, "executor must not run for an ungeneratable query")
}

func TestAskAfterDropReportsExecutionFailure(t *testing.T) {
	file := storetest.Seeded(t, "sqlite")
	exec := engine.NewEngine(file, 0)
	ctx := context.Background()

	drop := newPipeline(file, &scriptedBackend{tableReply: "STUDENT", queryReply: "DROP TABLE STUDENT"}, exec).Ask(ctx, "Remove the student table")
	require.NotNil(t, drop.Result)
	require.True(t, drop.Result.Succeeded(), drop.Result.Error)
	assert.Equal(t, "DROP statement executed successfully", drop.Result.Message)

	again := newPipeline(file, &scriptedBackend{tableReply: "STUDENT", queryReply: "SELECT * FROM STUDENT WHERE MARKS > 80"}, exec).Ask(ctx, "List all students with marks above 80")

	assert.False(t, again.Halted(), "%v", again.Err)
	assert.Empty(t, again.Tables)
	require.NotNil(t, again.Result)
	assert.Equal(t, query.StatusFailure, again.Result.Status)
	assert.Equal(t, "EXECUTION_ERROR", again.Result.ErrorCode)
	assert.Contains(t, again.Result.Error, "no such table")
}

func TestAskExecutionFailureStaysInsideResult(t *testing.T) {
	file := storetest.Seeded(t, "sqlite")
	backend := &scriptedBackend{tableReply: "STUDENT", queryReply: "SELECT AGE FROM STUDENT"}

	answer := newPipeline(file, backend, engine.NewEngine(file, 0)).Ask(context.Background(), "How old are the students?")

	assert.False(t, answer.Halted())
	assert.False(t, answer.Succeeded())
	assert.NoError(t, answer.Err)
	require.NotNil(t, answer.Result)
	assert.Equal(t, query.StatusFailure, answer.Result.Status)
	assert.Contains(t, answer.Result.Error, "AGE")
}

func TestAskSelectionTransportFailureHalts(t *testing.T) {
	backend := &scriptedBackend{tableErr: errModelDown}
	executor := &recordingExecutor{}

	answer := newPipeline(storetest.Seeded(t, "sqlite"), backend, executor).Ask(context.Background(), "q")

	assert.Equal(t, StageSelectTables, answer.HaltedAt)
	assert.True(t, apperr.IsKind(answer.Err, apperr.KindModelTransport))
	assert.Equal(t, 1, backend.calls())
	assert.Empty(t, executor.calls)
}

func TestAskUnavailableStoreHaltsAtSchema(t *testing.T) {
	file, err := store.New(store.Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "missing.db")})
	require.NoError(t, err)
	backend := &scriptedBackend{tableReply: "STUDENT"}

	answer := newPipeline(file, backend, &recordingExecutor{}).Ask(context.Background(), "q")

	assert.Equal(t, StageSchema, answer.HaltedAt)
	assert.True(t, apperr.IsKind(answer.Err, apperr.KindStoreUnavailable))
	assert.Zero(t, backend.calls(), "model must not be called without a schema")
}

func TestAskFallbackScopesEveryTable(t *testing.T) {
	file := storetest.Seeded(t, "sqlite")
	db, err := file.Open(context.Background())
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE COURSE (CODE VARCHAR(10))`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	backend := &scriptedBackend{tableReply: "none of them", queryReply: "SELECT COUNT(*) FROM COURSE"}
	answer := newPipeline(file, backend, engine.NewEngine(file, 0)).Ask(context.Background(), "How many courses?")

	require.False(t, answer.Halted(), "%v", answer.Err)
	assert.Equal(t, []string{"COURSE", "STUDENT"}, answer.Tables)
	assert.Contains(t, backend.prompts[1], "Table: COURSE")
	assert.Contains(t, backend.prompts[1], "Table: STUDENT")
}

func TestTranslateDoesNotExecute(t *testing.T) {
	backend := &scriptedBackend{tableReply: "STUDENT", queryReply: "DELETE FROM STUDENT"}
	executor := &recordingExecutor{}

	answer := newPipeline(storetest.Seeded(t, "sqlite"), backend, executor).Translate(context.Background(), "Remove everyone")

	assert.False(t, answer.Halted())
	require.NotNil(t, answer.Query)
	assert.Equal(t, query.VerbDelete, answer.Query.Verb)
	assert.Nil(t, answer.Result)
	assert.Empty(t, executor.calls)
}
