package engine

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlask/sqlask/internal/query"
	"github.com/sqlask/sqlask/internal/store"
	"github.com/sqlask/sqlask/internal/store/storetest"
)

func mustQuery(t *testing.T, sqlText string) query.GeneratedQuery {
	t.Helper()
	q, err := query.NewGeneratedQuery(sqlText)
	require.NoError(t, err)
	return q
}

func TestExecuteSelectReturnsEveryRow(t *testing.T) {
	for _, driver := range []string{"sqlite", "duckdb"} {
		t.Run(driver, func(t *testing.T) {
			engine := NewEngine(storetest.Seeded(t, driver), 5*time.Second)

			result := engine.Execute(context.Background(), mustQuery(t, "SELECT NAME, MARKS FROM STUDENT WHERE MARKS > 80 ORDER BY NAME;"))

			require.True(t, result.Succeeded(), result.Error)
			assert.True(t, result.IsRowSet())
			assert.Equal(t, []string{"NAME", "MARKS"}, result.Columns)
			require.Len(t, result.Rows, 5)
			assert.Equal(t, 5, result.RowCount)
			assert.Equal(t, "Abhinav", result.Rows[0][0])
			assert.Nil(t, result.RowsAffected)
		})
	}
}

func TestExecuteSelectWithNoMatchesIsSuccess(t *testing.T) {
	engine := NewEngine(storetest.Seeded(t, "sqlite"), 0)

	result := engine.Execute(context.Background(), mustQuery(t, "SELECT NAME FROM STUDENT WHERE MARKS < 10"))

	require.True(t, result.Succeeded(), result.Error)
	assert.Equal(t, []string{"NAME"}, result.Columns)
	assert.Empty(t, result.Rows)
	assert.NotNil(t, result.Rows)
	assert.Zero(t, result.RowCount)
}

func TestExecuteWritesReportAffectedRows(t *testing.T) {
	for _, driver := range []string{"sqlite", "duckdb"} {
		t.Run(driver, func(t *testing.T) {
			file := storetest.Seeded(t, driver)
			engine := NewEngine(file, 5*time.Second)
			ctx := context.Background()

			insert := engine.Execute(ctx, mustQuery(t, "INSERT INTO STUDENT VALUES ('Meera', 'Statistics', 'B', 75)"))
			require.True(t, insert.Succeeded(), insert.Error)
			require.NotNil(t, insert.RowsAffected)
			assert.Equal(t, int64(1), *insert.RowsAffected)
			assert.Equal(t, "1 row(s) affected", insert.Message)
			assert.Equal(t, 6, storetest.Count(t, file, "STUDENT"))

			update := engine.Execute(ctx, mustQuery(t, "UPDATE STUDENT SET MARKS = 95 WHERE SECTION = 'A'"))
			require.True(t, update.Succeeded(), update.Error)
			assert.Equal(t, int64(5), *update.RowsAffected)

			remove := engine.Execute(ctx, mustQuery(t, "delete from STUDENT where MARKS = 95"))
			require.True(t, remove.Succeeded(), remove.Error)
			assert.Equal(t, int64(5), *remove.RowsAffected)
			assert.Equal(t, 1, storetest.Count(t, file, "STUDENT"))
		})
	}
}

func TestExecuteSchemaChangeReportsGenericSuccess(t *testing.T) {
	file := storetest.Seeded(t, "sqlite")
	engine := NewEngine(file, 0)
	ctx := context.Background()

	created := engine.Execute(ctx, mustQuery(t, "CREATE TABLE COURSE (CODE VARCHAR(10), TITLE VARCHAR(50))"))
	require.True(t, created.Succeeded(), created.Error)
	assert.Equal(t, query.VerbCreate, created.Verb)
	assert.Equal(t, "CREATE statement executed successfully", created.Message)
	assert.Nil(t, created.RowsAffected)

	altered := engine.Execute(ctx, mustQuery(t, "ALTER TABLE COURSE ADD COLUMN CREDITS INT"))
	require.True(t, altered.Succeeded(), altered.Error)

	dropped := engine.Execute(ctx, mustQuery(t, "DROP TABLE COURSE"))
	require.True(t, dropped.Succeeded(), dropped.Error)
	assert.Equal(t, "DROP statement executed successfully", dropped.Message)
}

func TestExecuteAfterDropReportsFailureVerbatim(t *testing.T) {
	file := storetest.Seeded(t, "sqlite")
	engine := NewEngine(file, 0)
	ctx := context.Background()

	dropped := engine.Execute(ctx, mustQuery(t, "DROP TABLE STUDENT"))
	require.True(t, dropped.Succeeded(), dropped.Error)

	result := engine.Execute(ctx, mustQuery(t, "SELECT * FROM STUDENT WHERE MARKS > 80"))

	assert.False(t, result.Succeeded())
	assert.Equal(t, query.StatusFailure, result.Status)
	assert.Contains(t, result.Error, "no such table")
	assert.Equal(t, "EXECUTION_ERROR", result.ErrorCode)
	assert.Empty(t, result.Rows)
}

func TestExecuteSyntaxErrorIsFailure(t *testing.T) {
	engine := NewEngine(storetest.Seeded(t, "sqlite"), 0)

	result := engine.Execute(context.Background(), mustQuery(t, "SELECT FROM WHERE"))

	assert.Equal(t, query.StatusFailure, result.Status)
	assert.NotEmpty(t, result.Error)
}

func TestExecuteUnavailableStore(t *testing.T) {
	file, err := store.New(store.Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "gone.db")})
	require.NoError(t, err)

	result := NewEngine(file, 0).Execute(context.Background(), mustQuery(t, "SELECT 1"))

	assert.Equal(t, query.StatusFailure, result.Status)
	assert.Equal(t, "STORE_UNAVAILABLE", result.ErrorCode)
	assert.Contains(t, result.Error, "does not exist")
}

func TestExecuteRejectsUnclassifiedStatement(t *testing.T) {
	opened := false
	s := store.Func{
		OpenFunc: func(context.Context) (*sql.DB, error) {
			opened = true
			return nil, errors.New("unexpected")
		},
		Dialect: store.DriverSQLite,
	}

	result := NewEngine(s, 0).Execute(context.Background(), query.GeneratedQuery{SQL: "I cannot determine a query"})

	assert.Equal(t, query.StatusFailure, result.Status)
	assert.Equal(t, "UNGENERATABLE_QUERY", result.ErrorCode)
	assert.False(t, opened, "store must not be touched for an unclassified statement")
}

func TestExecuteClassifiesMissingVerb(t *testing.T) {
	result := NewEngine(storetest.Seeded(t, "sqlite"), 0).Execute(context.Background(), query.GeneratedQuery{SQL: "select count(*) from STUDENT"})

	require.True(t, result.Succeeded(), result.Error)
	assert.Equal(t, query.VerbSelect, result.Verb)
	assert.Equal(t, int64(5), result.Rows[0][0])
}

func TestExecuteKeepsDriverErrorText(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectExec("UPDATE STUDENT").WillReturnError(errors.New("database is locked"))
	mock.ExpectClose()

	s := store.Func{
		OpenFunc: func(context.Context) (*sql.DB, error) { return db, nil },
		Dialect:  store.DriverSQLite,
	}
	result := NewEngine(s, 0).Execute(context.Background(), mustQuery(t, "UPDATE STUDENT SET MARKS = 1"))

	assert.Equal(t, query.StatusFailure, result.Status)
	assert.Equal(t, "database is locked", result.Error)
	assert.Equal(t, query.VerbUpdate, result.Verb)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteSpellsOutNonFiniteFloats(t *testing.T) {
	engine := NewEngine(storetest.Seeded(t, "sqlite"), 0)

	result := engine.Execute(context.Background(), mustQuery(t, "SELECT 1e999 AS big, -1e999 AS small, NAME FROM STUDENT WHERE NAME = 'Krish'"))

	require.True(t, result.Succeeded(), result.Error)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, []any{"+Inf", "-Inf", "Krish"}, result.Rows[0])
	_, err := json.Marshal(result)
	assert.NoError(t, err)
}

func TestNormalizeValuesKeepsFiniteFloats(t *testing.T) {
	got := normalizeValues([]any{1.5, float32(2.5), math.NaN(), []byte("A"), nil})

	assert.Equal(t, 1.5, got[0])
	assert.Equal(t, float32(2.5), got[1])
	assert.Equal(t, "NaN", got[2])
	assert.Equal(t, "A", got[3])
	assert.Nil(t, got[4])
}

func TestExecuteLogsMissingAffectedCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectExec("DELETE FROM STUDENT").WillReturnResult(sqlmock.NewErrorResult(errors.New("count not supported")))
	mock.ExpectClose()

	var logs bytes.Buffer
	s := store.Func{
		OpenFunc: func(context.Context) (*sql.DB, error) { return db, nil },
		Dialect:  store.DriverSQLite,
	}
	result := NewEngine(s, 0).
		WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))).
		Execute(context.Background(), mustQuery(t, "DELETE FROM STUDENT"))

	require.True(t, result.Succeeded(), result.Error)
	assert.Nil(t, result.RowsAffected)
	assert.Contains(t, result.Message, "affected row count unavailable")
	assert.Contains(t, logs.String(), "count not supported")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStripTrailingSemicolons(t *testing.T) {
	if got := stripTrailingSemicolons(" SELECT 1 ; ; "); got != "SELECT 1" {
		t.Fatalf("stripTrailingSemicolons() = %q", got)
	}
}
