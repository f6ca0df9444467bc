package archive

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// decodeRowSet spools the object to a temp file and reads the cells back
// with DuckDB's read_parquet.
func decodeRowSet(ctx context.Context, reader io.Reader) ([]string, [][]any, error) {
	workDir, err := os.MkdirTemp("", "sqlask-archive-")
	if err != nil {
		return nil, nil, fmt.Errorf("create archive temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	localPath := filepath.Join(workDir, "result.parquet")
	if err := writeFile(localPath, reader); err != nil {
		return nil, nil, fmt.Errorf("write local parquet file: %w", err)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	cellsSQL := fmt.Sprintf(
		`SELECT row_index, column_index, column_name, value, is_null, value_type FROM read_parquet(%s) ORDER BY row_index, column_index`,
		quoteString(localPath),
	)
	rows, err := db.QueryContext(ctx, cellsSQL)
	if err != nil {
		return nil, nil, fmt.Errorf("read parquet cells: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		columns []string
		out     [][]any
	)
	for rows.Next() {
		var (
			rowIndex    int64
			columnIndex int64
			columnName  string
			value       string
			isNull      bool
			valueType   string
		)
		if err := rows.Scan(&rowIndex, &columnIndex, &columnName, &value, &isNull, &valueType); err != nil {
			return nil, nil, fmt.Errorf("scan cell: %w", err)
		}
		if rowIndex == headerRow {
			columns = placeColumn(columns, int(columnIndex), columnName)
			continue
		}
		if rowIndex < 0 || columnIndex < 0 || int(columnIndex) >= len(columns) {
			return nil, nil, fmt.Errorf("cell (%d, %d) is outside the result shape", rowIndex, columnIndex)
		}
		for int64(len(out)) <= rowIndex {
			out = append(out, make([]any, len(columns)))
		}
		decoded, err := decodeValue(value, valueType, isNull)
		if err != nil {
			return nil, nil, fmt.Errorf("decode cell (%d, %d): %w", rowIndex, columnIndex, err)
		}
		out[rowIndex][columnIndex] = decoded
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate cells: %w", err)
	}
	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("archived result has no columns")
	}
	return columns, out, nil
}

func placeColumn(columns []string, index int, name string) []string {
	for len(columns) <= index {
		columns = append(columns, "")
	}
	columns[index] = name
	return columns
}

func writeFile(path string, reader io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if _, err := io.Copy(file, reader); err != nil {
		return err
	}
	return nil
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
