// Package schema describes the tables and columns of the store so that they
// can be shown to a language model.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	apperr "github.com/sqlask/sqlask/internal/errors"
	"github.com/sqlask/sqlask/internal/store"
	"github.com/sqlask/sqlask/internal/store/seed"
)

// sqlitePrefix is reserved by SQLite for its own catalog tables.
const sqlitePrefix = "sqlite_"

const (
	sqliteTablesQuery = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\' ORDER BY name`
	duckdbTablesQuery = `SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' AND table_type = 'BASE TABLE' ORDER BY table_name`
	duckdbColumnQuery = `SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = 'main' AND table_name = ? ORDER BY ordinal_position`
)

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Description is a point-in-time snapshot of the store's tables, sorted by
// name, with columns in their natural order.
type Description struct {
	Tables []Table `json:"tables"`
}

func (d Description) TableNames() []string {
	names := make([]string, 0, len(d.Tables))
	for _, table := range d.Tables {
		names = append(names, table.Name)
	}
	return names
}

func (d Description) Lookup(name string) (Table, bool) {
	for _, table := range d.Tables {
		if table.Name == name {
			return table, true
		}
	}
	return Table{}, false
}

// Scope keeps only the named tables, in the order given. Unknown names are
// ignored.
func (d Description) Scope(names []string) Description {
	scoped := Description{Tables: make([]Table, 0, len(names))}
	for _, name := range names {
		if table, ok := d.Lookup(name); ok {
			scoped.Tables = append(scoped.Tables, table)
		}
	}
	return scoped
}

// Render formats the description the way prompts present it:
//
//	Table: STUDENT
//	Columns: NAME (VARCHAR(25)), MARKS (INT)
func (d Description) Render() string {
	var b strings.Builder
	for i, table := range d.Tables {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Table: ")
		b.WriteString(table.Name)
		b.WriteString("\nColumns: ")
		for j, column := range table.Columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(column.Name)
			if column.Type != "" {
				b.WriteString(" (")
				b.WriteString(column.Type)
				b.WriteString(")")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

type Reader struct {
	store store.Store
}

func NewReader(s store.Store) *Reader {
	return &Reader{store: s}
}

// Describe opens the store, reads its catalog and closes it again. Nothing is
// cached between calls.
func (r *Reader) Describe(ctx context.Context) (Description, error) {
	db, err := r.store.Open(ctx)
	if err != nil {
		return Description{}, err
	}
	defer func() { _ = db.Close() }()

	var description Description
	switch r.store.Driver() {
	case store.DriverDuckDB:
		description, err = describeDuckDB(ctx, db)
	default:
		description, err = describeSQLite(ctx, db)
	}
	if err != nil {
		return Description{}, apperr.Wrap(err, apperr.KindStoreUnavailable, "read store catalog")
	}
	return description, nil
}

func describeSQLite(ctx context.Context, db *sql.DB) (Description, error) {
	names, err := listTables(ctx, db, sqliteTablesQuery)
	if err != nil {
		return Description{}, err
	}

	description := Description{Tables: make([]Table, 0, len(names))}
	for _, name := range names {
		columns, err := sqliteColumns(ctx, db, name)
		if err != nil {
			return Description{}, err
		}
		description.Tables = append(description.Tables, Table{Name: name, Columns: columns})
	}
	return description, nil
}

func sqliteColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteLiteral(table)))
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []Column
	for rows.Next() {
		var (
			cid          int
			name         string
			declaredType string
			notNull      int
			defaultValue sql.NullString
			primaryKey   int
		)
		if err := rows.Scan(&cid, &name, &declaredType, &notNull, &defaultValue, &primaryKey); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		columns = append(columns, Column{Name: name, Type: declaredType})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	return columns, nil
}

func describeDuckDB(ctx context.Context, db *sql.DB) (Description, error) {
	names, err := listTables(ctx, db, duckdbTablesQuery)
	if err != nil {
		return Description{}, err
	}

	description := Description{Tables: make([]Table, 0, len(names))}
	for _, name := range names {
		columns, err := duckdbColumns(ctx, db, name)
		if err != nil {
			return Description{}, err
		}
		description.Tables = append(description.Tables, Table{Name: name, Columns: columns})
	}
	return description, nil
}

func duckdbColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, duckdbColumnQuery, table)
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []Column
	for rows.Next() {
		var column Column
		if err := rows.Scan(&column.Name, &column.Type); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	return columns, nil
}

// listTables drains the table list before any per-table query runs; the
// store handle allows a single connection.
func listTables(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		if isInternal(name) {
			continue
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

// isInternal hides SQLite's catalog tables and the seed bookkeeping table.
// Other tables are shown whatever their name.
func isInternal(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), sqlitePrefix) || strings.EqualFold(name, seed.VersionTable)
}

func quoteLiteral(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
