package store

import "strings"

// Driver names the embedded engine that reads the store file.
type Driver string

const (
	DriverSQLite Driver = "sqlite"
	DriverDuckDB Driver = "duckdb"
)

// ParseDriver accepts the usual aliases for each engine.
func ParseDriver(raw string) Driver {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqlite", "sqlite3":
		return DriverSQLite
	case "duckdb":
		return DriverDuckDB
	default:
		return Driver(raw)
	}
}

// Name is the database/sql driver name registered for the engine.
func (d Driver) Name() string {
	switch d {
	case DriverSQLite:
		return "sqlite"
	case DriverDuckDB:
		return "duckdb"
	default:
		return ""
	}
}

func (d Driver) String() string {
	return string(d)
}

func (d Driver) IsValid() bool {
	return d.Name() != ""
}
