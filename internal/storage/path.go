package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

const resultsRoot = "results"

var (
	pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)
	resultKeyPattern     = regexp.MustCompile(`^results/date=\d{4}-\d{2}-\d{2}/hour=\d{2}/[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}\.parquet$`)
)

// BuildResultPath lays archived results out by creation hour:
// results/date=YYYY-MM-DD/hour=HH/<id>.parquet.
func BuildResultPath(createdAt time.Time, id string) (string, error) {
	if err := validatePathComponent(id, "result id"); err != nil {
		return "", err
	}
	ts := createdAt.UTC()
	return path.Join(
		resultsRoot,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("hour=%02d", ts.Hour()),
		id+".parquet",
	), nil
}

// ValidateResultKey accepts only keys BuildResultPath can produce.
func ValidateResultKey(key string) error {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if !resultKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid result key: %q", key)
	}
	return nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
