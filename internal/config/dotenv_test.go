package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotEnvSetsMissingVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SQLASK_DOTENV_PROBE=from-file\nSQLASK_DOTENV_KEEP=from-file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("SQLASK_DOTENV_KEEP", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("SQLASK_DOTENV_PROBE") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("SQLASK_DOTENV_PROBE"); got != "from-file" {
		t.Fatalf("SQLASK_DOTENV_PROBE = %q", got)
	}
	if got := os.Getenv("SQLASK_DOTENV_KEEP"); got != "from-env" {
		t.Fatalf("SQLASK_DOTENV_KEEP = %q, environment should win", got)
	}
}

func TestLoadDotEnvSkipsMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
}
