package storage

import (
	"testing"
	"time"
)

func TestBuildResultPath(t *testing.T) {
	ts := time.Date(2026, time.February, 19, 4, 5, 0, 0, time.FixedZone("x", -5*3600))
	key, err := BuildResultPath(ts, "0b6c1a52-8f0e-4a57-9d7e-1f2a3b4c5d6e")
	if err != nil {
		t.Fatalf("BuildResultPath() error = %v", err)
	}
	want := "results/date=2026-02-19/hour=09/0b6c1a52-8f0e-4a57-9d7e-1f2a3b4c5d6e.parquet"
	if key != want {
		t.Fatalf("BuildResultPath() = %q, want %q", key, want)
	}
	if err := ValidateResultKey(key); err != nil {
		t.Fatalf("ValidateResultKey(%q) error = %v", key, err)
	}
}

func TestBuildResultPathRejectsInvalidID(t *testing.T) {
	if _, err := BuildResultPath(time.Now(), "../oops"); err == nil {
		t.Fatal("expected invalid component error")
	}
	if _, err := BuildResultPath(time.Now(), ""); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestValidateResultKey(t *testing.T) {
	valid := []string{
		"results/date=2026-02-19/hour=09/abc.parquet",
		"/results/date=2026-02-19/hour=23/a-b_c.parquet",
	}
	for _, key := range valid {
		if err := ValidateResultKey(key); err != nil {
			t.Fatalf("ValidateResultKey(%q) error = %v", key, err)
		}
	}
	invalid := []string{
		"",
		"results/../secrets.parquet",
		"results/date=2026-02-19/hour=09/abc.csv",
		"other/date=2026-02-19/hour=09/abc.parquet",
	}
	for _, key := range invalid {
		if err := ValidateResultKey(key); err == nil {
			t.Fatalf("ValidateResultKey(%q) expected error", key)
		}
	}
}
