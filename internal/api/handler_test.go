package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sqlask/sqlask/internal/config"
	"github.com/sqlask/sqlask/internal/store"
	"github.com/sqlask/sqlask/internal/store/storetest"
)

func TestHealthEndpoint(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["service"] != "sqlask-api" {
		t.Fatalf("service = %v", body["service"])
	}
}

func TestReadyEndpointReturns503WhenDependencyFails(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{
		Readiness: func(context.Context) error {
			return errors.New("dependency down")
		},
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error_code"] != "NOT_READY" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestReadyEndpointChecksStoreFile(t *testing.T) {
	seeded := storetest.Seeded(t, "sqlite")
	h := NewHandler(testConfig(t), Dependencies{Readiness: CheckStore(seeded)})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}

	missing, err := store.New(store.Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "absent.db")})
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	h = NewHandler(testConfig(t), Dependencies{Readiness: CheckStore(missing)})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestCheckObjectStoreConfigOnlyWhenArchiveEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.ObjectStore.Bucket = ""
	if err := CheckObjectStoreConfig(cfg)(context.Background()); err != nil {
		t.Fatalf("disabled archive should pass, got %v", err)
	}
	cfg.Archive.Enabled = true
	if err := CheckObjectStoreConfig(cfg)(context.Background()); err == nil {
		t.Fatal("expected missing bucket error")
	}
}

func TestCombineReadinessChecksStopsOnFirstFailure(t *testing.T) {
	order := make([]int, 0, 3)
	combined := CombineReadinessChecks(
		func(_ context.Context) error {
			order = append(order, 1)
			return nil
		},
		nil,
		func(_ context.Context) error {
			order = append(order, 2)
			return errors.New("boom")
		},
		func(_ context.Context) error {
			order = append(order, 3)
			return nil
		},
	)

	err := combined(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("execution order = %#v", order)
	}
}

func TestUIHandlerServesNonAPIRoutes(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{
		UI: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, "<html>ok</html>")
		}),
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "<html>") {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestUnconfiguredRoutesReturn501(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{})
	tests := []struct {
		method string
		path   string
		body   string
		code   string
	}{
		{method: http.MethodPost, path: "/v1/ask", body: `{"question":"q"}`, code: "PIPELINE_NOT_CONFIGURED"},
		{method: http.MethodPost, path: "/v1/query/translate", body: `{"question":"q"}`, code: "TRANSLATE_NOT_CONFIGURED"},
		{method: http.MethodPost, path: "/v1/query", body: `{"sql":"SELECT 1"}`, code: "QUERY_NOT_CONFIGURED"},
		{method: http.MethodGet, path: "/v1/schema", code: "SCHEMA_NOT_CONFIGURED"},
		{method: http.MethodPost, path: "/v1/bootstrap", code: "BOOTSTRAP_NOT_CONFIGURED"},
		{method: http.MethodGet, path: "/v1/results/results/date=2026-02-19/hour=10/a.parquet", code: "ARCHIVE_NOT_CONFIGURED"},
		{method: http.MethodDelete, path: "/v1/results/results/date=2026-02-19/hour=10/a.parquet", code: "ARCHIVE_NOT_CONFIGURED"},
	}
	for _, tc := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body)))
		if rr.Code != http.StatusNotImplemented {
			t.Fatalf("%s %s status = %d", tc.method, tc.path, rr.Code)
		}
		if body := decodeBody(t, rr); body["error_code"] != tc.code {
			t.Fatalf("%s %s error_code = %v, want %s", tc.method, tc.path, body["error_code"], tc.code)
		}
	}
}

func TestWriteJSONReportsEncodingFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusOK, map[string]any{"value": math.Inf(1)})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error_code"] != "RESPONSE_ENCODING_FAILED" {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("sqlask-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	return cfg
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v (body=%s)", err, rr.Body.String())
	}
	return body
}

func mapLookup(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
