// Package archive uploads successful read results to an object store as
// Parquet and reads them back.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sqlask/sqlask/internal/observability"
	"github.com/sqlask/sqlask/internal/query"
	"github.com/sqlask/sqlask/internal/storage"
)

const contentType = "application/vnd.apache.parquet"

const (
	metaQuestion  = "question"
	metaSQL       = "sql"
	metaCreatedAt = "created-at"
)

// ErrNotArchivable is returned for results that carry no row set.
var ErrNotArchivable = errors.New("only successful read results can be archived")

// Record is an archived result together with the question that produced it.
type Record struct {
	Key       string                `json:"key"`
	Question  string                `json:"question"`
	SQL       string                `json:"sql"`
	CreatedAt time.Time             `json:"created_at"`
	Result    query.ExecutionResult `json:"result"`
}

type Archiver struct {
	store  storage.ObjectStore
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func New(store storage.ObjectStore, logger *slog.Logger) (*Archiver, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Archiver{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}, nil
}

// Save encodes a row-set result and uploads it under a fresh result key.
func (a *Archiver) Save(ctx context.Context, question string, q query.GeneratedQuery, result query.ExecutionResult) (info storage.ObjectInfo, err error) {
	defer func() { observability.ObserveArchiveUpload(err) }()

	if !result.IsRowSet() {
		return storage.ObjectInfo{}, ErrNotArchivable
	}
	encoded, err := encodeRowSet(result.Columns, result.Rows)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("encode result: %w", err)
	}

	createdAt := a.now()
	key, err := storage.BuildResultPath(createdAt, a.newID())
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err = a.store.Put(ctx, key, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			metaQuestion:  url.QueryEscape(question),
			metaSQL:       url.QueryEscape(q.SQL),
			metaCreatedAt: createdAt.Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("upload result: %w", err)
	}
	info.Key = key
	a.logger.InfoContext(ctx, "result archived",
		slog.String("key", key),
		slog.Int("rows", result.RowCount),
		slog.Int64("cells", encoded.CellCount),
		slog.Int64("bytes", int64(len(encoded.Data))),
	)
	return info, nil
}

// Load downloads an archived result and decodes it.
func (a *Archiver) Load(ctx context.Context, key string) (Record, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if err := storage.ValidateResultKey(key); err != nil {
		return Record{}, err
	}
	info, err := a.store.Stat(ctx, key)
	if err != nil {
		return Record{}, err
	}

	reader, err := a.store.Get(ctx, key)
	if err != nil {
		return Record{}, err
	}
	columns, rows, err := decodeRowSet(ctx, reader)
	closeErr := reader.Close()
	if err != nil {
		return Record{}, fmt.Errorf("decode result %q: %w", key, err)
	}
	if closeErr != nil {
		return Record{}, fmt.Errorf("close object %q: %w", key, closeErr)
	}

	record := Record{
		Key:      key,
		Question: unescapeMetadata(info.Metadata[metaQuestion]),
		SQL:      unescapeMetadata(info.Metadata[metaSQL]),
		Result:   query.RowSet(columns, rows),
	}
	if raw := info.Metadata[metaCreatedAt]; raw != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			record.CreatedAt = parsed
		}
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = info.LastModified
	}
	return record, nil
}

func (a *Archiver) Delete(ctx context.Context, key string) error {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if err := storage.ValidateResultKey(key); err != nil {
		return err
	}
	return a.store.Delete(ctx, key)
}

func unescapeMetadata(value string) string {
	unescaped, err := url.QueryUnescape(value)
	if err != nil {
		return value
	}
	return unescaped
}
