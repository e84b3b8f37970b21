package dblog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type insertedLog struct {
	level    string
	message  string
	metadata string
}

type fakeInserter struct {
	rows []insertedLog
	err  error
}

func (f *fakeInserter) InsertLog(_ context.Context, level, message, metadata string) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, insertedLog{level: level, message: message, metadata: metadata})
	return nil
}

func TestHandlerWritesToDatabase(t *testing.T) {
	inserter := &fakeInserter{}
	var fallbackBuf bytes.Buffer
	logger := slog.New(New(inserter, slog.NewTextHandler(&fallbackBuf, nil), slog.LevelInfo))

	logger.Info("file processed successfully", "file_id", "f1", "status", "ready")

	if len(inserter.rows) != 1 {
		t.Fatalf("expected one log row, got %d", len(inserter.rows))
	}
	row := inserter.rows[0]
	if row.level != "info" || row.message != "file processed successfully" {
		t.Errorf("unexpected row %+v", row)
	}

	var metadata map[string]string
	if err := json.Unmarshal([]byte(row.metadata), &metadata); err != nil {
		t.Fatalf("metadata is not valid JSON: %v", err)
	}
	if metadata["file_id"] != "f1" || metadata["status"] != "ready" {
		t.Errorf("unexpected metadata %v", metadata)
	}
	if fallbackBuf.Len() != 0 {
		t.Errorf("fallback should stay quiet on success, got %q", fallbackBuf.String())
	}
}

func TestHandlerFallsBackWhenInsertFails(t *testing.T) {
	inserter := &fakeInserter{err: errors.New("connection lost")}
	var fallbackBuf bytes.Buffer
	logger := slog.New(New(inserter, slog.NewTextHandler(&fallbackBuf, nil), slog.LevelInfo))

	logger.Error("cycle failed", "error", "boom")

	if !strings.Contains(fallbackBuf.String(), "cycle failed") {
		t.Errorf("expected the record on the fallback handler, got %q", fallbackBuf.String())
	}
}

func TestHandlerRespectsLevel(t *testing.T) {
	inserter := &fakeInserter{}
	logger := slog.New(New(inserter, slog.NewTextHandler(&bytes.Buffer{}, nil), slog.LevelInfo))

	logger.Debug("noise")

	if len(inserter.rows) != 0 {
		t.Errorf("debug record should be filtered at info level, got %v", inserter.rows)
	}
}

func TestHandlerCarriesWithAttrsAndGroups(t *testing.T) {
	inserter := &fakeInserter{}
	base := slog.New(New(inserter, slog.NewTextHandler(&bytes.Buffer{}, nil), slog.LevelInfo))
	logger := base.With("cycle_id", "c-1").WithGroup("upload").With("kind", "image")

	logger.Info("dispatched", "file_id", "f9")

	if len(inserter.rows) != 1 {
		t.Fatalf("expected one log row, got %d", len(inserter.rows))
	}
	var metadata map[string]string
	if err := json.Unmarshal([]byte(inserter.rows[0].metadata), &metadata); err != nil {
		t.Fatalf("metadata is not valid JSON: %v", err)
	}
	if metadata["cycle_id"] != "c-1" {
		t.Errorf("expected ungrouped attr preserved, got %v", metadata)
	}
	if metadata["upload.kind"] != "image" || metadata["upload.file_id"] != "f9" {
		t.Errorf("expected group-qualified attrs, got %v", metadata)
	}
}

func TestLevelNames(t *testing.T) {
	cases := map[slog.Level]string{
		slog.LevelDebug: "debug",
		slog.LevelInfo:  "info",
		slog.LevelWarn:  "warn",
		slog.LevelError: "error",
	}
	for level, want := range cases {
		if got := levelName(level); got != want {
			t.Errorf("%v: expected %q, got %q", level, want, got)
		}
	}
}
