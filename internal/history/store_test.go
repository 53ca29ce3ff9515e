package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subtrans/internal/history"
	"subtrans/internal/testsupport"
)

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	id, err := store.BeginRun(ctx, history.Run{
		SourceLanguage: "English",
		TargetLanguage: "Romanian",
		Model:          "gpt-4o-mini",
		InputDir:       "/in",
		OutputDir:      "/out",
	})
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if len(id) != 36 {
		t.Fatalf("expected generated uuid, got %q", id)
	}

	records := []history.FileRecord{
		{Name: "ep1.srt", OutputPath: "/out/ep1.srt", Status: "written", Entries: 120, Chunks: 3, Attempts: 3, Duration: 1500 * time.Millisecond},
		{Name: "ep2.srt", OutputPath: "/out/ep2.srt", Status: "written_with_fallbacks", Entries: 80, Chunks: 2, Fallbacks: 1, Attempts: 5},
		{Name: "ep3.srt", Status: "failed", Reason: "parse error", Kind: "parse"},
	}
	for _, rec := range records {
		if err := store.RecordFile(ctx, id, rec); err != nil {
			t.Fatalf("RecordFile(%s) failed: %v", rec.Name, err)
		}
	}
	if err := store.FinishRun(ctx, id, history.RunPartial, ""); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.Status != history.RunPartial {
		t.Fatalf("unexpected status %q", run.Status)
	}
	if run.Files != 3 || run.Written != 2 || run.Failed != 1 || run.Fallbacks != 1 {
		t.Fatalf("unexpected aggregates: %+v", run)
	}
	if run.FinishedAt.IsZero() || run.Duration() < 0 {
		t.Fatalf("expected finished timestamp, got %+v", run)
	}
	if run.InputDir != "/in" || run.OutputDir != "/out" {
		t.Fatalf("unexpected dirs: %q %q", run.InputDir, run.OutputDir)
	}

	files, err := store.Files(ctx, id)
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}
	if files[0].Name != "ep1.srt" || files[0].Duration != 1500*time.Millisecond {
		t.Fatalf("unexpected first record: %+v", files[0])
	}
	if files[2].Reason != "parse error" || files[2].Kind != "parse" || files[2].OutputPath != "" {
		t.Fatalf("unexpected failed record: %+v", files[2])
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		if _, err := store.BeginRun(ctx, history.Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Minute), SourceLanguage: "English", TargetLanguage: "German", Model: "m"}); err != nil {
			t.Fatalf("BeginRun(%s) failed: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if runs[0].Status != history.RunRunning {
		t.Fatalf("expected running status, got %q", runs[0].Status)
	}
}

func TestGetRunByPrefix(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"abc123", "abd456"} {
		if _, err := store.BeginRun(ctx, history.Run{ID: id, SourceLanguage: "English", TargetLanguage: "German", Model: "m"}); err != nil {
			t.Fatalf("BeginRun failed: %v", err)
		}
	}

	run, err := store.GetRun(ctx, "abc")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run == nil || run.ID != "abc123" {
		t.Fatalf("expected abc123, got %+v", run)
	}

	if _, err := store.GetRun(ctx, "ab"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("expected ambiguous prefix error, got %v", err)
	}

	missing, err := store.GetRun(ctx, "zzz")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown id, got %+v, %v", missing, err)
	}
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	id, err := store.BeginRun(context.Background(), history.Run{SourceLanguage: "English", TargetLanguage: "French", Model: "m"})
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	run, err := reopened.GetRun(context.Background(), id)
	if err != nil || run == nil {
		t.Fatalf("expected run after reopen, got %+v, %v", run, err)
	}
	if reopened.Path() != path {
		t.Fatalf("unexpected path %q", reopened.Path())
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := history.Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := history.Open(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
