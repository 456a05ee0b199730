package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// createTestDB creates a temporary database for testing.
func createTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := InitDB(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRun(id, date string, finished time.Time) Run {
	return Run{
		ID:         id,
		Date:       date,
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
		Lists:      2,
		Added:      5,
		Completed:  1,
	}
}

func TestInitDB_CreatesTables(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")

	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}

	for _, table := range []string{"meta", "sync_runs"} {
		var name string
		err := db.conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("failed to find %s table: %v", table, err)
		}
	}
}

func TestLastSync_EmptyWhenNeverSynced(t *testing.T) {
	db := createTestDB(t)

	got, err := db.LastSync(context.Background())
	if err != nil {
		t.Fatalf("LastSync() unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("LastSync() = %q, want empty", got)
	}
}

func TestCompleteSync_OverwritesCursor(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	if err := db.CompleteSync(ctx, testRun("r1", "2025-01-01", base)); err != nil {
		t.Fatalf("CompleteSync(r1) failed: %v", err)
	}
	if err := db.CompleteSync(ctx, testRun("r2", "2025-01-02", base.Add(24*time.Hour))); err != nil {
		t.Fatalf("CompleteSync(r2) failed: %v", err)
	}

	got, err := db.LastSync(ctx)
	if err != nil {
		t.Fatalf("LastSync() unexpected error: %v", err)
	}
	if got != "2025-01-02" {
		t.Errorf("LastSync() = %q, want 2025-01-02", got)
	}

	var count int
	db.conn.QueryRow("SELECT COUNT(*) FROM meta").Scan(&count)
	if count != 1 {
		t.Errorf("meta rows = %d, want a single cursor row", count)
	}
}

func TestCompleteSync_DuplicateRunLeavesCursor(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	if err := db.CompleteSync(ctx, testRun("r1", "2025-01-01", base)); err != nil {
		t.Fatalf("CompleteSync(r1) failed: %v", err)
	}
	// Reusing the id violates the primary key, so the whole transaction rolls back.
	if err := db.CompleteSync(ctx, testRun("r1", "2025-01-05", base.Add(time.Hour))); err == nil {
		t.Fatal("expected duplicate run id to fail")
	}

	got, _ := db.LastSync(ctx)
	if got != "2025-01-01" {
		t.Errorf("cursor moved to %q despite failed transaction", got)
	}
}

func TestCompleteSync_RequiresIDAndDate(t *testing.T) {
	db := createTestDB(t)

	if err := db.CompleteSync(context.Background(), Run{Date: "2025-01-01"}); err == nil {
		t.Error("expected error for run without id")
	}
	if err := db.CompleteSync(context.Background(), Run{ID: "x"}); err == nil {
		t.Error("expected error for run without date")
	}
}

func TestClearCursor(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()

	if err := db.CompleteSync(ctx, testRun("r1", "2025-01-01", time.Now())); err != nil {
		t.Fatalf("CompleteSync failed: %v", err)
	}
	if err := db.ClearCursor(ctx); err != nil {
		t.Fatalf("ClearCursor failed: %v", err)
	}

	got, _ := db.LastSync(ctx)
	if got != "" {
		t.Errorf("LastSync() after clear = %q, want empty", got)
	}

	runs, _ := db.RecentRuns(ctx, 10)
	if len(runs) != 1 {
		t.Errorf("clearing the cursor must keep history, got %d runs", len(runs))
	}
}

func TestRecentRuns_NewestFirst(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		run := testRun(id, base.AddDate(0, 0, i).Format("2006-01-02"), base.AddDate(0, 0, i))
		if err := db.CompleteSync(ctx, run); err != nil {
			t.Fatalf("CompleteSync(%s) failed: %v", id, err)
		}
	}

	runs, err := db.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns() failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("RecentRuns(2) returned %d runs", len(runs))
	}
	if runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("unexpected order: %s, %s", runs[0].ID, runs[1].ID)
	}
	if !runs[0].FinishedAt.Equal(base.AddDate(0, 0, 2)) {
		t.Errorf("FinishedAt = %v", runs[0].FinishedAt)
	}
	if runs[0].Added != 5 || runs[0].Lists != 2 || runs[0].Completed != 1 {
		t.Errorf("counters not round-tripped: %+v", runs[0])
	}
}

func TestInitDB_CanReopenExistingDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	if err := db.CompleteSync(ctx, testRun("r1", "2025-01-01", time.Now())); err != nil {
		t.Fatalf("CompleteSync failed: %v", err)
	}
	db.Close()

	db, err = InitDB(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	got, _ := db.LastSync(ctx)
	if got != "2025-01-01" {
		t.Errorf("LastSync() after reopen = %q", got)
	}
}
