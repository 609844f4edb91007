package db

import (
	"errors"
	"testing"
	"time"
)

func TestStartAndFinishRun(t *testing.T) {
	handle := openTestDB(t)
	repo := NewSyncLogRepo(handle)

	entry, err := repo.StartRun("store-1", "Main Store", TriggerScheduler)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if entry.Status != LogRunning {
		t.Errorf("status = %q, want %q", entry.Status, LogRunning)
	}

	counts := RunCounts{ProductsProcessed: 12, PricesSet: 7, PricesCleared: 3, Unchanged: 2}
	if err := repo.FinishRun(entry.ID, LogSuccess, counts, "", ""); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, err := repo.Get(entry.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != LogSuccess {
		t.Errorf("status = %q, want %q", got.Status, LogSuccess)
	}
	if got.FinishedAt == nil {
		t.Error("finished_at not set")
	}
	if got.ProductsProcessed != 12 || got.PricesSet != 7 || got.PricesCleared != 3 || got.Unchanged != 2 {
		t.Errorf("counts not persisted: %+v", got)
	}
}

func TestFinishRunIsSingleShot(t *testing.T) {
	handle := openTestDB(t)
	repo := NewSyncLogRepo(handle)

	entry, err := repo.StartRun("store-1", "Main Store", TriggerManual)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := repo.FinishRun(entry.ID, LogFailure, RunCounts{}, "bulk export failed", "detail"); err != nil {
		t.Fatalf("first finish: %v", err)
	}

	err = repo.FinishRun(entry.ID, LogSuccess, RunCounts{PricesSet: 99}, "", "")
	if !errors.Is(err, ErrLogNotFound) {
		t.Fatalf("second finish: got %v, want ErrLogNotFound", err)
	}

	got, err := repo.Get(entry.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != LogFailure || got.ErrorMessage != "bulk export failed" {
		t.Errorf("finalized entry was rewritten: %+v", got)
	}
}

func TestListNewestFirstPerStore(t *testing.T) {
	handle := openTestDB(t)
	repo := NewSyncLogRepo(handle)

	first, err := repo.StartRun("store-1", "Main", TriggerScheduler)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	// push the second entry measurably later
	handle.DB.Model(&SyncLog{}).Where("id = ?", first.ID).
		Update("started_at", time.Now().UTC().Add(-time.Hour))

	if _, err := repo.StartRun("store-1", "Main", TriggerManual); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := repo.StartRun("store-2", "Other", TriggerScheduler); err != nil {
		t.Fatalf("start: %v", err)
	}

	entries, err := repo.List("store-1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].TriggeredBy != TriggerManual {
		t.Errorf("entries not newest-first: %+v", entries)
	}
}

func TestReconcileStaleMarksAbandonedRuns(t *testing.T) {
	handle := openTestDB(t)
	repo := NewSyncLogRepo(handle)

	stale, err := repo.StartRun("store-1", "Main", TriggerScheduler)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	handle.DB.Model(&SyncLog{}).Where("id = ?", stale.ID).
		Update("started_at", time.Now().UTC().Add(-8*time.Hour))

	fresh, err := repo.StartRun("store-1", "Main", TriggerScheduler)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	reconciled, err := repo.ReconcileStale(6 * time.Hour)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if reconciled != 1 {
		t.Errorf("reconciled %d entries, want 1", reconciled)
	}

	got, err := repo.Get(stale.ID)
	if err != nil {
		t.Fatalf("get stale: %v", err)
	}
	if got.Status != LogFailure || got.FinishedAt == nil {
		t.Errorf("stale entry not finalized: %+v", got)
	}

	got, err = repo.Get(fresh.ID)
	if err != nil {
		t.Fatalf("get fresh: %v", err)
	}
	if got.Status != LogRunning {
		t.Errorf("fresh running entry was reconciled: %+v", got)
	}
}
