package repositories

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"peakform/amsbridge/internal/importer"
	gormModels "peakform/amsbridge/internal/models/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&gormModels.ImportRun{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	return db
}

func TestRecordRunPersistsOutcome(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImportRunRepo(db)

	summary := &importer.Summary{
		Attempted: 3,
		Succeeded: 2,
		Failed: []importer.FailedRecord{
			{Identifier: "ghost", Reason: "User not found for username value 'ghost'"},
		},
	}

	started := time.Now().Add(-time.Second)
	if err := repo.RecordRun(context.Background(), "req-1", "Training Log", importer.ModeInsert, summary, started); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	runs, err := repo.RecentRuns(context.Background(), "Training Log", 10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}

	run := runs[0]
	if run.Attempted != 3 || run.Succeeded != 2 || run.Failed != 1 {
		t.Errorf("counts not persisted: %+v", run)
	}
	if run.Operation != "insert" || run.RequestID != "req-1" {
		t.Errorf("metadata not persisted: %+v", run)
	}
	if run.FailedJSON == "" {
		t.Error("failure detail should be stored as JSON")
	}
	if run.FinishedAt == nil {
		t.Error("finished_at should be set")
	}
}

func TestRecentRunsFiltersByFormAndOrders(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImportRunRepo(db)
	ctx := context.Background()

	clean := &importer.Summary{Attempted: 1, Succeeded: 1}
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		if err := repo.RecordRun(ctx, "req", "Training Log", importer.ModeInsert, clean, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}
	if err := repo.RecordRun(ctx, "req", "Other Form", importer.ModeUpdate, clean, base); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	runs, err := repo.RecentRuns(ctx, "Training Log", 2)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("limit not applied, got %d runs", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Errorf("runs not ordered newest first: %v then %v", runs[0].StartedAt, runs[1].StartedAt)
	}
}
