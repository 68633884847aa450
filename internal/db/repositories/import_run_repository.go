package repositories

import (
	"context"
	"encoding/json"
	"time"

	gormlib "gorm.io/gorm"

	"peakform/amsbridge/internal/importer"
	gormmodels "peakform/amsbridge/internal/models/gorm"
)

// ImportRunRepo persists the outcome of each import batch
type ImportRunRepo struct {
	db *gormlib.DB
}

func NewImportRunRepo(db *gormlib.DB) *ImportRunRepo {
	return &ImportRunRepo{db: db}
}

// RecordRun stores one finished batch together with its failure detail
func (r *ImportRunRepo) RecordRun(ctx context.Context, requestID, form string, operation importer.Mode, summary *importer.Summary, startedAt time.Time) error {
	failedJSON := ""
	if len(summary.Failed) > 0 {
		raw, err := json.Marshal(summary.Failed)
		if err != nil {
			return err
		}
		failedJSON = string(raw)
	}

	now := time.Now()
	run := gormmodels.ImportRun{
		RequestID:  requestID,
		FormName:   form,
		Operation:  string(operation),
		Attempted:  summary.Attempted,
		Succeeded:  summary.Succeeded,
		Failed:     len(summary.Failed),
		FailedJSON: failedJSON,
		StartedAt:  startedAt,
		FinishedAt: &now,
	}

	return r.db.WithContext(ctx).Create(&run).Error
}

// RecentRuns returns the newest runs for a form, most recent first
func (r *ImportRunRepo) RecentRuns(ctx context.Context, form string, limit int) ([]gormmodels.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []gormmodels.ImportRun
	err := r.db.WithContext(ctx).
		Where("form_name = ?", form).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}
