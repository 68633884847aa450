package services

import (
	"context"
	"fmt"
	"time"

	"peakform/amsbridge/internal/db/repositories"
	"peakform/amsbridge/internal/importer"
	"peakform/amsbridge/internal/logging"
	"peakform/amsbridge/internal/metrics"
)

// ImportService runs import batches and records their outcome. The run
// history repo is optional; without it batches still run, they just leave
// no audit trail.
type ImportService struct {
	importer *importer.Importer
	runs     *repositories.ImportRunRepo
	metrics  *metrics.MetricsRegistry
}

func NewImportService(imp *importer.Importer, runs *repositories.ImportRunRepo, metricsReg *metrics.MetricsRegistry) *ImportService {
	return &ImportService{
		importer: imp,
		runs:     runs,
		metrics:  metricsReg,
	}
}

// RunEvents executes one event batch in the requested mode
func (s *ImportService) RunEvents(ctx context.Context, requestID, form string, mode importer.Mode, rows []importer.Row, opts importer.Options) (*importer.Summary, error) {
	started := time.Now()
	logging.WithImport(requestID, form, string(mode)).Infow("Import batch received", "rows", len(rows))

	var summary *importer.Summary
	var err error
	switch mode {
	case importer.ModeInsert:
		summary, err = s.importer.InsertEvents(ctx, form, rows, opts)
	case importer.ModeUpdate:
		summary, err = s.importer.UpdateEvents(ctx, form, rows, opts)
	case importer.ModeUpsert:
		summary, err = s.importer.UpsertEvents(ctx, form, rows, opts)
	default:
		return nil, fmt.Errorf("unknown operation %q", mode)
	}
	if err != nil {
		return nil, err
	}

	s.finishRun(ctx, requestID, form, mode, summary, started)
	return summary, nil
}

// RunProfiles executes one profile batch
func (s *ImportService) RunProfiles(ctx context.Context, requestID, form string, rows []importer.Row, opts importer.Options) (*importer.Summary, error) {
	started := time.Now()
	logging.WithImport(requestID, form, string(importer.ModeUpsert)).Infow("Profile batch received", "rows", len(rows))

	summary, err := s.importer.UpsertProfiles(ctx, form, rows, opts)
	if err != nil {
		return nil, err
	}

	s.finishRun(ctx, requestID, form, importer.ModeUpsert, summary, started)
	return summary, nil
}

func (s *ImportService) finishRun(ctx context.Context, requestID, form string, mode importer.Mode, summary *importer.Summary, started time.Time) {
	if s.metrics != nil {
		s.metrics.RecordImport(form, string(mode), summary.Succeeded, len(summary.Failed), time.Since(started).Seconds())
	}

	if s.runs == nil {
		return
	}
	if err := s.runs.RecordRun(ctx, requestID, form, mode, summary, started); err != nil {
		// History is best effort; the import itself already finished
		logging.Warn("Failed to record import run",
			"request_id", requestID,
			"form", form,
			"error", err,
		)
	}
}
