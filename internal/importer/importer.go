// Package importer turns tabular rows into AMS event and profile imports.
// The pipeline is normalize, validate, assemble, resolve, build, dispatch;
// validation failures abort before any network call, while per-record
// resolution and dispatch failures accumulate into the returned Summary.
package importer

import (
	"context"
	"time"

	"peakform/amsbridge/internal/logging"
)

// Importer runs import batches against one AMS site.
type Importer struct {
	api APIClient
	dir UserDirectory

	// now is swappable for tests that pin default dates
	now func() time.Time
}

func New(api APIClient, dir UserDirectory) *Importer {
	return &Importer{api: api, dir: dir, now: time.Now}
}

// InsertEvents creates new events on the given form, one per logical
// record. Rows sharing an identifier and start date merge into one record.
func (im *Importer) InsertEvents(ctx context.Context, form string, rows []Row, opts Options) (*Summary, error) {
	return im.runEvents(ctx, form, rows, opts, ModeInsert)
}

// UpdateEvents overwrites existing events. Every row must carry an
// event_id, and the confirmation hook (when set) is consulted before
// anything is sent.
func (im *Importer) UpdateEvents(ctx context.Context, form string, rows []Row, opts Options) (*Summary, error) {
	return im.runEvents(ctx, form, rows, opts, ModeUpdate)
}

// UpsertEvents updates rows that carry an event_id and inserts the rest.
// The confirmation hook gates the update portion; declining cancels the
// entire batch, inserts included.
func (im *Importer) UpsertEvents(ctx context.Context, form string, rows []Row, opts Options) (*Summary, error) {
	return im.runEvents(ctx, form, rows, opts, ModeUpsert)
}

func (im *Importer) runEvents(ctx context.Context, form string, rows []Row, opts Options, mode Mode) (*Summary, error) {
	normalized := normalizeRows(rows, true, im.now())
	if err := validateRows(normalized, opts.IdentifierKind, mode); err != nil {
		return nil, err
	}

	if err := im.api.Login(ctx); err != nil {
		return nil, err
	}
	enteredBy := im.api.EnteredByUserID()

	records := assembleRecords(normalized, opts.IdentifierKind, mode)
	resolved, failures, err := resolveRecords(ctx, records, opts.IdentifierKind, im.dir)
	if err != nil {
		return nil, err
	}
	attempted := len(resolved) + len(failures)

	updates, inserts := splitByEventID(resolved, mode)

	var payloads []BatchPayload
	if len(updates) > 0 {
		built, err := buildEventPayloads(updates, opts, enteredBy, form, ModeUpdate)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, built...)
	}
	if len(inserts) > 0 {
		built, err := buildEventPayloads(inserts, opts, enteredBy, form, ModeInsert)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, built...)
	}

	if mode != ModeInsert {
		if err := confirmOrCancel(opts.Confirm, mode, len(updates), form); err != nil {
			return nil, err
		}
	}

	logging.Info("Dispatching event import",
		"form", form,
		"operation", string(mode),
		"records", len(resolved),
		"chunks", len(payloads),
	)

	succeeded, dispatchFailures := dispatchEvents(ctx, im.api, payloads, form)
	failures = append(failures, dispatchFailures...)

	return summarize(form, mode, attempted, succeeded, failures), nil
}

// splitByEventID partitions resolved records for upsert. Insert and update
// modes keep all records on one side.
func splitByEventID(records []*Record, mode Mode) (updates, inserts []*Record) {
	switch mode {
	case ModeInsert:
		return nil, records
	case ModeUpdate:
		return records, nil
	}
	for _, rec := range records {
		if rec.EventID != nil {
			updates = append(updates, rec)
		} else {
			inserts = append(inserts, rec)
		}
	}
	return updates, inserts
}

// UpsertProfiles writes one profile record per user on a profile form.
// Profile forms carry no dates; duplicate users in the batch collapse to
// the last record. The server overwrites any existing profile, so the
// confirmation hook gates the whole batch.
func (im *Importer) UpsertProfiles(ctx context.Context, form string, rows []Row, opts Options) (*Summary, error) {
	normalized := normalizeRows(rows, false, im.now())
	if err := validateRows(normalized, opts.IdentifierKind, ModeInsert); err != nil {
		return nil, err
	}

	if err := im.api.Login(ctx); err != nil {
		return nil, err
	}
	enteredBy := im.api.EnteredByUserID()

	records := assembleProfileRecords(normalized, opts.IdentifierKind)
	resolved, failures, err := resolveRecords(ctx, records, opts.IdentifierKind, im.dir)
	if err != nil {
		return nil, err
	}

	payloads, err := buildProfilePayloads(resolved, opts, enteredBy, form)
	if err != nil {
		return nil, err
	}
	attempted := len(payloads) + len(failures)

	if err := confirmOrCancel(opts.Confirm, ModeUpsert, len(payloads), form); err != nil {
		return nil, err
	}

	logging.Info("Dispatching profile import",
		"form", form,
		"records", len(payloads),
	)

	succeeded, dispatchFailures := dispatchProfiles(ctx, im.api, payloads, form)
	failures = append(failures, dispatchFailures...)

	return summarize(form, ModeUpsert, attempted, succeeded, failures), nil
}
