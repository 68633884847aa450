package importer

import (
	"peakform/amsbridge/internal/logging"
	"peakform/amsbridge/internal/models/dtos"
)

// BatchPayload is one eventsimport request together with the records it
// carries, kept side by side so a dispatch failure can be attributed back
// to identifiers.
type BatchPayload struct {
	Request dtos.EventsImportRequest
	Records []*Record
}

// ProfilePayload is a single-record profileimport request.
type ProfilePayload struct {
	Request dtos.ProfileEntry
	Record  *Record
}

// buildEventPayloads groups resolved records into wire payloads of at most
// chunkSize events each. Records keep their resolution order across chunks.
func buildEventPayloads(records []*Record, opts Options, enteredBy int, form string, mode Mode) ([]BatchPayload, error) {
	chunk := opts.chunkSize()
	var payloads []BatchPayload

	for start := 0; start < len(records); start += chunk {
		end := start + chunk
		if end > len(records) {
			end = len(records)
		}
		slice := records[start:end]

		entries := make([]dtos.EventEntry, 0, len(slice))
		for _, rec := range slice {
			entry, err := buildEventEntry(rec, opts, enteredBy, form, mode)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}

		payloads = append(payloads, BatchPayload{
			Request: dtos.EventsImportRequest{Events: entries},
			Records: slice,
		})
	}
	return payloads, nil
}

func buildEventEntry(rec *Record, opts Options, enteredBy int, form string, mode Mode) (dtos.EventEntry, error) {
	grouped, err := groupRecord(rec, opts.IdentifierKind, opts.TableFields)
	if err != nil {
		return dtos.EventEntry{}, err
	}

	entry := dtos.EventEntry{
		FormName:        form,
		StartDate:       rec.StartDate,
		StartTime:       rec.StartTime,
		FinishDate:      rec.EndDate,
		FinishTime:      rec.EndTime,
		UserID:          dtos.UserIDRef{UserID: rec.UserID},
		EnteredByUserID: enteredBy,
		Rows:            buildWireRows(grouped),
	}
	if mode == ModeUpdate && rec.EventID != nil {
		entry.ExistingEventID = rec.EventID
	}
	return entry, nil
}

// buildWireRows merges the scalar pairs into the first table sub-row so a
// record always ships at least one row. Sub-rows past the first carry only
// table pairs; fully empty sub-rows are dropped.
func buildWireRows(grouped *groupedRecord) []dtos.EventRow {
	var rows []dtos.EventRow

	first := make([]dtos.KeyValuePair, 0, len(grouped.scalars))
	first = append(first, grouped.scalars...)
	if len(grouped.tableRows) > 0 {
		first = append(first, grouped.tableRows[0]...)
	}
	if len(first) > 0 {
		rows = append(rows, dtos.EventRow{Row: 0, Pairs: first})
	}

	for i := 1; i < len(grouped.tableRows); i++ {
		pairs := grouped.tableRows[i]
		if len(pairs) == 0 {
			continue
		}
		rows = append(rows, dtos.EventRow{Row: len(rows), Pairs: pairs})
	}

	if len(rows) == 0 {
		rows = []dtos.EventRow{{Row: 0, Pairs: []dtos.KeyValuePair{}}}
	}
	return rows
}

// buildProfilePayloads produces one profileimport request per user. A form
// holds a single profile per athlete, so duplicate user ids within a batch
// collapse to the last record seen.
func buildProfilePayloads(records []*Record, opts Options, enteredBy int, form string) ([]ProfilePayload, error) {
	deduped := dedupeProfiles(records)

	payloads := make([]ProfilePayload, 0, len(deduped))
	for _, rec := range deduped {
		grouped, err := groupRecord(rec, opts.IdentifierKind, opts.TableFields)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, ProfilePayload{
			Request: dtos.ProfileEntry{
				FormName:        form,
				UserID:          dtos.UserIDRef{UserID: rec.UserID},
				EnteredByUserID: enteredBy,
				Rows:            buildWireRows(grouped),
			},
			Record: rec,
		})
	}
	return payloads, nil
}

func dedupeProfiles(records []*Record) []*Record {
	latest := make(map[int]int, len(records))
	dropped := 0
	var order []*Record
	for _, rec := range records {
		if idx, seen := latest[rec.UserID]; seen {
			order[idx] = rec
			dropped++
			continue
		}
		latest[rec.UserID] = len(order)
		order = append(order, rec)
	}
	if dropped > 0 {
		logging.Warn("Duplicate profile records collapsed to the most recent entry",
			"duplicates", dropped,
			"remaining", len(order),
		)
	}
	return order
}
