package importer

import (
	"strings"
	"time"

	"peakform/amsbridge/internal/common"
	"peakform/amsbridge/internal/constants"
	"peakform/amsbridge/internal/logging"
)

// reservedColumns are consumed by the pipeline itself and never become
// form field pairs.
var reservedColumns = map[string]struct{}{
	constants.ColumnUserID:    {},
	constants.ColumnUsername:  {},
	constants.ColumnEmail:     {},
	constants.ColumnAbout:     {},
	constants.ColumnUUID:      {},
	constants.ColumnEventID:   {},
	constants.ColumnStartDate: {},
	constants.ColumnEndDate:   {},
	constants.ColumnStartTime: {},
	constants.ColumnEndTime:   {},
}

// protectedColumns may never be imported; the server owns them
var protectedColumns = map[string]struct{}{
	"first name": {},
	"last name":  {},
}

func isReservedColumn(col string) bool {
	_, ok := reservedColumns[col]
	return ok
}

// normalizeRows prepares raw input for the pipeline without mutating the
// caller's slices: reserved column names are lowercased, protected columns
// dropped, and (for event imports) missing or empty date/time cells filled
// with defaults. End date defaults to the start date; end time to one hour
// after the default start time.
func normalizeRows(rows []Row, withDates bool, now time.Time) []Row {
	defaultStartDate := now.Format(constants.DateLayout)
	defaultStartTime := now.Format(constants.TimeLayout)
	defaultEndTime := now.Add(time.Hour).Format(constants.TimeLayout)

	var droppedProtected []string

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		clean := make(Row, len(row))
		for col, val := range row {
			lower := strings.ToLower(strings.TrimSpace(col))
			if _, protected := protectedColumns[lower]; protected {
				droppedProtected = append(droppedProtected, col)
				continue
			}
			if isReservedColumn(lower) {
				clean[lower] = val
			} else {
				clean[col] = val
			}
		}

		if withDates {
			if common.IsEmptyValue(clean[constants.ColumnStartDate]) {
				clean[constants.ColumnStartDate] = defaultStartDate
			}
			if common.IsEmptyValue(clean[constants.ColumnStartTime]) {
				clean[constants.ColumnStartTime] = defaultStartTime
			}
			if common.IsEmptyValue(clean[constants.ColumnEndDate]) {
				clean[constants.ColumnEndDate] = clean[constants.ColumnStartDate]
			}
			if common.IsEmptyValue(clean[constants.ColumnEndTime]) {
				clean[constants.ColumnEndTime] = defaultEndTime
			}
		}

		out = append(out, clean)
	}

	if len(droppedProtected) > 0 {
		logging.Warn("Protected columns removed from import",
			"columns", strings.Join(droppedProtected, ", "),
		)
	}

	return out
}

// assembleProfileRecords maps each source row to its own record. Profile
// rows never merge; duplicate users collapse later, keeping the last row.
func assembleProfileRecords(rows []Row, kind IdentifierKind) []*Record {
	idCol := kind.Column()
	records := make([]*Record, 0, len(rows))
	for i, row := range rows {
		records = append(records, &Record{
			Identifier: strings.TrimSpace(common.Stringify(row[idCol])),
			RowIndex:   i,
			rows:       []Row{row},
		})
	}
	return records
}

// assembleRecords collapses source rows into logical records. Rows sharing
// identifier and start date (and event id, for update/upsert) form one
// record whose later rows carry its table sub-row values. Input order is
// preserved, and each record remembers its first source row index.
func assembleRecords(rows []Row, kind IdentifierKind, mode Mode) []*Record {
	idCol := kind.Column()

	var records []*Record
	index := make(map[string]*Record)

	for i, row := range rows {
		identifier := strings.TrimSpace(common.Stringify(row[idCol]))
		startDate := common.Stringify(row[constants.ColumnStartDate])

		key := identifier + "\x1f" + startDate
		if mode == ModeUpdate || mode == ModeUpsert {
			key += "\x1f" + common.Stringify(row[constants.ColumnEventID])
		}

		if rec, ok := index[key]; ok && identifier != "" {
			rec.rows = append(rec.rows, row)
			continue
		}

		rec := &Record{
			Identifier: identifier,
			RowIndex:   i,
			StartDate:  startDate,
			StartTime:  common.Stringify(row[constants.ColumnStartTime]),
			EndDate:    common.Stringify(row[constants.ColumnEndDate]),
			EndTime:    common.Stringify(row[constants.ColumnEndTime]),
			rows:       []Row{row},
		}
		if mode == ModeUpdate || mode == ModeUpsert {
			// Validation has already rejected malformed ids
			rec.EventID, _ = parseRecordID(row[constants.ColumnEventID])
		}

		records = append(records, rec)
		index[key] = rec
	}

	return records
}
