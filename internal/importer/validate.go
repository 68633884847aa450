package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"peakform/amsbridge/internal/common"
	"peakform/amsbridge/internal/constants"
)

// validateRows checks a normalized batch for structural correctness before
// any payload is built. It performs no network calls; a failure here means
// the request is unsafe to execute at all.
func validateRows(rows []Row, kind IdentifierKind, mode Mode) error {
	if len(rows) == 0 {
		return &ValidationError{Kind: KindEmptyBatch}
	}

	if err := validateIdentifiers(rows, kind); err != nil {
		return err
	}
	if err := validateRecordIDs(rows, mode); err != nil {
		return err
	}
	if err := validateDates(rows); err != nil {
		return err
	}
	return validateTimes(rows)
}

func validateIdentifiers(rows []Row, kind IdentifierKind) error {
	idCol := kind.Column()

	var missing []string
	for i, row := range rows {
		if common.IsEmptyValue(row[idCol]) {
			missing = append(missing, strconv.Itoa(i))
		}
	}
	if len(missing) > 0 {
		return &ValidationError{
			Kind:   KindMissingIdentifier,
			Detail: fmt.Sprintf("no %s value in rows %s", idCol, strings.Join(missing, ", ")),
		}
	}
	return nil
}

// validateRecordIDs enforces the existing-record-id contract per mode:
// updates need a valid id on every row, upserts allow empty ids (those
// records become inserts), and inserts ignore the column entirely.
func validateRecordIDs(rows []Row, mode Mode) error {
	if mode == ModeInsert {
		return nil
	}

	var missing []string
	for i, row := range rows {
		v, hasCol := row[constants.ColumnEventID]

		if mode == ModeUpdate && (!hasCol || common.IsEmptyValue(v)) {
			missing = append(missing, strconv.Itoa(i))
			continue
		}

		if _, err := parseRecordID(v); err != nil {
			return &ValidationError{
				Kind:   KindMissingRecordIDColumn,
				Detail: fmt.Sprintf("row %d: %v", i, err),
			}
		}
	}

	if len(missing) > 0 {
		return &ValidationError{
			Kind:   KindMissingRecordIDColumn,
			Detail: fmt.Sprintf("no event_id value in rows %s", strings.Join(missing, ", ")),
		}
	}
	return nil
}

// validateDates requires start_date/end_date values to be DD/MM/YYYY
// strings. Empty and absent both mean "no constraint", distinct from
// present-but-malformed.
func validateDates(rows []Row) error {
	for _, col := range []string{constants.ColumnStartDate, constants.ColumnEndDate} {
		for i, row := range rows {
			v, ok := row[col]
			if !ok || common.IsEmptyValue(v) {
				continue
			}

			s, isString := v.(string)
			if !isString {
				return &ValidationError{
					Kind:   KindInvalidDateFormat,
					Detail: fmt.Sprintf("%s in row %d must be a string, got %T", col, i, v),
				}
			}
			if _, err := time.Parse(constants.DateLayout, s); err != nil {
				return &ValidationError{
					Kind:   KindInvalidDateFormat,
					Detail: fmt.Sprintf("%s value %q in row %d is not DD/MM/YYYY", col, s, i),
				}
			}
		}
	}
	return nil
}

// validateTimes requires start_time/end_time values to be strings. The
// server accepts free-form time strings, so no format is enforced.
func validateTimes(rows []Row) error {
	for _, col := range []string{constants.ColumnStartTime, constants.ColumnEndTime} {
		for i, row := range rows {
			v, ok := row[col]
			if !ok || v == nil {
				continue
			}
			if _, isString := v.(string); !isString {
				return &ValidationError{
					Kind:   KindInvalidTimeType,
					Detail: fmt.Sprintf("%s value %v in row %d must be a string", col, v, i),
				}
			}
		}
	}
	return nil
}
