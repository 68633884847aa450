package importer

import (
	"fmt"
	"strconv"
	"strings"

	"peakform/amsbridge/internal/common"
	"peakform/amsbridge/internal/constants"
)

// Row is one flat source row: field name to value. Values arrive as
// strings from CSV input or as decoded JSON values from the API surface.
type Row map[string]any

// Mode selects the import operation
type Mode string

const (
	ModeInsert Mode = "insert"
	ModeUpdate Mode = "update"
	ModeUpsert Mode = "upsert"
)

// IdentifierKind is the column used to resolve rows to numeric user IDs
type IdentifierKind int

const (
	IdentifierUserID IdentifierKind = iota
	IdentifierUsername
	IdentifierEmail
	IdentifierAbout
	IdentifierUUID
)

// Column returns the reserved column name carrying this identifier
func (k IdentifierKind) Column() string {
	switch k {
	case IdentifierUserID:
		return constants.ColumnUserID
	case IdentifierUsername:
		return constants.ColumnUsername
	case IdentifierEmail:
		return constants.ColumnEmail
	case IdentifierAbout:
		return constants.ColumnAbout
	case IdentifierUUID:
		return constants.ColumnUUID
	}
	return constants.ColumnUserID
}

// ParseIdentifierKind maps a column name to its IdentifierKind
func ParseIdentifierKind(col string) (IdentifierKind, error) {
	switch strings.ToLower(strings.TrimSpace(col)) {
	case "", constants.ColumnUserID:
		return IdentifierUserID, nil
	case constants.ColumnUsername:
		return IdentifierUsername, nil
	case constants.ColumnEmail:
		return IdentifierEmail, nil
	case constants.ColumnAbout:
		return IdentifierAbout, nil
	case constants.ColumnUUID:
		return IdentifierUUID, nil
	}
	return 0, fmt.Errorf("id_col must be one of user_id, username, email, about, uuid; got %q", col)
}

// Record is one logical import unit: every source row sharing the same
// identifier and start date (and event id, when updating) collapsed into
// a single event or profile entry.
type Record struct {
	// Identifier is the raw value from the configured identifier column,
	// kept verbatim for failure attribution.
	Identifier string

	// RowIndex is the zero-based index of the record's first source row
	RowIndex int

	// UserID is filled in by the resolver
	UserID int

	// EventID is the existing record id, nil for new records
	EventID *int64

	StartDate string
	StartTime string
	EndDate   string
	EndTime   string

	rows []Row
}

// Rows returns the record's source rows in input order
func (r *Record) Rows() []Row {
	return r.rows
}

// FailedRecord names one record that did not make it, keyed by the
// caller's original identifier value rather than an internal user id.
type FailedRecord struct {
	Identifier string `json:"identifier"`
	Reason     string `json:"reason"`
}

// Summary is the single source of truth for partial success. Callers that
// need all-or-nothing semantics inspect Failed themselves.
type Summary struct {
	Attempted int            `json:"attempted"`
	Succeeded int            `json:"succeeded"`
	Failed    []FailedRecord `json:"failed"`
}

// ConfirmFunc is consulted before dispatching update payloads. Returning
// false cancels the whole call before anything is sent.
type ConfirmFunc func(operation Mode, count int, form string) bool

// Options configures one pipeline invocation
type Options struct {
	IdentifierKind IdentifierKind
	TableFields    []string
	// ChunkSize caps records per eventsimport call;
	// constants.DefaultImportChunkSize when zero.
	ChunkSize int
	// Confirm gates update dispatches. Nil means non-interactive: updates
	// proceed without prompting.
	Confirm ConfirmFunc
}

func (o Options) chunkSize() int {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}
	return constants.DefaultImportChunkSize
}

// parseRecordID converts an event_id cell to an int64. JSON decoding
// yields float64 for numbers, CSV yields strings.
func parseRecordID(v any) (*int64, error) {
	if common.IsEmptyValue(v) {
		return nil, nil
	}
	switch val := v.(type) {
	case int:
		id := int64(val)
		return &id, nil
	case int64:
		return &val, nil
	case float64:
		id := int64(val)
		return &id, nil
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("event_id %q is not an integer", val)
		}
		return &id, nil
	}
	return nil, fmt.Errorf("event_id has unsupported type %T", v)
}
