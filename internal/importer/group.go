package importer

import (
	"fmt"
	"sort"

	"peakform/amsbridge/internal/common"
	"peakform/amsbridge/internal/models/dtos"
)

// groupedRecord is a record partitioned into its wire shape: scalar pairs
// that appear once, and table sub-rows that repeat.
type groupedRecord struct {
	scalars   []dtos.KeyValuePair
	tableRows [][]dtos.KeyValuePair
}

// groupRecord splits a record's fields into scalar and table pairs. Scalar
// values come from the first source row that carries them. Table fields
// produce one sub-row per source row; a table value may also be supplied
// as an array, in which case every array under the record must have the
// same length.
func groupRecord(rec *Record, kind IdentifierKind, tableFields []string) (*groupedRecord, error) {
	tableSet := make(map[string]bool, len(tableFields))
	for _, f := range tableFields {
		tableSet[common.NormalizeKey(f)] = true
	}

	scalars, err := collectScalars(rec, kind, tableSet)
	if err != nil {
		return nil, err
	}

	tableRows, err := collectTableRows(rec, tableFields)
	if err != nil {
		return nil, err
	}

	return &groupedRecord{scalars: scalars, tableRows: tableRows}, nil
}

// collectScalars gathers the non-table, non-reserved fields. Field names
// are emitted in sorted order so payload shape is deterministic. A scalar
// that carries a second, different non-empty value on a later source row
// is ambiguous and rejected.
func collectScalars(rec *Record, kind IdentifierKind, tableSet map[string]bool) ([]dtos.KeyValuePair, error) {
	values := make(map[string]string)
	var names []string

	for i, row := range rec.Rows() {
		for key, raw := range row {
			norm := common.NormalizeKey(key)
			if isReservedColumn(norm) || norm == kind.Column() || tableSet[norm] {
				continue
			}
			if common.IsEmptyValue(raw) {
				continue
			}
			val := common.Stringify(raw)
			prev, seen := values[norm]
			if !seen {
				values[norm] = val
				names = append(names, norm)
				continue
			}
			if i > 0 && prev != val {
				return nil, &ValidationError{
					Kind: KindAmbiguousScalarValue,
					Detail: fmt.Sprintf("field '%s' has conflicting values '%s' and '%s' within one record; list it in table_fields if it repeats",
						norm, prev, val),
				}
			}
		}
	}

	sort.Strings(names)
	pairs := make([]dtos.KeyValuePair, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, dtos.KeyValuePair{Key: name, Value: values[name]})
	}
	return pairs, nil
}

// collectTableRows builds one sub-row per source row. Empty values are
// skipped rather than sent as empty strings, so sparse tables round-trip
// without padding. Array-valued table fields expand into that many
// sub-rows instead; mixing arrays of unequal length is an error.
func collectTableRows(rec *Record, tableFields []string) ([][]dtos.KeyValuePair, error) {
	if len(tableFields) == 0 {
		return nil, nil
	}

	normFields := make([]string, len(tableFields))
	for i, f := range tableFields {
		normFields[i] = common.NormalizeKey(f)
	}

	sourceRows := rec.Rows()
	if arrayed, err := expandArrayRows(sourceRows, normFields); err != nil {
		return nil, err
	} else if arrayed != nil {
		return arrayed, nil
	}

	rows := make([][]dtos.KeyValuePair, 0, len(sourceRows))
	for _, src := range sourceRows {
		var pairs []dtos.KeyValuePair
		for _, field := range normFields {
			raw, ok := lookupColumn(src, field)
			if !ok || common.IsEmptyValue(raw) {
				continue
			}
			pairs = append(pairs, dtos.KeyValuePair{Key: field, Value: common.Stringify(raw)})
		}
		rows = append(rows, pairs)
	}
	return rows, nil
}

// expandArrayRows handles table fields supplied as arrays on a single
// source row. Returns nil rows when no field is array-valued.
func expandArrayRows(sourceRows []Row, normFields []string) ([][]dtos.KeyValuePair, error) {
	if len(sourceRows) != 1 {
		return nil, nil
	}
	src := sourceRows[0]

	arrays := make(map[string][]any)
	length := -1
	for _, field := range normFields {
		raw, ok := lookupColumn(src, field)
		if !ok {
			continue
		}
		arr, isArr := raw.([]any)
		if !isArr {
			continue
		}
		arrays[field] = arr
		if length == -1 {
			length = len(arr)
		} else if len(arr) != length {
			return nil, &ValidationError{
				Kind: KindTableCardinality,
				Detail: fmt.Sprintf("table field '%s' has %d values but another table field has %d",
					field, len(arr), length),
			}
		}
	}
	if len(arrays) == 0 {
		return nil, nil
	}

	rows := make([][]dtos.KeyValuePair, 0, length)
	for i := 0; i < length; i++ {
		var pairs []dtos.KeyValuePair
		for _, field := range normFields {
			if arr, ok := arrays[field]; ok {
				if common.IsEmptyValue(arr[i]) {
					continue
				}
				pairs = append(pairs, dtos.KeyValuePair{Key: field, Value: common.Stringify(arr[i])})
				continue
			}
			// Non-array table fields repeat their scalar value on each sub-row.
			raw, ok := lookupColumn(src, field)
			if !ok || common.IsEmptyValue(raw) {
				continue
			}
			pairs = append(pairs, dtos.KeyValuePair{Key: field, Value: common.Stringify(raw)})
		}
		rows = append(rows, pairs)
	}
	return rows, nil
}

func lookupColumn(row Row, norm string) (any, bool) {
	for key, val := range row {
		if common.NormalizeKey(key) == norm {
			return val, true
		}
	}
	return nil, false
}
