package importer

import (
	"context"
	"fmt"
	"strconv"

	"peakform/amsbridge/internal/common"
	"peakform/amsbridge/internal/logging"
	"peakform/amsbridge/internal/models/dtos"
)

// UserDirectory supplies the full set of known users in one round trip.
// The resolver never fetches per record.
type UserDirectory interface {
	Users(ctx context.Context) ([]dtos.UserItem, error)
}

// resolveRecords fills in each record's numeric user id. Numeric user_id
// identifiers pass straight through; every other kind joins against the
// directory on a normalized key. Records without a match drop to the
// failure list and the batch proceeds; a missing user is a per-record
// outcome, not a batch error.
func resolveRecords(ctx context.Context, records []*Record, kind IdentifierKind, dir UserDirectory) ([]*Record, []FailedRecord, error) {
	if kind == IdentifierUserID {
		return resolveNumeric(records)
	}

	users, err := dir.Users(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch user directory: %w", err)
	}

	lookup := buildLookup(users, kind)

	var resolved []*Record
	var failures []FailedRecord
	for _, rec := range records {
		id, ok := lookup[common.NormalizeKey(rec.Identifier)]
		if !ok {
			failures = append(failures, FailedRecord{
				Identifier: rec.Identifier,
				Reason:     fmt.Sprintf("User not found for %s value '%s'", kind.Column(), rec.Identifier),
			})
			continue
		}
		rec.UserID = id
		resolved = append(resolved, rec)
	}

	if len(failures) > 0 {
		logging.Warn("Some records did not resolve to a user",
			"identifier_column", kind.Column(),
			"unresolved", len(failures),
			"resolved", len(resolved),
		)
	}

	return resolved, failures, nil
}

func resolveNumeric(records []*Record) ([]*Record, []FailedRecord, error) {
	var resolved []*Record
	var failures []FailedRecord
	for _, rec := range records {
		id, err := strconv.Atoi(rec.Identifier)
		if err != nil {
			failures = append(failures, FailedRecord{
				Identifier: rec.Identifier,
				Reason:     fmt.Sprintf("user_id value '%s' is not numeric", rec.Identifier),
			})
			continue
		}
		rec.UserID = id
		resolved = append(resolved, rec)
	}
	return resolved, failures, nil
}

// buildLookup keys the directory by the normalized identifier. The about
// key is the user's "first last" display name; when two directory entries
// share a key the first one encountered wins. That tie-break is a known
// ambiguity of name-based matching, not an error.
func buildLookup(users []dtos.UserItem, kind IdentifierKind) map[string]int {
	lookup := make(map[string]int, len(users))
	for _, u := range users {
		var key string
		switch kind {
		case IdentifierUsername:
			key = u.Username
		case IdentifierEmail:
			key = u.EmailAddress
		case IdentifierAbout:
			key = u.FirstName + " " + u.LastName
		case IdentifierUUID:
			key = u.UUID
		default:
			continue
		}

		key = common.NormalizeKey(key)
		if key == "" {
			continue
		}
		if _, exists := lookup[key]; !exists {
			lookup[key] = u.UserID
		}
	}
	return lookup
}
