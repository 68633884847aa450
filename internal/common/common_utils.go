package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func GetResponseTime(init time.Time) string {
	timeDiff := time.Since(init).Milliseconds()
	return fmt.Sprintf("%dms", timeDiff)
}

// NormalizeKey produces the comparison form used for identifier matching:
// surrounding whitespace trimmed, lowercased.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Stringify renders a row value the way the wire format expects: strings
// pass through, numbers are formatted without locale or trailing zeros.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// IsEmptyValue reports whether a row value counts as "no value": nil or an
// all-whitespace string. Numeric zero is a real value.
func IsEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
