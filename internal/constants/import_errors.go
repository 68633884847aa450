package constants

// Import Pipeline Error Codes
// These constants define specific failure scenarios for the import pipeline

// Validation errors (pre-network, abort the whole call)
const (
	ErrCodeEmptyBatch            = "EMPTY_BATCH"
	ErrCodeMissingIdentifier     = "MISSING_IDENTIFIER"
	ErrCodeMissingRecordIDColumn = "MISSING_RECORD_ID_COLUMN"
	ErrCodeInvalidDateFormat     = "INVALID_DATE_FORMAT"
	ErrCodeInvalidTimeType       = "INVALID_TIME_TYPE"
	ErrCodeTableCardinality      = "TABLE_FIELD_CARDINALITY_MISMATCH"
	ErrCodeAmbiguousScalarValue  = "AMBIGUOUS_SCALAR_VALUE"
)

// Per-record / per-payload failures (recovered at batch level)
const (
	ErrCodeUserNotFound    = "USER_NOT_FOUND"
	ErrCodeDispatchFailure = "DISPATCH_FAILURE"
)

// Client errors
const (
	ErrCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	ErrCodeNetworkError         = "NETWORK_ERROR"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodeInvalidResponse      = "INVALID_RESPONSE"
)

// Control flow
const (
	ErrCodeOperationCancelled = "OPERATION_CANCELLED"
)

// Error Messages
// Human-readable messages corresponding to error codes

var ImportErrorMessages = map[string]string{
	ErrCodeEmptyBatch:            "Import batch must contain at least one record",
	ErrCodeMissingIdentifier:     "One or more records are missing a user identifier",
	ErrCodeMissingRecordIDColumn: "Update operations require an event_id on every record",
	ErrCodeInvalidDateFormat:     "Date columns must use the DD/MM/YYYY format",
	ErrCodeInvalidTimeType:       "Time columns must contain string values",
	ErrCodeTableCardinality:      "Table fields must carry the same number of sub-row values",
	ErrCodeAmbiguousScalarValue:  "Scalar fields may only carry a value on the first sub-row",
	ErrCodeUserNotFound:          "User not found in the directory",
	ErrCodeDispatchFailure:       "The server rejected the import payload",
	ErrCodeAuthenticationFailed:  "Authentication with the AMS server failed",
	ErrCodeNetworkError:          "Network error while contacting the AMS server",
	ErrCodeRateLimited:           "The AMS server is rate limiting requests",
	ErrCodeInvalidResponse:       "The AMS server returned an unparseable response",
	ErrCodeOperationCancelled:    "Operation cancelled by user",
}

// GetErrorMessage returns the message for a code, or the code itself
func GetErrorMessage(code string) string {
	if msg, ok := ImportErrorMessages[code]; ok {
		return msg
	}
	return code
}
