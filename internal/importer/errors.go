package importer

import (
	"errors"
	"fmt"

	"peakform/amsbridge/internal/constants"
)

// ValidationKind classifies pre-network batch failures
type ValidationKind string

const (
	KindEmptyBatch            ValidationKind = constants.ErrCodeEmptyBatch
	KindMissingIdentifier     ValidationKind = constants.ErrCodeMissingIdentifier
	KindMissingRecordIDColumn ValidationKind = constants.ErrCodeMissingRecordIDColumn
	KindInvalidDateFormat     ValidationKind = constants.ErrCodeInvalidDateFormat
	KindInvalidTimeType       ValidationKind = constants.ErrCodeInvalidTimeType
	KindTableCardinality      ValidationKind = constants.ErrCodeTableCardinality
	KindAmbiguousScalarValue  ValidationKind = constants.ErrCodeAmbiguousScalarValue
)

// ValidationError aborts the whole call before any network traffic.
// It indicates the batch is structurally unsafe to execute at all.
type ValidationError struct {
	Kind   ValidationKind
	Detail string
}

func (e *ValidationError) Error() string {
	msg := constants.GetErrorMessage(string(e.Kind))
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return msg
}

// AsValidationError unwraps err to a *ValidationError if it is one
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// ErrOperationCancelled is returned when the interactive confirmation for
// an update dispatch is declined. Nothing is sent in that case.
var ErrOperationCancelled = errors.New(constants.GetErrorMessage(constants.ErrCodeOperationCancelled))
