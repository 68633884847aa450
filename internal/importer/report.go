package importer

import (
	"peakform/amsbridge/internal/logging"
)

// summarize folds the resolution and dispatch outcomes into the final
// accounting. Attempted always equals Succeeded plus len(Failed).
func summarize(form string, mode Mode, attempted, succeeded int, failures []FailedRecord) *Summary {
	s := &Summary{
		Attempted: attempted,
		Succeeded: succeeded,
		Failed:    failures,
	}

	logging.Info("Import finished",
		"form", form,
		"operation", string(mode),
		"attempted", s.Attempted,
		"succeeded", s.Succeeded,
		"failed", len(s.Failed),
	)
	return s
}
