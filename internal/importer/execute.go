package importer

import (
	"context"
	"fmt"

	"peakform/amsbridge/internal/constants"
	"peakform/amsbridge/internal/logging"
	"peakform/amsbridge/internal/models/dtos"
)

// APIClient is the slice of the AMS client the executor needs. Satisfied
// by *client.AMSClient.
type APIClient interface {
	Login(ctx context.Context) error
	Fetch(ctx context.Context, endpoint, method string, payload any, out any, apiVersion string) error
	EnteredByUserID() int
}

// dispatchEvents sends each payload in order and folds per-payload failures
// into the failure list. A rejected chunk fails every record it carried;
// the remaining chunks still go out.
func dispatchEvents(ctx context.Context, api APIClient, payloads []BatchPayload, form string) (succeeded int, failures []FailedRecord) {
	for i, p := range payloads {
		var resp dtos.ImportResponse
		err := api.Fetch(ctx, constants.EndpointEventsImport, "POST", p.Request, &resp, constants.APIVersionV1)
		if err == nil {
			if outcome := resp.Outcome(); outcome.State != "" && !outcome.Succeeded() {
				err = fmt.Errorf("server rejected import: %s", rejectReason(outcome))
			}
		}
		if err != nil {
			logging.Error("Event import chunk failed",
				"form", form,
				"chunk", i,
				"records", len(p.Records),
				"error", err,
			)
			for _, rec := range p.Records {
				failures = append(failures, FailedRecord{
					Identifier: rec.Identifier,
					Reason:     err.Error(),
				})
			}
			continue
		}
		succeeded += len(p.Records)
	}
	return succeeded, failures
}

// dispatchProfiles sends one request per profile so a bad record only
// fails itself.
func dispatchProfiles(ctx context.Context, api APIClient, payloads []ProfilePayload, form string) (succeeded int, failures []FailedRecord) {
	for _, p := range payloads {
		var resp dtos.ImportResponse
		err := api.Fetch(ctx, constants.EndpointProfileImport, "POST", p.Request, &resp, constants.APIVersionV1)
		if err == nil {
			if outcome := resp.Outcome(); outcome.State != "" && !outcome.Succeeded() {
				err = fmt.Errorf("server rejected import: %s", rejectReason(outcome))
			}
		}
		if err != nil {
			logging.Error("Profile import failed",
				"form", form,
				"identifier", p.Record.Identifier,
				"error", err,
			)
			failures = append(failures, FailedRecord{
				Identifier: p.Record.Identifier,
				Reason:     err.Error(),
			})
			continue
		}
		succeeded++
	}
	return succeeded, failures
}

func rejectReason(outcome dtos.ImportResult) string {
	if outcome.Message != "" {
		return outcome.Message
	}
	return outcome.State
}

// confirmOrCancel runs the caller's confirmation hook before any update is
// dispatched. A nil hook means proceed.
func confirmOrCancel(confirm ConfirmFunc, mode Mode, count int, form string) error {
	if confirm == nil || count == 0 {
		return nil
	}
	if !confirm(mode, count, form) {
		return ErrOperationCancelled
	}
	return nil
}
