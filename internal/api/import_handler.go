package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"peakform/amsbridge/internal/common"
	"peakform/amsbridge/internal/importer"
	"peakform/amsbridge/internal/middleware"
	"peakform/amsbridge/internal/models/dtos"
	"peakform/amsbridge/internal/services"
)

var validate = validator.New()

// ImportHandler exposes the import pipeline over HTTP. The API surface is
// non-interactive, so update and upsert batches run without a
// confirmation prompt.
type ImportHandler struct {
	imports *services.ImportService
}

func NewImportHandler(imports *services.ImportService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// Events handles POST /api/v1/import/events
func (h *ImportHandler) Events(w http.ResponseWriter, r *http.Request) {
	initTime := time.Now()

	var req dtos.ImportEventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		common.RespondError(w, initTime, err, "Request validation failed", http.StatusBadRequest)
		return
	}

	kind, err := importer.ParseIdentifierKind(req.IDColumn)
	if err != nil {
		common.RespondError(w, initTime, err, "Invalid id_col", http.StatusBadRequest)
		return
	}

	opts := importer.Options{
		IdentifierKind: kind,
		TableFields:    req.TableFields,
		ChunkSize:      req.ChunkSize,
	}

	requestID := middleware.RequestIDFromContext(r.Context())
	summary, err := h.imports.RunEvents(r.Context(), requestID, req.Form, importer.Mode(req.Operation), toRows(req.Rows), opts)
	if err != nil {
		respondImportError(w, initTime, err)
		return
	}

	common.RespondSuccess(w, initTime, "Import completed", summaryPayload(req.Form, req.Operation, summary))
}

// Profiles handles POST /api/v1/import/profiles
func (h *ImportHandler) Profiles(w http.ResponseWriter, r *http.Request) {
	initTime := time.Now()

	var req dtos.ImportProfilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		common.RespondError(w, initTime, err, "Request validation failed", http.StatusBadRequest)
		return
	}

	kind, err := importer.ParseIdentifierKind(req.IDColumn)
	if err != nil {
		common.RespondError(w, initTime, err, "Invalid id_col", http.StatusBadRequest)
		return
	}

	requestID := middleware.RequestIDFromContext(r.Context())
	summary, err := h.imports.RunProfiles(r.Context(), requestID, req.Form, toRows(req.Rows), importer.Options{IdentifierKind: kind})
	if err != nil {
		respondImportError(w, initTime, err)
		return
	}

	common.RespondSuccess(w, initTime, "Import completed", summaryPayload(req.Form, string(importer.ModeUpsert), summary))
}

// respondImportError maps pipeline failures onto status codes: batch
// validation problems are the caller's fault, everything else is upstream.
func respondImportError(w http.ResponseWriter, initTime time.Time, err error) {
	if verr, ok := importer.AsValidationError(err); ok {
		common.RespondError(w, initTime, verr, "Batch validation failed", http.StatusBadRequest)
		return
	}
	common.RespondError(w, initTime, err, "Import failed", http.StatusBadGateway)
}

func toRows(in []map[string]any) []importer.Row {
	rows := make([]importer.Row, len(in))
	for i, m := range in {
		rows[i] = importer.Row(m)
	}
	return rows
}

func summaryPayload(form, operation string, summary *importer.Summary) dtos.ImportSummaryResponse {
	failed := make([]dtos.FailedRecordPayload, 0, len(summary.Failed))
	for _, f := range summary.Failed {
		failed = append(failed, dtos.FailedRecordPayload{
			Identifier: f.Identifier,
			Reason:     f.Reason,
		})
	}
	return dtos.ImportSummaryResponse{
		Form:      form,
		Operation: operation,
		Attempted: summary.Attempted,
		Succeeded: summary.Succeeded,
		Failed:    failed,
	}
}
