package dtos

// ImportEventsRequest is the body for POST /api/v1/import/events
type ImportEventsRequest struct {
	Form        string           `json:"form" validate:"required"`
	Operation   string           `json:"operation" validate:"required,oneof=insert update upsert"`
	IDColumn    string           `json:"id_col" validate:"omitempty,oneof=user_id username email about uuid"`
	TableFields []string         `json:"table_fields" validate:"omitempty,dive,required"`
	ChunkSize   int              `json:"chunk_size" validate:"omitempty,gt=0"`
	Rows        []map[string]any `json:"rows" validate:"required,min=1"`
}

// ImportProfilesRequest is the body for POST /api/v1/import/profiles
type ImportProfilesRequest struct {
	Form     string           `json:"form" validate:"required"`
	IDColumn string           `json:"id_col" validate:"omitempty,oneof=user_id username email about uuid"`
	Rows     []map[string]any `json:"rows" validate:"required,min=1"`
}

// ImportSummaryResponse mirrors importer.Summary for API clients
type ImportSummaryResponse struct {
	Form      string                `json:"form"`
	Operation string                `json:"operation"`
	Attempted int                   `json:"attempted"`
	Succeeded int                   `json:"succeeded"`
	Failed    []FailedRecordPayload `json:"failed"`
}

type FailedRecordPayload struct {
	Identifier string `json:"identifier"`
	Reason     string `json:"reason"`
}
