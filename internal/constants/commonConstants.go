package constants

import "time"

type APIStatus string

const (
	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"
)

// AMS API endpoints used by the import pipeline
const (
	EndpointLogin         = "user/loginUser"
	EndpointUserSearch    = "usersearch"
	EndpointEventsImport  = "eventsimport"
	EndpointProfileImport = "profileimport"
)

// API versions per endpoint family
const (
	APIVersionV1 = "v1"
	APIVersionV2 = "v2"
)

// DefaultImportChunkSize caps the number of events per eventsimport call.
// Deployments with tighter server limits can lower this per request.
const DefaultImportChunkSize = 100

type CachePrefix string

const (
	CachePrefixUserDirectory CachePrefix = "ams:userdirectory"
	CachePrefixResponse      CachePrefix = "ams:response"
)

const (
	UserDirectoryCacheTTL = 5 * time.Minute
	ResponseCacheTTL      = 10 * time.Minute
)

// Reserved columns carried by import rows. These are consumed by the
// pipeline itself and never serialized as form field pairs.
const (
	ColumnUserID    = "user_id"
	ColumnUsername  = "username"
	ColumnEmail     = "email"
	ColumnAbout     = "about"
	ColumnUUID      = "uuid"
	ColumnEventID   = "event_id"
	ColumnStartDate = "start_date"
	ColumnEndDate   = "end_date"
	ColumnStartTime = "start_time"
	ColumnEndTime   = "end_time"
)

// DateLayout is the only accepted layout for start_date/end_date values.
const DateLayout = "02/01/2006"

// TimeLayout is the layout for defaulted start/end times. Explicit time
// values pass through unparsed since the server accepts free-form strings.
const TimeLayout = "3:04 PM"
