package dtos

// Wire types for the AMS API. Field names follow the server's JSON contract,
// not Go conventions.

// LoginRequest is the body for user/loginUser (v2)
type LoginRequest struct {
	Username        string          `json:"username"`
	Password        string          `json:"password"`
	LoginProperties LoginProperties `json:"loginProperties"`
}

type LoginProperties struct {
	AppName    string `json:"appName"`
	ClientTime string `json:"clientTime"`
}

// LoginResponse carries the authenticated user and application details
type LoginResponse struct {
	User LoginUser `json:"user"`
}

type LoginUser struct {
	ID        int    `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
}

// UserSearchRequest is the body for usersearch. An empty identification
// list returns the full directory.
type UserSearchRequest struct {
	Identification []map[string]string `json:"identification"`
}

// UserSearchResponse nests result groups two levels deep
type UserSearchResponse struct {
	Results []UserSearchResultGroup `json:"results"`
}

type UserSearchResultGroup struct {
	Results []UserItem `json:"results"`
}

// UserItem is one directory entry returned by usersearch
type UserItem struct {
	UserID       int    `json:"userId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Username     string `json:"username"`
	EmailAddress string `json:"emailAddress"`
	UUID         string `json:"uuid"`
}

// EventsImportRequest wraps the events sent to eventsimport
type EventsImportRequest struct {
	Events []EventEntry `json:"events"`
}

// EventEntry is one event in an import payload. ExistingEventID is only
// present on updates; the field must be omitted entirely for inserts,
// never sent as null.
type EventEntry struct {
	FormName        string     `json:"formName"`
	StartDate       string     `json:"startDate"`
	StartTime       string     `json:"startTime"`
	FinishDate      string     `json:"finishDate"`
	FinishTime      string     `json:"finishTime"`
	UserID          UserIDRef  `json:"userId"`
	EnteredByUserID int        `json:"enteredByUserId"`
	ExistingEventID *int64     `json:"existingEventId,omitempty"`
	Rows            []EventRow `json:"rows"`
}

// UserIDRef is the nested user id object the server expects
type UserIDRef struct {
	UserID int `json:"userId"`
}

type EventRow struct {
	Row   int            `json:"row"`
	Pairs []KeyValuePair `json:"pairs"`
}

type KeyValuePair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ProfileEntry is one profileimport payload. Profile forms carry no
// dates, times, or table rows; the server keeps one record per user.
type ProfileEntry struct {
	FormName        string     `json:"formName"`
	UserID          UserIDRef  `json:"userId"`
	EnteredByUserID int        `json:"enteredByUserId"`
	Rows            []EventRow `json:"rows"`
}

// ImportResponse is the raw eventsimport/profileimport reply. Some server
// versions nest the outcome under "result", some inline it.
type ImportResponse struct {
	Result  *ImportResult `json:"result,omitempty"`
	State   string        `json:"state,omitempty"`
	IDs     []int64       `json:"ids,omitempty"`
	Message string        `json:"message,omitempty"`
}

type ImportResult struct {
	State   string  `json:"state"`
	IDs     []int64 `json:"ids"`
	Message string  `json:"message"`
}

// Outcome flattens both response shapes into one
func (r *ImportResponse) Outcome() ImportResult {
	if r.Result != nil {
		return *r.Result
	}
	return ImportResult{State: r.State, IDs: r.IDs, Message: r.Message}
}

// Succeeded reports whether the server accepted the import
func (ir ImportResult) Succeeded() bool {
	return ir.State == "SUCCESSFULLY_IMPORTED" || ir.State == "SUCCESS"
}
