package importer

import (
	"context"
	"errors"
	"testing"

	"peakform/amsbridge/internal/constants"
	"peakform/amsbridge/internal/models/dtos"
)

// spyClient records every dispatch and answers with a canned outcome.
type spyClient struct {
	enteredBy int
	loginErr  error

	calls []spyCall
	// failCall maps a zero-based Fetch call index to an error
	failCall map[int]error
}

type spyCall struct {
	endpoint string
	payload  any
}

func (s *spyClient) Login(ctx context.Context) error { return s.loginErr }
func (s *spyClient) EnteredByUserID() int            { return s.enteredBy }

func (s *spyClient) Fetch(ctx context.Context, endpoint, method string, payload any, out any, apiVersion string) error {
	idx := len(s.calls)
	s.calls = append(s.calls, spyCall{endpoint: endpoint, payload: payload})
	if err, ok := s.failCall[idx]; ok {
		return err
	}
	if resp, ok := out.(*dtos.ImportResponse); ok {
		*resp = dtos.ImportResponse{State: "SUCCESSFULLY_IMPORTED"}
	}
	return nil
}

func (s *spyClient) eventRequests(t *testing.T) []dtos.EventsImportRequest {
	t.Helper()
	var reqs []dtos.EventsImportRequest
	for _, c := range s.calls {
		if c.endpoint != constants.EndpointEventsImport {
			continue
		}
		req, ok := c.payload.(dtos.EventsImportRequest)
		if !ok {
			t.Fatalf("expected EventsImportRequest payload, got %T", c.payload)
		}
		reqs = append(reqs, req)
	}
	return reqs
}

type stubDirectory struct {
	users   []dtos.UserItem
	err     error
	fetches int
}

func (d *stubDirectory) Users(ctx context.Context) ([]dtos.UserItem, error) {
	d.fetches++
	return d.users, d.err
}

func testDirectory() *stubDirectory {
	return &stubDirectory{users: []dtos.UserItem{
		{UserID: 101, FirstName: "Ava", LastName: "Stone", Username: "astone", EmailAddress: "ava@club.test", UUID: "uuid-1"},
		{UserID: 102, FirstName: "Ben", LastName: "Ortiz", Username: "bortiz", EmailAddress: "ben@club.test", UUID: "uuid-2"},
	}}
}

func TestInsertEventsAccounting(t *testing.T) {
	api := &spyClient{enteredBy: 7}
	dir := testDirectory()
	im := New(api, dir)

	rows := []Row{
		{"username": "astone", "start_date": "01/03/2026", "Load": "55"},
		{"username": "bortiz", "start_date": "01/03/2026", "Load": "60"},
		{"username": "ghost", "start_date": "01/03/2026", "Load": "10"},
	}

	summary, err := im.InsertEvents(context.Background(), "Training Log", rows, Options{IdentifierKind: IdentifierUsername})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Attempted != 3 || summary.Succeeded != 2 || len(summary.Failed) != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Attempted != summary.Succeeded+len(summary.Failed) {
		t.Fatalf("accounting identity broken: %+v", summary)
	}
	if summary.Failed[0].Identifier != "ghost" {
		t.Errorf("expected failure for 'ghost', got %+v", summary.Failed[0])
	}

	reqs := api.eventRequests(t)
	if len(reqs) != 1 || len(reqs[0].Events) != 2 {
		t.Fatalf("expected one chunk with two events, got %+v", reqs)
	}
	if reqs[0].Events[0].EnteredByUserID != 7 {
		t.Errorf("enteredByUserId = %d, want 7", reqs[0].Events[0].EnteredByUserID)
	}
	if reqs[0].Events[0].UserID.UserID != 101 {
		t.Errorf("resolved userId = %d, want 101", reqs[0].Events[0].UserID.UserID)
	}
	if dir.fetches != 1 {
		t.Errorf("resolver should fetch the directory once per batch, got %d", dir.fetches)
	}
}

func TestMissingIdentifierFailsBeforeDispatch(t *testing.T) {
	api := &spyClient{}
	im := New(api, testDirectory())

	rows := []Row{
		{"username": "astone", "Load": "55"},
		{"Load": "60"},
	}

	_, err := im.InsertEvents(context.Background(), "Training Log", rows, Options{IdentifierKind: IdentifierUsername})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Kind != KindMissingIdentifier {
		t.Fatalf("expected MissingIdentifier validation error, got %v", err)
	}
	if len(api.calls) != 0 {
		t.Fatalf("expected zero network calls, got %d", len(api.calls))
	}
}

func TestDateValidation(t *testing.T) {
	cases := []struct {
		name    string
		row     Row
		wantErr bool
	}{
		{"day out of range", Row{"username": "astone", "start_date": "32/01/2025", "Load": "1"}, true},
		{"iso format rejected", Row{"username": "astone", "start_date": "2026-03-01", "Load": "1"}, true},
		{"non-string rejected", Row{"username": "astone", "start_date": 20260301, "Load": "1"}, true},
		{"empty passes", Row{"username": "astone", "start_date": "", "Load": "1"}, false},
		{"absent passes", Row{"username": "astone", "Load": "1"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &spyClient{enteredBy: 7}
			im := New(api, testDirectory())

			_, err := im.InsertEvents(context.Background(), "Training Log", []Row{tc.row}, Options{IdentifierKind: IdentifierUsername})
			var verr *ValidationError
			if tc.wantErr {
				if !errors.As(err, &verr) || verr.Kind != KindInvalidDateFormat {
					t.Fatalf("expected InvalidDateFormat validation error, got %v", err)
				}
				if len(api.calls) != 0 {
					t.Fatalf("expected zero network calls, got %d", len(api.calls))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSparseTableRowsMergeIntoOneEvent(t *testing.T) {
	api := &spyClient{enteredBy: 7}
	im := New(api, testDirectory())

	rows := []Row{
		{"username": "astone", "start_date": "01/03/2026", "Session": "AM", "Exercise": "Squat", "Reps": "5"},
		{"username": "astone", "start_date": "01/03/2026", "Exercise": "Bench", "Reps": ""},
		{"username": "astone", "start_date": "01/03/2026", "Exercise": "Row", "Reps": "8"},
	}

	summary, err := im.InsertEvents(context.Background(), "Gym Session", rows, Options{
		IdentifierKind: IdentifierUsername,
		TableFields:    []string{"Exercise", "Reps"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Attempted != 1 || summary.Succeeded != 1 {
		t.Fatalf("three source rows should form one record: %+v", summary)
	}

	reqs := api.eventRequests(t)
	if len(reqs) != 1 || len(reqs[0].Events) != 1 {
		t.Fatalf("expected one event, got %+v", reqs)
	}
	event := reqs[0].Events[0]
	if len(event.Rows) != 3 {
		t.Fatalf("expected 3 wire rows, got %d", len(event.Rows))
	}

	// Row 0 holds the scalar plus the first table sub-row
	if !hasPair(event.Rows[0].Pairs, "session", "AM") || !hasPair(event.Rows[0].Pairs, "exercise", "Squat") {
		t.Errorf("row 0 missing merged pairs: %+v", event.Rows[0].Pairs)
	}
	// The empty Reps cell on the second row must be absent, not ""
	if hasKey(event.Rows[1].Pairs, "reps") {
		t.Errorf("empty reps cell should be skipped: %+v", event.Rows[1].Pairs)
	}
	if !hasPair(event.Rows[2].Pairs, "reps", "8") {
		t.Errorf("row 2 missing reps pair: %+v", event.Rows[2].Pairs)
	}
}

func TestUpdateRequiresRecordID(t *testing.T) {
	api := &spyClient{}
	im := New(api, testDirectory())

	rows := []Row{
		{"username": "astone", "start_date": "01/03/2026", "Load": "55"},
	}

	_, err := im.UpdateEvents(context.Background(), "Training Log", rows, Options{IdentifierKind: IdentifierUsername})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Kind != KindMissingRecordIDColumn {
		t.Fatalf("expected MissingRecordIDColumn validation error, got %v", err)
	}
}

func TestUpsertSplitsByEventID(t *testing.T) {
	api := &spyClient{enteredBy: 7}
	im := New(api, testDirectory())

	rows := []Row{
		{"username": "astone", "start_date": "01/03/2026", "event_id": "9001", "Load": "55"},
		{"username": "bortiz", "start_date": "01/03/2026", "Load": "60"},
	}

	summary, err := im.UpsertEvents(context.Background(), "Training Log", rows, Options{IdentifierKind: IdentifierUsername})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Succeeded != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	reqs := api.eventRequests(t)
	if len(reqs) != 2 {
		t.Fatalf("expected separate update and insert chunks, got %d", len(reqs))
	}

	update := reqs[0].Events[0]
	if update.ExistingEventID == nil || *update.ExistingEventID != 9001 {
		t.Errorf("update entry missing existingEventId: %+v", update)
	}
	insert := reqs[1].Events[0]
	if insert.ExistingEventID != nil {
		t.Errorf("insert entry must omit existingEventId, got %d", *insert.ExistingEventID)
	}
}

func TestConfirmDeclineCancelsEverything(t *testing.T) {
	api := &spyClient{enteredBy: 7}
	im := New(api, testDirectory())

	rows := []Row{
		{"username": "astone", "start_date": "01/03/2026", "event_id": "9001", "Load": "55"},
		{"username": "bortiz", "start_date": "01/03/2026", "Load": "60"},
	}

	declined := false
	_, err := im.UpsertEvents(context.Background(), "Training Log", rows, Options{
		IdentifierKind: IdentifierUsername,
		Confirm: func(operation Mode, count int, form string) bool {
			declined = true
			if operation != ModeUpsert || count != 1 || form != "Training Log" {
				t.Errorf("unexpected confirm invocation: %v %d %s", operation, count, form)
			}
			return false
		},
	})
	if !errors.Is(err, ErrOperationCancelled) {
		t.Fatalf("expected ErrOperationCancelled, got %v", err)
	}
	if !declined {
		t.Fatal("confirmation hook never ran")
	}
	for _, c := range api.calls {
		if c.endpoint == constants.EndpointEventsImport {
			t.Fatalf("declined batch must not dispatch, saw call to %s", c.endpoint)
		}
	}
}

func TestDispatchFailureFailsWholeChunk(t *testing.T) {
	// Second of two 3-record payloads gets rejected
	api := &spyClient{
		enteredBy: 7,
		failCall:  map[int]error{1: errors.New("boom")},
	}

	var users []dtos.UserItem
	var rows []Row
	for _, n := range []string{"u1", "u2", "u3", "u4", "u5", "u6"} {
		users = append(users, dtos.UserItem{UserID: len(users) + 1, Username: n})
		rows = append(rows, Row{"username": n, "start_date": "01/03/2026", "Load": "1"})
	}
	im := New(api, &stubDirectory{users: users})

	summary, err := im.InsertEvents(context.Background(), "Training Log", rows, Options{
		IdentifierKind: IdentifierUsername,
		ChunkSize:      3,
	})
	if err != nil {
		t.Fatalf("dispatch failures must not abort the batch: %v", err)
	}

	if summary.Attempted != 6 || summary.Succeeded != 3 || len(summary.Failed) != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	for i, want := range []string{"u4", "u5", "u6"} {
		if summary.Failed[i].Identifier != want {
			t.Errorf("failed chunk should name exactly its own records: %+v", summary.Failed)
			break
		}
	}
}

func TestChunkingPreservesOrder(t *testing.T) {
	users := make([]dtos.UserItem, 5)
	rows := make([]Row, 5)
	names := []string{"u1", "u2", "u3", "u4", "u5"}
	for i, n := range names {
		users[i] = dtos.UserItem{UserID: i + 1, Username: n}
		rows[i] = Row{"username": n, "start_date": "01/03/2026", "Load": "1"}
	}

	api := &spyClient{enteredBy: 7}
	im := New(api, &stubDirectory{users: users})

	if _, err := im.InsertEvents(context.Background(), "Training Log", rows, Options{
		IdentifierKind: IdentifierUsername,
		ChunkSize:      2,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reqs := api.eventRequests(t)
	if len(reqs) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(reqs))
	}
	var got []int
	for _, req := range reqs {
		for _, e := range req.Events {
			got = append(got, e.UserID.UserID)
		}
	}
	for i, id := range got {
		if id != i+1 {
			t.Fatalf("chunking reordered records: %v", got)
		}
	}
	if len(reqs[0].Events) != 2 || len(reqs[1].Events) != 2 || len(reqs[2].Events) != 1 {
		t.Errorf("chunk sizes wrong: %d %d %d", len(reqs[0].Events), len(reqs[1].Events), len(reqs[2].Events))
	}
}

func TestProfileDedupeKeepsLast(t *testing.T) {
	api := &spyClient{enteredBy: 7}
	im := New(api, testDirectory())

	rows := []Row{
		{"username": "astone", "Position": "Guard"},
		{"username": "bortiz", "Position": "Center"},
		{"username": "astone", "Position": "Forward"},
	}

	summary, err := im.UpsertProfiles(context.Background(), "Athlete Profile", rows, Options{IdentifierKind: IdentifierUsername})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Attempted != 2 || summary.Succeeded != 2 {
		t.Fatalf("duplicates should collapse before dispatch: %+v", summary)
	}

	var profiles []dtos.ProfileEntry
	for _, c := range api.calls {
		if c.endpoint != constants.EndpointProfileImport {
			continue
		}
		profiles = append(profiles, c.payload.(dtos.ProfileEntry))
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profile dispatches, got %d", len(profiles))
	}
	for _, p := range profiles {
		if p.UserID.UserID == 101 && !hasPair(p.Rows[0].Pairs, "position", "Forward") {
			t.Errorf("profile for user 101 should keep the last record: %+v", p.Rows[0].Pairs)
		}
	}
}

func TestAboutResolutionIgnoresCase(t *testing.T) {
	api := &spyClient{enteredBy: 7}
	im := New(api, testDirectory())

	rows := []Row{
		{"about": "  AVA stone ", "start_date": "01/03/2026", "Load": "55"},
	}

	summary, err := im.InsertEvents(context.Background(), "Training Log", rows, Options{IdentifierKind: IdentifierAbout})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("about matching should ignore case and padding: %+v", summary)
	}
	reqs := api.eventRequests(t)
	if reqs[0].Events[0].UserID.UserID != 101 {
		t.Errorf("resolved wrong user: %+v", reqs[0].Events[0].UserID)
	}
}

func TestUserIDPassthroughSkipsDirectory(t *testing.T) {
	api := &spyClient{enteredBy: 7}
	dir := testDirectory()
	im := New(api, dir)

	rows := []Row{
		{"user_id": "314", "start_date": "01/03/2026", "Load": "55"},
		{"user_id": "not-a-number", "start_date": "01/03/2026", "Load": "60"},
	}

	summary, err := im.InsertEvents(context.Background(), "Training Log", rows, Options{IdentifierKind: IdentifierUserID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir.fetches != 0 {
		t.Errorf("numeric identifiers must not hit the directory, got %d fetches", dir.fetches)
	}
	if summary.Succeeded != 1 || len(summary.Failed) != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	reqs := api.eventRequests(t)
	if reqs[0].Events[0].UserID.UserID != 314 {
		t.Errorf("user id not passed through: %+v", reqs[0].Events[0].UserID)
	}
}

func TestAmbiguousScalarValueRejected(t *testing.T) {
	api := &spyClient{enteredBy: 7}
	im := New(api, testDirectory())

	rows := []Row{
		{"username": "astone", "start_date": "01/03/2026", "Load": "55", "Exercise": "Squat"},
		{"username": "astone", "start_date": "01/03/2026", "Load": "60", "Exercise": "Bench"},
	}

	_, err := im.InsertEvents(context.Background(), "Gym Session", rows, Options{
		IdentifierKind: IdentifierUsername,
		TableFields:    []string{"Exercise"},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Kind != KindAmbiguousScalarValue {
		t.Fatalf("expected AmbiguousScalarValue, got %v", err)
	}
}

func TestEmptyBatchRejected(t *testing.T) {
	im := New(&spyClient{}, testDirectory())
	_, err := im.InsertEvents(context.Background(), "Training Log", nil, Options{})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Kind != KindEmptyBatch {
		t.Fatalf("expected EmptyBatch validation error, got %v", err)
	}
}

func hasPair(pairs []dtos.KeyValuePair, key, value string) bool {
	for _, p := range pairs {
		if p.Key == key && p.Value == value {
			return true
		}
	}
	return false
}

func hasKey(pairs []dtos.KeyValuePair, key string) bool {
	for _, p := range pairs {
		if p.Key == key {
			return true
		}
	}
	return false
}
