package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"peakform/amsbridge/internal/common"
	"peakform/amsbridge/internal/constants"
	"peakform/amsbridge/internal/models/dtos"
)

func loginHandler(t *testing.T, session string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req dtos.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad login body: %v", err)
		}
		if req.Username != "coach" || req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("session-header", session)
		json.NewEncoder(w).Encode(dtos.LoginResponse{
			User: dtos.LoginUser{ID: 42, Username: "coach"},
		})
	}
}

func newTestClient(t *testing.T, handler http.Handler, cache common.CacheInterface) (*AMSClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewAMSClient(srv.URL+"/site", "coach", "secret", cache)
	if err != nil {
		t.Fatalf("NewAMSClient: %v", err)
	}
	return c, srv
}

func TestNewAMSClientRejectsBareHost(t *testing.T) {
	if _, err := NewAMSClient("https://example.ams.com", "u", "p", nil); err == nil {
		t.Fatal("expected error for URL without a site name")
	}
}

func TestLoginStoresSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/site/api/v2/user/loginUser", loginHandler(t, "sess-123"))
	c, _ := newTestClient(t, mux, nil)

	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !c.Authenticated() {
		t.Fatal("client should report authenticated after login")
	}
	if got := c.EnteredByUserID(); got != 42 {
		t.Errorf("EnteredByUserID = %d, want 42", got)
	}
}

func TestLoginRejectedMapsToAuthError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/site/api/v2/user/loginUser", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	c, _ := newTestClient(t, mux, nil)

	err := c.Login(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != constants.ErrCodeAuthenticationFailed {
		t.Fatalf("expected authentication APIError, got %v", err)
	}
}

func TestFetchLogsInAndSendsSession(t *testing.T) {
	var gotSession string
	mux := http.NewServeMux()
	mux.HandleFunc("/site/api/v2/user/loginUser", loginHandler(t, "sess-123"))
	mux.HandleFunc("/site/api/v1/eventsimport", func(w http.ResponseWriter, r *http.Request) {
		gotSession = r.Header.Get("session-header")
		json.NewEncoder(w).Encode(dtos.ImportResponse{State: "SUCCESSFULLY_IMPORTED"})
	})
	c, _ := newTestClient(t, mux, nil)

	var resp dtos.ImportResponse
	err := c.Fetch(context.Background(), constants.EndpointEventsImport, "POST",
		dtos.EventsImportRequest{}, &resp, constants.APIVersionV1)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotSession != "sess-123" {
		t.Errorf("session header not forwarded, got %q", gotSession)
	}
	if !resp.Outcome().Succeeded() {
		t.Errorf("response not decoded: %+v", resp)
	}
}

func TestFetchMapsServerErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/site/api/v2/user/loginUser", loginHandler(t, "sess-123"))
	mux.HandleFunc("/site/api/v1/eventsimport", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	c, _ := newTestClient(t, mux, nil)

	err := c.Fetch(context.Background(), constants.EndpointEventsImport, "POST", nil, nil, constants.APIVersionV1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != constants.ErrCodeRateLimited {
		t.Fatalf("expected rate-limited APIError, got %v", err)
	}
}

func TestFetchCachedSkipsSecondRoundTrip(t *testing.T) {
	searches := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/site/api/v2/user/loginUser", loginHandler(t, "sess-123"))
	mux.HandleFunc("/site/api/v1/usersearch", func(w http.ResponseWriter, r *http.Request) {
		searches++
		json.NewEncoder(w).Encode(dtos.UserSearchResponse{
			Results: []dtos.UserSearchResultGroup{
				{Results: []dtos.UserItem{{UserID: 1, Username: "astone"}}},
			},
		})
	})
	cache := common.NewCacheService(time.Minute, time.Minute)
	c, _ := newTestClient(t, mux, cache)

	payload := dtos.UserSearchRequest{Identification: []map[string]string{}}
	for i := 0; i < 2; i++ {
		var resp dtos.UserSearchResponse
		if err := c.FetchCached(context.Background(), constants.EndpointUserSearch, "POST", payload, &resp, constants.APIVersionV1); err != nil {
			t.Fatalf("fetch %d failed: %v", i, err)
		}
		if len(resp.Results) != 1 || resp.Results[0].Results[0].Username != "astone" {
			t.Fatalf("fetch %d decoded wrong payload: %+v", i, resp)
		}
	}
	if searches != 1 {
		t.Errorf("expected one server round trip, got %d", searches)
	}
}
