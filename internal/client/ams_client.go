package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"peakform/amsbridge/internal/common"
	"peakform/amsbridge/internal/constants"
	"peakform/amsbridge/internal/logging"
	"peakform/amsbridge/internal/models/dtos"
)

// AMSClient talks to one AMS site. It owns the login session, the response
// cache, and a client-side rate limiter. The import pipeline borrows it
// through the importer.APIClient interface and never manages its lifecycle.
type AMSClient struct {
	BaseURL  string
	AppName  string
	Username string
	Password string
	Client   *http.Client

	cache   common.CacheInterface
	limiter *rate.Limiter

	mu            sync.Mutex
	sessionHeader string
	authenticated bool
	loginData     dtos.LoginResponse
}

// NewAMSClient creates a client for the given site URL. Credentials fall
// back to the AMS_USERNAME/AMS_PASSWORD environment variables.
func NewAMSClient(baseURL, username, password string, cache common.CacheInterface) (*AMSClient, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	appName := baseURL[strings.LastIndex(baseURL, "/")+1:]
	if appName == "" || strings.Contains(appName, ".") {
		return nil, &APIError{
			Code:    constants.ErrCodeAuthenticationFailed,
			Message: "invalid AMS URL: must include a site name, e.g. https://example.ams.com/site",
		}
	}

	if username == "" {
		username = os.Getenv("AMS_USERNAME")
	}
	if password == "" {
		password = os.Getenv("AMS_PASSWORD")
	}

	return &AMSClient{
		BaseURL:  baseURL,
		AppName:  appName,
		Username: username,
		Password: password,
		Client:   &http.Client{Timeout: 30 * time.Second},
		cache:    cache,
		limiter:  rate.NewLimiter(rate.Limit(10), 5),
	}, nil
}

// Login authenticates against user/loginUser (v2) and stores the session
// header for subsequent calls.
func (c *AMSClient) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

func (c *AMSClient) loginLocked(ctx context.Context) error {
	if c.Username == "" || c.Password == "" {
		return &APIError{
			Code:    constants.ErrCodeAuthenticationFailed,
			Message: "no credentials: supply username/password or set AMS_USERNAME and AMS_PASSWORD",
		}
	}

	payload := dtos.LoginRequest{
		Username: c.Username,
		Password: c.Password,
		LoginProperties: dtos.LoginProperties{
			AppName:    c.AppName,
			ClientTime: time.Now().Format("2006-01-02T15:04:05"),
		},
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return fmt.Errorf("failed to encode login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL(constants.EndpointLogin, constants.APIVersionV2), buf)
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.Client.Do(req)
	if err != nil {
		return &APIError{
			Code:    constants.ErrCodeNetworkError,
			Message: constants.GetErrorMessage(constants.ErrCodeNetworkError),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return &APIError{
			Code:       constants.ErrCodeAuthenticationFailed,
			Message:    "invalid URL or login credentials",
			StatusCode: resp.StatusCode,
		}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			Code:       constants.ErrCodeAuthenticationFailed,
			Message:    fmt.Sprintf("login failed with status %d", resp.StatusCode),
			Details:    string(body),
			StatusCode: resp.StatusCode,
		}
	}

	sessionHeader := resp.Header.Get("session-header")
	if sessionHeader == "" {
		return &APIError{
			Code:    constants.ErrCodeAuthenticationFailed,
			Message: "no session header received from server",
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(&c.loginData); err != nil {
		return &APIError{
			Code:    constants.ErrCodeInvalidResponse,
			Message: constants.GetErrorMessage(constants.ErrCodeInvalidResponse),
			Err:     err,
		}
	}

	c.sessionHeader = sessionHeader
	c.authenticated = true

	logging.Info("AMS login succeeded",
		"site", c.AppName,
		"user_id", c.loginData.User.ID,
	)
	return nil
}

// EnteredByUserID returns the authenticated submitter's numeric user id.
// Valid only after a successful login.
func (c *AMSClient) EnteredByUserID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginData.User.ID
}

// Authenticated reports whether a session is established
func (c *AMSClient) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// Fetch performs one authenticated request-response exchange and decodes
// the JSON reply into out. Logs in first if no session is established.
// Responses are never cached on this path; import dispatches must hit the
// server every time.
func (c *AMSClient) Fetch(ctx context.Context, endpoint, method string, payload any, out any, apiVersion string) error {
	if !c.Authenticated() {
		if err := c.Login(ctx); err != nil {
			return err
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter interrupted: %w", err)
	}

	var body io.Reader
	if payload != nil && method != "GET" {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return fmt.Errorf("failed to encode payload for %s: %w", endpoint, err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL(endpoint, apiVersion), body)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", endpoint, err)
	}
	c.setHeaders(req)

	resp, err := c.Client.Do(req)
	if err != nil {
		return &APIError{
			Code:     constants.ErrCodeNetworkError,
			Message:  constants.GetErrorMessage(constants.ErrCodeNetworkError),
			Endpoint: endpoint,
			Err:      err,
		}
	}
	defer resp.Body.Close()

	if err := c.handleHTTPError(resp, endpoint); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", endpoint, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{
			Code:     constants.ErrCodeInvalidResponse,
			Message:  constants.GetErrorMessage(constants.ErrCodeInvalidResponse),
			Endpoint: endpoint,
			Details:  string(raw),
			Err:      err,
		}
	}
	return nil
}

// FetchCached is Fetch with a read-through response cache, for idempotent
// lookups like usersearch. The cache key covers endpoint, method, and
// payload so different searches never collide.
func (c *AMSClient) FetchCached(ctx context.Context, endpoint, method string, payload any, out any, apiVersion string) error {
	if c.cache == nil {
		return c.Fetch(ctx, endpoint, method, payload, out, apiVersion)
	}

	key := c.cacheKey(endpoint, method, payload)
	if val, found := c.cache.Get(key); found {
		if raw, ok := val.(string); ok {
			if err := json.Unmarshal([]byte(raw), out); err == nil {
				return nil
			}
			// Corrupt entry: drop it and fall through to the network
			c.cache.Delete(key)
		}
	}

	var raw json.RawMessage
	if err := c.Fetch(ctx, endpoint, method, payload, &raw, apiVersion); err != nil {
		return err
	}
	c.cache.Set(key, string(raw), constants.ResponseCacheTTL)
	return json.Unmarshal(raw, out)
}

func (c *AMSClient) cacheKey(endpoint, method string, payload any) string {
	encoded, _ := json.Marshal(payload)
	sum := sha256.Sum256([]byte(c.BaseURL + "|" + method + "|" + endpoint + "|" + string(encoded)))
	return string(constants.CachePrefixResponse) + ":" + hex.EncodeToString(sum[:])
}

func (c *AMSClient) apiURL(endpoint, apiVersion string) string {
	return fmt.Sprintf("%s/api/%s/%s?informat=json&format=json",
		c.BaseURL, apiVersion, strings.TrimLeft(endpoint, "/"))
}

func (c *AMSClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "amsbridge")
	req.Header.Set("X-APP-ID", "external.amsbridge")

	c.mu.Lock()
	if c.sessionHeader != "" {
		req.Header.Set("session-header", c.sessionHeader)
		req.Header.Set("Cookie", "JSESSIONID="+c.sessionHeader)
	}
	c.mu.Unlock()
}

// handleHTTPError converts HTTP errors to APIError
func (c *AMSClient) handleHTTPError(resp *http.Response, endpoint string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &APIError{
			Code:       constants.ErrCodeAuthenticationFailed,
			Message:    constants.GetErrorMessage(constants.ErrCodeAuthenticationFailed),
			Endpoint:   endpoint,
			Details:    string(body),
			StatusCode: resp.StatusCode,
		}
	case http.StatusTooManyRequests:
		return &APIError{
			Code:       constants.ErrCodeRateLimited,
			Message:    constants.GetErrorMessage(constants.ErrCodeRateLimited),
			Endpoint:   endpoint,
			Details:    string(body),
			StatusCode: resp.StatusCode,
		}
	default:
		return &APIError{
			Code:       constants.ErrCodeNetworkError,
			Message:    fmt.Sprintf("HTTP %d from %s", resp.StatusCode, endpoint),
			Endpoint:   endpoint,
			Details:    string(body),
			StatusCode: resp.StatusCode,
		}
	}
}

// APIError represents a client-level request failure
type APIError struct {
	Code       string
	Message    string
	Endpoint   string
	Details    string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}
