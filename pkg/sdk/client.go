// Package sdk is a Go client for the portal HTTP API and its realtime
// profile stream.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"portal/internal/models"
)

const maxErrorBody = 64 << 10

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("portal api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("portal api: %d: %s", e.Status, e.Message)
}

// Client talks to one portal API. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken starts the client with an existing session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:8375.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Token returns the current session token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the session token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// SignupRequest is the signup payload.
type SignupRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	FullName    *string `json:"full_name,omitempty"`
	YearOfStudy *int    `json:"year_of_study,omitempty"`
}

// SignupResponse is returned by a successful signup.
type SignupResponse struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Profile models.Profile `json:"profile"`
}

// LoginResponse carries the session and the route the caller belongs on.
type LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Profile   models.Profile `json:"profile"`
	Redirect  string         `json:"redirect"`
}

// Usage is the admin console's KPI block.
type Usage struct {
	models.UsageStats
	Online int `json:"online"`
}

// Signup creates an account. It does not log in.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	var out SignupResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Logout revokes the current token and forgets it.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// Me fetches the caller's profile.
func (c *Client) Me(ctx context.Context) (*models.Profile, error) {
	return c.profile(ctx, http.MethodGet, "/api/profile", nil)
}

// UpdateProfile changes the caller's name and year of study. Nil fields are left alone.
func (c *Client) UpdateProfile(ctx context.Context, fullName *string, yearOfStudy *int) (*models.Profile, error) {
	body := map[string]any{}
	if fullName != nil {
		body["full_name"] = *fullName
	}
	if yearOfStudy != nil {
		body["year_of_study"] = *yearOfStudy
	}
	return c.profile(ctx, http.MethodPatch, "/api/profile", body)
}

// Resubmit returns the caller's rejected profile to review.
func (c *Client) Resubmit(ctx context.Context) (*models.Profile, error) {
	return c.profile(ctx, http.MethodPost, "/api/profile/resubmit", nil)
}

// ApproveUser approves a pending profile. Requires an approved admin session.
func (c *Client) ApproveUser(ctx context.Context, uid string) (*models.Profile, error) {
	return c.profile(ctx, http.MethodPost, "/api/rpc/approve_user", map[string]string{"uid": uid})
}

// RejectUser rejects a pending profile with an optional reason.
func (c *Client) RejectUser(ctx context.Context, uid, reason string) (*models.Profile, error) {
	return c.profile(ctx, http.MethodPost, "/api/rpc/reject_user", map[string]string{"uid": uid, "reason": reason})
}

// Profiles lists profiles for the admin console. Empty filter fields match everything.
func (c *Client) Profiles(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.Role != "" {
		q.Set("role", string(filter.Role))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	var out []models.Profile
	if err := c.do(ctx, http.MethodGet, "/api/admin/profiles", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PendingProfiles lists the review queue, oldest first.
func (c *Client) PendingProfiles(ctx context.Context) ([]models.Profile, error) {
	var out []models.Profile
	if err := c.do(ctx, http.MethodGet, "/api/admin/profiles/pending", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Usage fetches the admin KPIs.
func (c *Client) Usage(ctx context.Context) (*Usage, error) {
	var out Usage
	if err := c.do(ctx, http.MethodGet, "/api/admin/usage", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat sends a message to the assistant and returns the raw reply body.
func (c *Client) Chat(ctx context.Context, content, conversationID string) (json.RawMessage, error) {
	body := map[string]string{"content": content}
	if conversationID != "" {
		body["conversationId"] = conversationID
	}
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/chat", nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IssueTicket requests a single-use websocket ticket.
func (c *Client) IssueTicket(ctx context.Context) (string, error) {
	var out struct {
		Ticket string `json:"ticket"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/ws/ticket", nil, nil, &out); err != nil {
		return "", err
	}
	return out.Ticket, nil
}

func (c *Client) profile(ctx context.Context, method, path string, body any) (*models.Profile, error) {
	var out models.Profile
	if err := c.do(ctx, method, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode}
	var payload models.ErrorResponse
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
