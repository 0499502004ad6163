package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"chatdesk/internal/store"
)

// RemoteError is the single error type every failed data fetch normalizes
// to. Message is human-readable: the JSON body's error field when present,
// the raw response text otherwise, or a generic fallback.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// ErrSessionIDRequired is raised client-side before any request is made.
var ErrSessionIDRequired = errors.New("session id is required")

const genericRemoteError = "unexpected API error"

// Client is the remote data gateway against the dashboard API. The cookie
// jar carries the auth marker set by Login. No retries happen here; retrying
// is the poller's policy.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar},
	}, nil
}

// Login authenticates against the fixed dashboard credentials. On success
// the signed session cookie is retained for subsequent fetches.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("marshal login body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return remoteError(resp)
	}
	return nil
}

// FetchSessions returns the session list for a tenant, already sorted
// most-recent-first by the server.
func (c *Client) FetchSessions(ctx context.Context, tenant store.Tenant) ([]store.SessionSummary, error) {
	var payload struct {
		Sessions []store.SessionSummary `json:"sessions"`
	}
	endpoint := c.baseURL + "/api/sessions?tenant=" + url.QueryEscape(string(tenant))
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Sessions, nil
}

// FetchMessages returns one session's full thread, ascending by created_at.
func (c *Client) FetchMessages(ctx context.Context, sessionID string, tenant store.Tenant) ([]store.ChatMessage, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionIDRequired
	}
	var payload struct {
		Messages []store.ChatMessage `json:"messages"`
	}
	endpoint := c.baseURL + "/api/sessions/" + url.PathEscape(sessionID) + "/messages?tenant=" + url.QueryEscape(string(tenant))
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Messages, nil
}

// DownloadExport fetches the CSV export for a tenant, scoped to one
// session when sessionID is non-blank. The filename comes from the
// server's Content-Disposition header.
func (c *Client) DownloadExport(ctx context.Context, tenant store.Tenant, sessionID string) (filename string, data []byte, err error) {
	endpoint := c.baseURL + "/api/export?tenant=" + url.QueryEscape(string(tenant))
	if strings.TrimSpace(sessionID) != "" {
		endpoint += "&session_id=" + url.QueryEscape(sessionID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, &RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, remoteError(resp)
	}
	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, &RemoteError{Status: resp.StatusCode, Message: "truncated export download"}
	}

	filename = "export.csv"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if name := params["filename"]; name != "" {
			filename = name
		}
	}
	return filename, data, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return remoteError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &RemoteError{Status: resp.StatusCode, Message: "malformed API response"}
	}
	return nil
}

func remoteError(resp *http.Response) *RemoteError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return &RemoteError{Status: resp.StatusCode, Message: body.Error}
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return &RemoteError{Status: resp.StatusCode, Message: text}
	}
	return &RemoteError{Status: resp.StatusCode, Message: genericRemoteError}
}
