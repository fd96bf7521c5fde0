// Package chatproxy forwards chat messages to the external chat backend.
package chatproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"portal/internal/observability"
)

const maxResponseBytes = 1 << 20

// Request is the payload forwarded downstream.
type Request struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Reply is the downstream answer. Body is returned to callers verbatim.
type Reply struct {
	Body json.RawMessage
	// Content is the assistant text when the body carries a "content" string.
	Content string
	// Echo reports that no backend is configured and the reply was synthesised.
	Echo bool
}

// APIError represents a chat service failure.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client calls the chat service over HTTP.
type Client struct {
	url        string
	key        string
	httpClient *http.Client
}

// NewClient constructs a chat service client. With an empty url or key the
// client echoes messages back instead of calling out.
func NewClient(url, key string) *Client {
	return &Client{
		url:        strings.TrimSpace(url),
		key:        strings.TrimSpace(key),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether requests leave the process.
func (c *Client) Configured() bool {
	return c.url != "" && c.key != ""
}

// Send forwards req, or echoes it when the backend is not configured.
func (c *Client) Send(ctx context.Context, req Request) (*Reply, error) {
	start := time.Now()
	if !c.Configured() {
		reply, err := echo(req.Content)
		observe("echo", err, start)
		return reply, err
	}

	reply, err := c.forward(ctx, req)
	observe("proxy", err, start)
	return reply, err
}

func echo(content string) (*Reply, error) {
	text := "Echo: " + content
	body, err := json.Marshal(map[string]string{"role": "assistant", "content": text})
	if err != nil {
		return nil, err
	}
	return &Reply{Body: body, Content: text, Echo: true}, nil
}

func (c *Client) forward(ctx context.Context, req Request) (*Reply, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.key)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		msg := resp.Status
		if resp.StatusCode < 400 {
			msg = "chat service returned invalid JSON"
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}

	reply := &Reply{Body: json.RawMessage(body)}
	var parsed struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		reply.Content = parsed.Content
	}
	return reply, nil
}

func observe(mode string, err error, start time.Time) {
	outcome := "ok"
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		outcome = fmt.Sprintf("status_%d", apiErr.Status)
	case err != nil:
		outcome = "error"
	}
	observability.ChatProxyLatency.WithLabelValues(mode, outcome).Observe(time.Since(start).Seconds())
}
