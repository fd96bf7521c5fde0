package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"portal/internal/models"

	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamBufferSize = 32
)

// Stream is a live subscription to the caller's profile change events.
// Admin sessions receive every profile's events.
type Stream struct {
	conn   *websocket.Conn
	events chan models.ProfileEvent

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}

	mu  sync.Mutex
	err error
}

// Subscribe obtains a ticket and opens the realtime stream. The stream ends
// when ctx is cancelled, Close is called or the connection drops.
func (c *Client) Subscribe(ctx context.Context) (*Stream, error) {
	ticket, err := c.IssueTicket(ctx)
	if err != nil {
		return nil, fmt.Errorf("issue ticket: %w", err)
	}

	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws"
	u.RawQuery = url.Values{"ticket": {ticket}}.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, decodeError(resp)
		}
		return nil, fmt.Errorf("dial stream: %w", err)
	}

	s := &Stream{
		conn:   conn,
		events: make(chan models.ProfileEvent, streamBufferSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

// Events yields decoded profile events. It is closed when the stream ends.
func (s *Stream) Events() <-chan models.ProfileEvent {
	return s.events
}

// Done is closed once the stream has stopped.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the stream, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the stream. It is safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(streamWriteWait))
		err = s.conn.Close()
	})
	return err
}

func (s *Stream) readLoop() {
	defer close(s.done)
	defer close(s.events)
	defer func() { _ = s.Close() }()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.stopped() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
			}
			return
		}

		var event models.ProfileEvent
		if err := json.Unmarshal(data, &event); err != nil || event.New == nil {
			// Control notices such as dropped-message warnings carry no row.
			continue
		}
		select {
		case s.events <- event:
		case <-s.stop:
			return
		}
	}
}

func (s *Stream) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}
