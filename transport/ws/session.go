// Package ws implements the WebSocket Session: a persistent, reconnecting
// subscription to the telephony server's event stream.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"goa.design/ari-client/internal/clienterr"
	"goa.design/ari-client/internal/retry"
	"goa.design/ari-client/internal/telemetry"
)

// State is the WebSocket Session's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateGaveUp
	StateStopped
)

// Lifecycle event names the Session emits on its own (as opposed to
// server-sourced events).
const (
	EventConnected    = "WebSocketConnected"
	EventReconnecting = "WebSocketReconnecting"
	EventMaxRetries   = "WebSocketMaxRetries"
)

// Dialer opens a WebSocket connection. Production code uses
// websocket.DefaultDialer; tests substitute one pointed at an httptest
// server.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string) (Conn, error)
}

// Conn is the subset of *websocket.Conn the Session needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
}

// gorillaDialer adapts websocket.DefaultDialer to Dialer.
type gorillaDialer struct{}

func (gorillaDialer) DialContext(ctx context.Context, urlStr string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, urlStr, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Options configures a Session.
type Options struct {
	Dialer                 Dialer
	Backoff                retry.Backoff
	MaxConsecutiveFailures int
	IdleTimeout            time.Duration
	Logger                 telemetry.Logger
}

// Sink receives decoded event frames and lifecycle notifications.
type Sink interface {
	// RouteEvent delivers one decoded server-sourced event frame.
	RouteEvent(ctx context.Context, raw map[string]any)
	// RouteLifecycle delivers one client-observable lifecycle event
	// (EventConnected, EventReconnecting, EventMaxRetries).
	RouteLifecycle(ctx context.Context, name string, attempt int)
}

// Session maintains a single logical subscription to the server's event
// stream for a set of application names, reconnecting with bounded
// backoff on unexpected loss.
type Session struct {
	baseURL  string
	username string
	password string
	opts     Options
	sink     Sink

	stopped atomic.Bool
	state   atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	conn   Conn
}

// NewSession constructs a Session against baseURL (http/https; rewritten
// to ws/wss when dialing) with basic credentials, delivering frames to
// sink.
func NewSession(baseURL, username, password string, sink Sink, opts Options) *Session {
	if opts.Dialer == nil {
		opts.Dialer = gorillaDialer{}
	}
	if opts.Backoff == (retry.Backoff{}) {
		opts.Backoff = retry.DefaultBackoff()
	}
	if opts.MaxConsecutiveFailures <= 0 {
		opts.MaxConsecutiveFailures = 20
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.NewNoopLogger()
	}
	s := &Session{baseURL: baseURL, username: username, password: password, opts: opts, sink: sink}
	s.state.Store(int32(StateIdle))
	return s
}

// State returns the Session's current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Start opens the WebSocket connection for apps (the `app` query
// parameter's comma-separated application names) and begins the
// read/reconnect loop. It returns once the first connection attempt
// either succeeds or permanently fails; subsequent reconnects run in the
// background.
func (s *Session) Start(ctx context.Context, apps []string, subscribeAll bool) error {
	s.stopped.Store(false)
	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	wsURL, err := eventsURL(s.baseURL, s.username, s.password, apps, subscribeAll)
	if err != nil {
		return err
	}

	s.state.Store(int32(StateConnecting))
	conn, err := s.dial(ctx, wsURL)
	if err != nil {
		s.state.Store(int32(StateIdle))
		close(s.done)
		return clienterr.NewHostUnreachable(s.baseURL, err)
	}
	s.setConn(conn)
	s.state.Store(int32(StateOpen))
	s.sink.RouteLifecycle(ctx, EventConnected, 0)

	go s.readLoop(runCtx, wsURL, conn)
	return nil
}

// Stop closes the connection and prevents further reconnection. No
// subsequent frame produces any listener invocation until Start is
// called again: closing the live Conn unblocks a read that gorilla's
// ReadMessage would otherwise hold open until IdleTimeout.
func (s *Session) Stop() {
	s.stopped.Store(true)
	s.mu.Lock()
	cancel := s.cancel
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	if cancel != nil {
		cancel()
	}
	s.state.Store(int32(StateStopped))
}

func (s *Session) dial(ctx context.Context, wsURL string) (Conn, error) {
	return s.opts.Dialer.DialContext(ctx, wsURL)
}

func (s *Session) setConn(conn Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

func (s *Session) readLoop(ctx context.Context, wsURL string, conn Conn) {
	defer close(s.done)
	attempt := 0
	for {
		if err := s.drain(ctx, conn); err != nil {
			_ = conn.Close()
			if s.stopped.Load() {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}

			attempt++
			if attempt > s.opts.MaxConsecutiveFailures {
				s.state.Store(int32(StateGaveUp))
				s.sink.RouteLifecycle(ctx, EventMaxRetries, attempt)
				return
			}

			s.state.Store(int32(StateReconnecting))
			s.sink.RouteLifecycle(ctx, EventReconnecting, attempt)
			delay := s.opts.Backoff.Next(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}

			s.state.Store(int32(StateConnecting))
			newConn, dialErr := s.dial(ctx, wsURL)
			if dialErr != nil {
				s.opts.Logger.Warn(ctx, "websocket reconnect failed", "attempt", attempt, "err", dialErr)
				continue
			}
			conn = newConn
			s.setConn(conn)
			attempt = 0 // successful reopen resets the backoff counter
			s.state.Store(int32(StateOpen))
			s.sink.RouteLifecycle(ctx, EventConnected, 0)
			continue
		}
		return
	}
}

// drain reads frames until the connection errors or idles out, forwarding
// each text frame's decoded JSON to the sink.
func (s *Session) drain(ctx context.Context, conn Conn) error {
	for {
		if s.stopped.Load() {
			return nil
		}
		if err := conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout)); err != nil {
			return err
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if s.stopped.Load() {
			return nil
		}
		var raw map[string]any
		if err := json.Unmarshal(payload, &raw); err != nil {
			s.opts.Logger.Warn(ctx, "dropping malformed event frame", "err", err)
			continue
		}
		s.sink.RouteEvent(ctx, raw)
	}
}

// eventsURL builds the WebSocket URL: scheme switched to ws/wss, server's
// events endpoint, app=<csv> and optional subscribeAll=true, plus basic
// credentials embedded as URL userinfo.
func eventsURL(baseURL, username, password string, apps []string, subscribeAll bool) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ari/events"
	if username != "" || password != "" {
		u.User = url.UserPassword(username, password)
	}
	q := u.Query()
	q.Set("app", strings.Join(apps, ","))
	if subscribeAll {
		q.Set("subscribeAll", "true")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
