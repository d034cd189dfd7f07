// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flux-framework/flux-coral2/pkg/errors"
	"github.com/flux-framework/flux-coral2/pkg/logging"
)

// pingInterval matches the keepalive cadence the reference broker
// connection uses to detect a half-open socket before the read deadline
// would otherwise catch it.
const pingInterval = 30 * time.Second

// WebSocketSource reads event log entries pushed over a broker
// connection. The broker is expected to frame each entry as a single
// JSON text message, one event log record per message.
type WebSocketSource struct {
	conn   *websocket.Conn
	logger logging.Logger
	done   chan struct{}
}

// DialWebSocket opens a WebSocketSource against the broker's event log
// streaming endpoint for the given job.
func DialWebSocket(ctx context.Context, url string, logger logging.Logger) (*WebSocketSource, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Transport("eventlog.dial", err, "connecting to %s", url)
	}

	src := &WebSocketSource{conn: conn, logger: logger, done: make(chan struct{})}
	go src.keepAlive()
	return src, nil
}

// Next blocks for the next JSON message on the connection and decodes it
// as an event log entry.
func (s *WebSocketSource) Next(ctx context.Context) (*Entry, error) {
	type result struct {
		entry *Entry
		err   error
	}
	out := make(chan result, 1)

	go func() {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			out <- result{err: errors.Transport("eventlog.websocket.read", err, "reading entry")}
			return
		}
		// WriteJSON-framed messages already end in a newline; add one
		// only to a message that lacks it.
		if n := len(data); n == 0 || data[n-1] != '\n' {
			data = append(data, '\n')
		}
		entry, err := Decode(data)
		if err != nil {
			out <- result{err: err}
			return
		}
		out <- result{entry: entry}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-out:
		return r.entry, r.err
	}
}

// Close terminates the underlying connection and stops the keepalive
// goroutine.
func (s *WebSocketSource) Close() error {
	close(s.done)
	return s.conn.Close()
}

// keepAlive pings the connection periodically so a half-open socket is
// detected promptly instead of only at the next application-level read.
func (s *WebSocketSource) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Warn("eventlog websocket ping failed", "error", err.Error())
				return
			}
		}
	}
}

// WebSocketHandler upgrades an HTTP connection and re-publishes each
// entry appended to src as a JSON text message, for a broker-side
// component that fans a single internal event stream out to remote
// watchers.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewWebSocketHandler constructs a handler that accepts connections from
// any origin; the broker is expected to sit behind its own access
// control, not rely on Origin checks.
func NewWebSocketHandler(logger logging.Logger) *WebSocketHandler {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger,
	}
}

// ServeEntries upgrades r and streams every entry read from src to the
// client until src is exhausted, the client disconnects, or ctx ends.
func (h *WebSocketHandler) ServeEntries(w http.ResponseWriter, r *http.Request, src Source) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("eventlog websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.watchForClose(ctx, conn, cancel)

	for {
		entry, err := src.Next(ctx)
		if err != nil {
			return
		}
		if err := conn.WriteJSON(entry); err != nil {
			h.logger.Warn("eventlog websocket write failed", "error", err.Error())
			return
		}
	}
}

// watchForClose discards client-to-server traffic but notices when the
// client goes away, since this is a one-way publish stream.
func (h *WebSocketHandler) watchForClose(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
