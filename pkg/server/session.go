package server

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/way"
	"github.com/vango-dev/way/pkg/dom"
)

// Session is one browser connection and the engine hydrating its copy of
// the page.
type Session struct {
	ID string

	server *Server
	conn   *websocket.Conn
	engine *way.Engine
	logger *slog.Logger

	writeMu sync.Mutex
	closed  atomic.Bool
}

func newSession(s *Server, conn *websocket.Conn, eng *way.Engine) *Session {
	id := uuid.NewString()
	return &Session{
		ID:     id,
		server: s,
		conn:   conn,
		engine: eng,
		logger: s.logger.With("session_id", id),
	}
}

// Start sends the hydrated body to the client.
func (sess *Session) Start() {
	sess.server.mu.Lock()
	body := sess.snapshot()
	sess.server.mu.Unlock()

	if err := sess.Send(Message{Type: TypeHTML, HTML: body}); err != nil {
		sess.logger.Warn("initial send failed", "error", err)
		sess.Close()
	}
}

// snapshot assigns hydration IDs to new interactive elements and renders
// the body. The caller must hold the server's engine lock.
func (sess *Session) snapshot() string {
	doc := sess.engine.Document()
	doc.AssignHIDs()
	return doc.Body().InnerHTML()
}

// ReadLoop handles client messages until the connection closes.
func (sess *Session) ReadLoop() {
	defer sess.Close()

	cfg := sess.server.config
	sess.conn.SetReadLimit(cfg.MaxMessageSize)

	for {
		if sess.closed.Load() {
			return
		}
		_ = sess.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))

		msgType, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				sess.logger.Warn("read error", "error", err)
				sess.server.metrics.WebSocketError("read")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		reply := sess.handle(data)
		if err := sess.Send(reply); err != nil {
			sess.logger.Warn("write error", "error", err)
			sess.server.metrics.WebSocketError("write")
			return
		}
	}
}

// handle replays one client message against the session's document and
// returns the reply.
func (sess *Session) handle(data []byte) Message {
	m, err := DecodeMessage(data)
	if err != nil {
		sess.server.metrics.WebSocketError("decode")
		return Message{Type: TypeError, Error: err.Error()}
	}
	if m.Type != TypeEvent {
		return Message{Type: TypeError, Error: fmt.Sprintf("unexpected %s message", m.Type)}
	}

	sess.server.mu.Lock()
	defer sess.server.mu.Unlock()

	el := dom.FindByHID(sess.engine.Document().Root(), m.HID)
	if el == nil {
		return Message{Type: TypeError, Error: fmt.Sprintf("unknown element %q", m.HID)}
	}

	var opts []way.TriggerOption
	if m.Value != nil {
		opts = append(opts, way.WithValue(*m.Value))
	}
	if m.Checked != nil {
		opts = append(opts, way.WithChecked(*m.Checked))
	}
	sess.engine.Trigger(el, m.Event, opts...)
	sess.logger.Debug("event", "hid", m.HID, "event", m.Event)

	return Message{Type: TypeHTML, HTML: sess.snapshot()}
}

// Send writes m to the client.
func (sess *Session) Send(m Message) error {
	if sess.closed.Load() {
		return ErrSessionClosed
	}
	data, err := EncodeMessage(m)
	if err != nil {
		return err
	}

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	_ = sess.conn.SetWriteDeadline(deadline(sess.server.config.WriteTimeout))
	return sess.conn.WriteMessage(websocket.TextMessage, data)
}

// Close disposes the session's engine and closes the connection. It is
// safe to call more than once.
func (sess *Session) Close() {
	if !sess.closed.CompareAndSwap(false, true) {
		return
	}

	sess.server.mu.Lock()
	sess.engine.Dispose()
	sess.server.mu.Unlock()

	sess.writeMu.Lock()
	_ = sess.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		deadline(sess.server.config.WriteTimeout))
	sess.writeMu.Unlock()
	_ = sess.conn.Close()

	sess.server.removeSession(sess)
}

func deadline(d time.Duration) time.Time {
	return time.Now().Add(d)
}
