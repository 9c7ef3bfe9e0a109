package broker

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 * 1024
)

// Session is one live transport connection. It carries the optional verified
// user id resolved at upgrade time and nothing else; display identity for
// anonymous chat lives in the presence registry.
type Session struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
	closed bool
	log    *slog.Logger
}

func NewSession(conn *websocket.Conn, userID string, bufferSize int, log *slog.Logger) *Session {
	if conn != nil {
		conn.SetReadLimit(maxMessageSize)
	}
	return &Session{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, bufferSize),
		log:    log,
	}
}

// ID returns the opaque connection id.
func (s *Session) ID() string { return s.id }

// UserID returns the verified user id, or "" for an anonymous connection.
func (s *Session) UserID() string { return s.userID }

// readPump parses inbound envelopes and hands them to the broker. It owns the
// connection teardown: when the read loop exits for any reason the broker is
// told to disconnect the session.
func (s *Session) readPump(b *Broker) {
	defer b.Disconnect(s)

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("Unexpected close", "conn", s.id, "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			s.log.Debug("Dropping malformed frame", "conn", s.id)
			continue
		}
		b.Dispatch(s, env)
	}
}

// writePump drains the send channel to the socket and keeps the connection
// alive with periodic pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
