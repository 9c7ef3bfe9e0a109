package broker

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"hobbyhub/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers connect from the separately hosted frontend; cross-origin
	// policy is enforced upstream.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades HTTP requests to websocket sessions. A valid token on the
// query string yields a verified user id; anything else connects anonymously.
type Handler struct {
	broker     *Broker
	verifier   auth.TokenVerifier
	bufferSize int
	log        *slog.Logger
}

func NewHandler(broker *Broker, verifier auth.TokenVerifier, bufferSize int, log *slog.Logger) *Handler {
	return &Handler{broker: broker, verifier: verifier, bufferSize: bufferSize, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	var userID string
	if token := r.URL.Query().Get("token"); token != "" {
		userID, err = h.verifier.Verify(token)
		if err != nil {
			// An invalid credential degrades to an anonymous connection
			h.log.Debug("Token rejected", "remote", r.RemoteAddr, "error", err)
			userID = ""
		}
	}

	session := NewSession(conn, userID, h.bufferSize, h.log)
	h.broker.Connect(session)
}
