package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 5 * time.Second
	pongWait  = 60 * time.Second
	// pingPeriod must beat pongWait or idle peers get dropped before
	// they have a chance to answer.
	pingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 8192,
	// The simulator serves a single origin; cross-origin reads are
	// harmless market data.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream upgrades the connection and streams snapshots from the
// client's single-slot mailbox until the peer goes away.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	clientID := uuid.NewString()
	snapshots := s.eng.RegisterSubscriber(clientID)
	defer func() {
		s.eng.UnregisterSubscriber(clientID)
		conn.Close()
	}()

	// Read pump: we expect no application messages, but reading is how
	// close frames and pongs are observed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Pings keep the pong-refreshed read deadline alive for consumers
	// that never send application messages.
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case snap := <-snapshots:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				slog.Debug("snapshot write failed",
					slog.String("client", clientID), slog.Any("error", err))
				return
			}
		}
	}
}
