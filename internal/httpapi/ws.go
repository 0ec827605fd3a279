package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/net/websocket"

	"github.com/splitpot/splitpot/internal/middleware"
	"github.com/splitpot/splitpot/internal/notify"
)

// notificationsHandler bridges the fanout hub onto a websocket. Each socket
// gets its own hub channel; events are written as JSON frames in arrival
// order. When the hub drops the channel for being slow, the range ends and
// the socket closes.
func (s *Server) notificationsHandler() http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		userID := middleware.GetUserID(conn.Request().Context())
		if userID == "" {
			conn.Close()
			return
		}

		ch := make(chan notify.Event, 16)
		s.hub.Connect(userID, ch)
		defer s.hub.Disconnect(userID, ch)

		slog.Debug("notification socket opened", "user_id", userID)
		for event := range ch {
			frame, err := json.Marshal(event)
			if err != nil {
				slog.Error("failed to encode notification", "error", err)
				continue
			}
			if err := websocket.Message.Send(conn, string(frame)); err != nil {
				slog.Debug("notification socket closed", "user_id", userID, "error", err)
				return
			}
		}
	})
}
