package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// handleLogStream streams progress events for one request id over a
// websocket. Connecting for an id with an existing subscriber supersedes
// it. The stream closes after the terminal event, on client disconnect, or
// when a newer subscription takes over.
func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["request_id"]
	if requestID == "" {
		s.writeError(w, http.StatusBadRequest, "request_id is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := s.broadcaster.Subscribe(requestID)
	defer s.broadcaster.Unsubscribe(sub)
	s.log.WithField("request_id", requestID).Debug("log stream opened")

	// Reader goroutine only watches for the client going away.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				s.log.WithError(err).WithField("request_id", requestID).Debug("log stream write failed")
				return
			}
			if ev.Terminal() {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "analysis complete"))
				return
			}
		case <-sub.Done():
			return
		case <-clientGone:
			return
		}
	}
}
