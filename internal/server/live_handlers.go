package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"gamestats/internal/live"
	"gamestats/internal/logger"
	"gamestats/internal/session"

	"github.com/coder/websocket"
)

func (s *Server) currentBoard(r *http.Request) ([]byte, error) {
	view, err := s.Stats.GetLeaderboard(r.Context(), 0)
	if err != nil {
		return nil, err
	}
	return json.Marshal(live.Message{Type: live.MessageLeaderboard, Board: &view.Board})
}

// handleLeaderboardLive upgrades to a websocket that receives the current
// board and then every change.
func (s *Server) handleLeaderboardLive(w http.ResponseWriter, r *http.Request) {
	log := logger.Component(r.Context(), "live")
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	id, err := session.NewID()
	if err != nil {
		conn.Close(websocket.StatusInternalError, "")
		return
	}
	client := live.NewClient(id, conn)
	if initial, err := s.currentBoard(r); err == nil {
		client.Send <- initial
	}
	s.Hub.Register(client)
	defer s.Hub.Unregister(id)

	// Clients only listen; CloseRead handles control frames and ends ctx on
	// disconnect.
	ctx := conn.CloseRead(r.Context())
	conn.Close(client.WritePump(ctx), "")
}

// handleLeaderboardEvents is the server-sent events variant of the live feed.
func (s *Server) handleLeaderboardEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Hub.Subscribe()
	defer s.Hub.Unsubscribe(ch)

	if initial, err := s.currentBoard(r); err == nil {
		fmt.Fprintf(w, "data: %s\n\n", initial)
		flusher.Flush()
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
