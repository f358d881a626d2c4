package http

import (
	"net/http"
	"reflect"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"quizhub-api/internal/app"
	"quizhub-api/internal/domain"
)

const leaderboardPushInterval = 5 * time.Second

// WSHandler streams leaderboard snapshots over a websocket. The feed is
// public: entries are already masked and no current-user lookup happens, so
// no credential is required to connect.
type WSHandler struct {
	leaderboard *app.LeaderboardService
	upgrader    websocket.Upgrader
	interval    time.Duration
	log         *logrus.Entry
}

func NewWSHandler(leaderboard *app.LeaderboardService, log *logrus.Entry) *WSHandler {
	return &WSHandler{
		leaderboard: leaderboard,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		interval: leaderboardPushInterval,
		log:      log,
	}
}

type wsMessage struct {
	Type    string             `json:"type"`
	Payload domain.Leaderboard `json:"payload"`
}

// ServeWS upgrades the request and pushes a snapshot immediately, then on
// every interval tick where the ranking changed.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	// Drain client frames so pings and close messages are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last *domain.Leaderboard
	for {
		board, err := h.leaderboard.Leaderboard(r.Context(), 0, nil)
		if err == nil && (last == nil || !reflect.DeepEqual(last.Entries, board.Entries)) {
			if err := conn.WriteJSON(wsMessage{Type: "leaderboard", Payload: *board}); err != nil {
				return
			}
			last = board
		}

		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
