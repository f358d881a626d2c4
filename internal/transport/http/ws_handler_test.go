package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quizhub-api/internal/app"
	"quizhub-api/internal/domain"
	"quizhub-api/internal/infra/memory"
	"quizhub-api/internal/logging"
)

func TestWebSocketLeaderboardFeed(t *testing.T) {
	store := memory.NewStore()
	score := func(n int) *int { return &n }
	seeded := []*domain.User{
		{ID: "1", Username: "alice", Email: "alice@example.com", Role: domain.RoleUser, Score: score(200)},
		{ID: "2", Username: "bob", Email: "bob@example.com", Role: domain.RoleUser, Score: score(150)},
	}
	for _, u := range seeded {
		if err := store.InsertUser(context.Background(), u); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	log := logging.Discard()
	wsHandler := NewWSHandler(app.NewLeaderboardService(store, log), log)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/leaderboard", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/leaderboard"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var msg struct {
		Type    string             `json:"type"`
		Payload domain.Leaderboard `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "leaderboard" {
		t.Fatalf("expected leaderboard message, got %s", msg.Type)
	}
	if len(msg.Payload.Entries) != 2 {
		t.Fatalf("expected both ranked users, got %+v", msg.Payload.Entries)
	}
	if msg.Payload.Entries[0].User.Email != "a***e@example.com" {
		t.Fatalf("feed must carry masked emails, got %q", msg.Payload.Entries[0].User.Email)
	}
	if msg.Payload.CurrentUserEntry != nil {
		t.Fatalf("public feed must not carry a personal entry: %+v", msg.Payload.CurrentUserEntry)
	}
}
