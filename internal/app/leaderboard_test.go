package app_test

import (
	"context"
	"errors"
	"testing"

	"quizhub-api/internal/app"
	"quizhub-api/internal/domain"
	"quizhub-api/internal/infra/memory"
	"quizhub-api/internal/logging"
)

func TestLeaderboardRanking(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedUser(t, store, "amy", intPtr(200))
	seedUser(t, store, "ben", intPtr(150))
	carol := seedUser(t, store, "carol", intPtr(100))
	seedUser(t, store, "dave", intPtr(50))
	seedUser(t, store, "erin", nil) // unscored, excluded entirely

	service := app.NewLeaderboardService(store, logging.Discard())
	identity := identityOf(carol)
	board, err := service.Leaderboard(ctx, 5, &identity)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}

	if len(board.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(board.Entries))
	}
	if board.Entries[0].Position != 1 || board.Entries[0].User.Score != 200 {
		t.Fatalf("expected 200 at position 1, got %+v", board.Entries[0])
	}
	if board.Entries[3].Position != 4 || board.Entries[3].User.Score != 50 {
		t.Fatalf("expected 50 at position 4, got %+v", board.Entries[3])
	}
	if board.CurrentUserEntry == nil || board.CurrentUserEntry.Position != 3 {
		t.Fatalf("expected current user at position 3, got %+v", board.CurrentUserEntry)
	}
}

func TestLeaderboardCurrentUserOutsidePage(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedUser(t, store, "amy", intPtr(200))
	seedUser(t, store, "ben", intPtr(150))
	carol := seedUser(t, store, "carol", intPtr(100))

	service := app.NewLeaderboardService(store, logging.Discard())
	identity := identityOf(carol)
	board, err := service.Leaderboard(ctx, 2, &identity)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board.Entries) != 2 {
		t.Fatalf("expected page of 2, got %d", len(board.Entries))
	}
	// The caller's entry carries its global position even off the page.
	if board.CurrentUserEntry == nil || board.CurrentUserEntry.Position != 3 {
		t.Fatalf("expected current user at global position 3, got %+v", board.CurrentUserEntry)
	}
}

func TestLeaderboardTiesBreakByUsername(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedUser(t, store, "zoe", intPtr(100))
	seedUser(t, store, "adam", intPtr(100))

	service := app.NewLeaderboardService(store, logging.Discard())
	board, err := service.Leaderboard(ctx, 10, nil)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if board.Entries[0].User.Username != "adam" || board.Entries[1].User.Username != "zoe" {
		t.Fatalf("expected username ascending tie-break, got %+v", board.Entries)
	}
}

func TestLeaderboardUnauthenticatedStillServed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedUser(t, store, "amy", intPtr(10))

	service := app.NewLeaderboardService(store, logging.Discard())
	board, err := service.Leaderboard(ctx, 10, nil)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(board.Entries))
	}
	if board.CurrentUserEntry != nil {
		t.Fatalf("expected nil current user entry, got %+v", board.CurrentUserEntry)
	}
}

func TestLeaderboardAuthenticatedButUnscored(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedUser(t, store, "amy", intPtr(10))
	erin := seedUser(t, store, "erin", nil)

	service := app.NewLeaderboardService(store, logging.Discard())
	identity := identityOf(erin)
	board, err := service.Leaderboard(ctx, 10, &identity)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if board.CurrentUserEntry != nil {
		t.Fatalf("unscored caller should not get an entry, got %+v", board.CurrentUserEntry)
	}
}

func TestLeaderboardStoreFailure(t *testing.T) {
	service := app.NewLeaderboardService(failingSource{}, logging.Discard())
	_, err := service.Leaderboard(context.Background(), 10, nil)
	if domain.KindOf(err) != domain.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

type failingSource struct{}

func (failingSource) RankedUsers(context.Context) ([]domain.User, error) {
	return nil, errors.New("connection refused")
}

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"a@example.com":             "a*@example.com",
		"ab@example.com":            "a*@example.com",
		"abc@example.com":           "a*c@example.com",
		"abcd@example.com":          "a**d@example.com",
		"verylongemail@example.com": "v***l@example.com",
		"not-an-email":              "not-an-email",
	}
	for in, want := range cases {
		if got := app.MaskEmail(in); got != want {
			t.Fatalf("MaskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLeaderboardMasksEveryEntry(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	carol := seedUser(t, store, "carol", intPtr(100))

	service := app.NewLeaderboardService(store, logging.Discard())
	identity := identityOf(carol)
	board, err := service.Leaderboard(ctx, 10, &identity)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if board.Entries[0].User.Email != "c***l@example.com" {
		t.Fatalf("expected masked email, got %q", board.Entries[0].User.Email)
	}
	if board.CurrentUserEntry.User.Email != "c***l@example.com" {
		t.Fatalf("current user entry must be masked too, got %q", board.CurrentUserEntry.User.Email)
	}
	if board.Entries[0].User.Username != "carol" {
		t.Fatalf("username must never be masked, got %q", board.Entries[0].User.Username)
	}
}
