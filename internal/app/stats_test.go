package app_test

import (
	"context"
	"math"
	"testing"
	"time"

	"quizhub-api/internal/app"
	"quizhub-api/internal/domain"
	"quizhub-api/internal/infra/memory"
)

func adminIdentity() domain.Identity {
	return domain.Identity{ID: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin}
}

func TestApplyStatsIncrementsAndSets(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	user := seedUser(t, store, "alice", intPtr(10))

	// Put something in the running totals first so the increment-vs-set
	// split is observable.
	now := time.Date(2023, 5, 15, 12, 0, 0, 0, time.UTC)
	service := app.NewStatsService(store, fixedClock(now))

	first := app.StatsDelta{
		QuestionsAnswered: 5,
		QuestionsCorrect:  3,
		PointsEarned:      7,
		LifetimePoints:    floatPtr(100),
	}
	if _, err := service.ApplyStats(ctx, adminIdentity(), user.ID, first); err != nil {
		t.Fatalf("apply: %v", err)
	}

	second := app.StatsDelta{
		QuestionsAnswered:  2,
		QuestionsIncorrect: 2,
		LifetimePoints:     floatPtr(250),
		DailyPoints:        floatPtr(40),
	}
	updated, err := service.ApplyStats(ctx, adminIdentity(), user.ID, second)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	// Counters accumulate across calls.
	if updated.QuestionsAnswered != 7 || updated.QuestionsCorrect != 3 || updated.QuestionsIncorrect != 2 {
		t.Fatalf("unexpected counters: %+v", updated)
	}
	if updated.Score == nil || *updated.Score != 17 {
		t.Fatalf("expected score 17, got %v", updated.Score)
	}
	// Period snapshots replace, never add.
	if updated.LifetimePoints != 250 {
		t.Fatalf("expected lifetime points set to 250, got %d", updated.LifetimePoints)
	}
	if updated.DailyPoints != 40 {
		t.Fatalf("expected daily points 40, got %d", updated.DailyPoints)
	}
	// Untouched set-fields stay put.
	if updated.YearlyPoints != 0 || updated.MonthlyPoints != 0 {
		t.Fatalf("untouched snapshots changed: %+v", updated)
	}
}

func TestApplyStatsSanitizesHostileInput(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	user := seedUser(t, store, "alice", nil)

	service := app.NewStatsService(store, nil)
	delta := app.StatsDelta{
		QuestionsAnswered: -50,
		QuestionsCorrect:  math.NaN(),
		PointsEarned:      -1,
		LifetimePoints:    floatPtr(math.NaN()),
		DailyPoints:       floatPtr(-9),
	}
	updated, err := service.ApplyStats(ctx, adminIdentity(), user.ID, delta)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if updated.QuestionsAnswered != 0 || updated.QuestionsCorrect != 0 {
		t.Fatalf("negative/NaN increments must coerce to zero: %+v", updated)
	}
	if updated.Score != nil {
		t.Fatalf("zero point delta must not create a score, got %v", updated.Score)
	}
	if updated.LifetimePoints != 0 || updated.DailyPoints != 0 {
		t.Fatalf("NaN/negative sets must coerce to zero: %+v", updated)
	}
}

func TestApplyStatsDefaultsLastLogin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	user := seedUser(t, store, "alice", nil)

	now := time.Date(2023, 5, 15, 12, 0, 0, 0, time.UTC)
	service := app.NewStatsService(store, fixedClock(now))

	updated, err := service.ApplyStats(ctx, adminIdentity(), user.ID, app.StatsDelta{})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if updated.LastLoginDate == nil || !updated.LastLoginDate.Equal(now) {
		t.Fatalf("expected lastLoginDate defaulted to now, got %v", updated.LastLoginDate)
	}

	explicit := time.Date(2023, 5, 10, 8, 0, 0, 0, time.UTC)
	updated, err = service.ApplyStats(ctx, adminIdentity(), user.ID, app.StatsDelta{LastLoginDate: &explicit})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !updated.LastLoginDate.Equal(explicit) {
		t.Fatalf("expected explicit lastLoginDate, got %v", updated.LastLoginDate)
	}
}

func TestApplyStatsAppendsBadgeWithoutDeduplication(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	user := seedUser(t, store, "alice", nil)

	now := time.Date(2023, 5, 15, 12, 0, 0, 0, time.UTC)
	service := app.NewStatsService(store, fixedClock(now))

	badge := &app.BadgeInput{Name: "streak-7", Description: "seven days straight"}
	for i := 0; i < 2; i++ {
		if _, err := service.ApplyStats(ctx, adminIdentity(), user.ID, app.StatsDelta{NewBadge: badge}); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}
	updated, _ := store.FindUserByID(ctx, user.ID)
	if len(updated.Badges) != 2 {
		t.Fatalf("stats path is append-only, expected 2 badges, got %d", len(updated.Badges))
	}
	if !updated.Badges[0].EarnedAt.Equal(now) {
		t.Fatalf("expected earnedAt stamped to now, got %v", updated.Badges[0].EarnedAt)
	}
}

func TestApplyStatsRequiresAdmin(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(t, store, "alice", nil)
	service := app.NewStatsService(store, nil)

	for _, role := range []domain.Role{domain.RoleUser, domain.RoleEditor} {
		caller := domain.Identity{ID: "c1", Role: role}
		_, err := service.ApplyStats(context.Background(), caller, user.ID, app.StatsDelta{})
		if domain.KindOf(err) != domain.KindForbidden {
			t.Fatalf("role %s: expected forbidden, got %v", role, err)
		}
	}
}

func TestApplyStatsUnknownUser(t *testing.T) {
	service := app.NewStatsService(memory.NewStore(), nil)
	_, err := service.ApplyStats(context.Background(), adminIdentity(), "missing", app.StatsDelta{})
	if domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func floatPtr(f float64) *float64 { return &f }
