package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"quizhub-api/internal/domain"
	"quizhub-api/internal/infra/memory"
)

func seedUser(t *testing.T, store *memory.Store, username string, score *int) *domain.User {
	t.Helper()
	now := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	user := &domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		Role:      domain.RoleUser,
		Score:     score,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.InsertUser(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

func seedQuestion(t *testing.T, store *memory.Store, points int) *domain.Question {
	t.Helper()
	now := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	question := &domain.Question{
		ID:     uuid.NewString(),
		Prompt: "Pick the right one",
		Answers: []domain.AnswerOption{
			{Text: "Right", Correct: true},
			{Text: "Wrong"},
		},
		Feedback:  domain.Feedback{Correct: "well done", Incorrect: "try again"},
		Points:    points,
		Status:    "active",
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.InsertQuestion(context.Background(), question); err != nil {
		t.Fatalf("seed question: %v", err)
	}
	return question
}

func identityOf(user *domain.User) domain.Identity {
	return domain.Identity{ID: user.ID, Email: user.Email, Role: user.Role}
}

func intPtr(n int) *int { return &n }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
