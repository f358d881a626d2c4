package app

import (
	"context"
	"time"

	"quizhub-api/internal/domain"
)

// SubmissionUpdate carries the per-submission side effects the store applies
// atomically: the immutable response row, the question stat increments and
// the user counter increments. Counter mutations must be expressed as
// increments against the stored value, never read-modify-write in
// application code, so concurrent submissions do not lose updates.
type SubmissionUpdate struct {
	Response *domain.UserResponse
	// Points awarded; zero for incorrect answers. A positive value also
	// bumps the user's score (nil score becomes Points).
	Points int
}

// StatsUpdate is the sanitized delta the stats aggregator applies. Inc*
// fields are added to the stored value; Set* fields replace it outright.
// Nil Set* pointers leave the stored value untouched.
type StatsUpdate struct {
	IncQuestionsAnswered  int
	IncQuestionsCorrect   int
	IncQuestionsIncorrect int
	IncPoints             int

	SetLifetimePoints       *int
	SetYearlyPoints         *int
	SetMonthlyPoints        *int
	SetDailyPoints          *int
	SetConsecutiveLoginDays *int

	LastLoginDate time.Time
	NewBadge      *domain.Badge
}

// UserStore is the persistence contract for user records. Find methods
// return a NOT_FOUND classified error when the id does not resolve.
type UserStore interface {
	InsertUser(ctx context.Context, user *domain.User) error
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	SetUserRole(ctx context.Context, id string, role domain.Role) error
	DeleteUser(ctx context.Context, id string) error

	// RankedUsers returns every user with a non-nil score, ordered by
	// score descending then username ascending.
	RankedUsers(ctx context.Context) ([]domain.User, error)

	// SetLoginStreak persists the streak counter and last-login timestamp
	// in one conditional update.
	SetLoginStreak(ctx context.Context, id string, days int, lastLogin time.Time) error

	AppendBadge(ctx context.Context, id string, badge domain.Badge) error
	ApplyStats(ctx context.Context, id string, update StatsUpdate) (*domain.User, error)
}

// QuestionStore is the persistence contract for question records.
type QuestionStore interface {
	InsertQuestion(ctx context.Context, question *domain.Question) error
	FindQuestionByID(ctx context.Context, id string) (*domain.Question, error)
	ListQuestions(ctx context.Context, limit int) ([]domain.Question, error)
	UpdateQuestion(ctx context.Context, question *domain.Question) error
	DeleteQuestion(ctx context.Context, id string) error
}

// SubmissionStore records answer submissions. Implementations apply the
// whole update transactionally where the engine allows it; the question
// stat recomputation uses the incremental-mean form
// newAvg = (oldAvg*oldCount + sample) / (oldCount + 1).
type SubmissionStore interface {
	RecordSubmission(ctx context.Context, update SubmissionUpdate) error
}

// Store is the full persistence surface the service layer is wired with.
type Store interface {
	UserStore
	QuestionStore
	SubmissionStore
}
