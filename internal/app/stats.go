package app

import (
	"context"
	"math"
	"time"

	"quizhub-api/internal/auth"
	"quizhub-api/internal/domain"
)

// BadgeInput is the badge payload an admin can attach to a stats update.
type BadgeInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// StatsDelta is the raw, possibly adversarial, delta an admin submits.
// Counter fields are increments; pointer fields replace the stored value
// when present. Values arrive as float64 straight from JSON decoding so the
// sanitizer can reject NaN and negatives uniformly.
type StatsDelta struct {
	QuestionsAnswered  float64 `json:"questionsAnswered"`
	QuestionsCorrect   float64 `json:"questionsCorrect"`
	QuestionsIncorrect float64 `json:"questionsIncorrect"`
	PointsEarned       float64 `json:"pointsEarned"`

	LifetimePoints       *float64 `json:"lifetimePoints"`
	YearlyPoints         *float64 `json:"yearlyPoints"`
	MonthlyPoints        *float64 `json:"monthlyPoints"`
	DailyPoints          *float64 `json:"dailyPoints"`
	ConsecutiveLoginDays *float64 `json:"consecutiveLoginDays"`

	LastLoginDate *time.Time  `json:"lastLoginDate"`
	NewBadge      *BadgeInput `json:"newBadge"`
}

// StatsService merges externally supplied stat deltas into user records.
type StatsService struct {
	users UserStore
	now   func() time.Time
}

func NewStatsService(users UserStore, now func() time.Time) *StatsService {
	if now == nil {
		now = time.Now
	}
	return &StatsService{users: users, now: now}
}

// ApplyStats sanitizes delta and applies it to the user. Counter fields are
// added to stored values; period snapshots and the streak counter are set
// outright. The caller must hold ADMIN or SUPER_ADMIN.
func (s *StatsService) ApplyStats(ctx context.Context, identity domain.Identity, userID string, delta StatsDelta) (*domain.User, error) {
	if err := auth.Require(identity, domain.RoleAdmin, domain.RoleSuperAdmin); err != nil {
		return nil, err
	}

	update := StatsUpdate{
		IncQuestionsAnswered:  sanitizeCount(delta.QuestionsAnswered),
		IncQuestionsCorrect:   sanitizeCount(delta.QuestionsCorrect),
		IncQuestionsIncorrect: sanitizeCount(delta.QuestionsIncorrect),
		IncPoints:             sanitizeCount(delta.PointsEarned),
	}
	if delta.LifetimePoints != nil {
		update.SetLifetimePoints = sanitized(*delta.LifetimePoints)
	}
	if delta.YearlyPoints != nil {
		update.SetYearlyPoints = sanitized(*delta.YearlyPoints)
	}
	if delta.MonthlyPoints != nil {
		update.SetMonthlyPoints = sanitized(*delta.MonthlyPoints)
	}
	if delta.DailyPoints != nil {
		update.SetDailyPoints = sanitized(*delta.DailyPoints)
	}
	if delta.ConsecutiveLoginDays != nil {
		update.SetConsecutiveLoginDays = sanitized(*delta.ConsecutiveLoginDays)
	}

	update.LastLoginDate = s.now()
	if delta.LastLoginDate != nil {
		update.LastLoginDate = *delta.LastLoginDate
	}

	if delta.NewBadge != nil {
		// Append-only: this path never deduplicates; callers needing
		// idempotence check existing badges first.
		update.NewBadge = &domain.Badge{
			Name:        delta.NewBadge.Name,
			Description: delta.NewBadge.Description,
			Image:       delta.NewBadge.Image,
			EarnedAt:    s.now(),
		}
	}

	return s.users.ApplyStats(ctx, userID, update)
}

// sanitizeCount coerces a numeric delta: NaN and negatives become 0.
func sanitizeCount(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return int(v)
}

func sanitized(v float64) *int {
	n := sanitizeCount(v)
	return &n
}
