package app

import (
	"context"
	"time"

	"quizhub-api/internal/auth"
	"quizhub-api/internal/domain"
	"quizhub-api/internal/metrics"
)

// StreakService maintains the consecutive-login-day counter.
type StreakService struct {
	users   UserStore
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewStreakService(users UserStore, m *metrics.Metrics, now func() time.Time) *StreakService {
	if now == nil {
		now = time.Now
	}
	return &StreakService{users: users, metrics: m, now: now}
}

// RecordLogin advances the login streak for userID. The caller must be the
// subject user or hold ADMIN/SUPER_ADMIN. Two logins on the same calendar
// day leave the count unchanged; a login on the next day increments it;
// anything else (including a backdated clock) resets it to 1.
func (s *StreakService) RecordLogin(ctx context.Context, identity domain.Identity, userID string) (*domain.User, error) {
	if identity.ID != userID {
		if err := auth.Require(identity, domain.RoleAdmin, domain.RoleSuperAdmin); err != nil {
			return nil, err
		}
	}

	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	streak := nextStreak(user.ConsecutiveLoginDays, user.LastLoginDate, now)
	if err := s.users.SetLoginStreak(ctx, userID, streak, now); err != nil {
		return nil, err
	}
	s.metrics.ObserveLogin()

	user.ConsecutiveLoginDays = streak
	user.LastLoginDate = &now
	return user, nil
}

// nextStreak is the day-granularity transition function. Both timestamps are
// normalized to calendar dates before differencing so time-of-day never
// affects the count.
func nextStreak(current int, lastLogin *time.Time, now time.Time) int {
	if lastLogin == nil {
		return 1
	}
	switch daysBetween(*lastLogin, now) {
	case 0:
		// Same calendar day: lastLoginDate is refreshed but the count
		// must not move.
		return current
	case 1:
		return current + 1
	default:
		return 1
	}
}

// daysBetween counts whole calendar days from a to b, ignoring time-of-day.
func daysBetween(a, b time.Time) int {
	a, b = a.UTC(), b.UTC()
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da) / (24 * time.Hour))
}
