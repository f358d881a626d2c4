package app

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"quizhub-api/internal/domain"
)

const defaultLeaderboardLimit = 10

// LeaderboardSource supplies the ranked user set. It is either the store
// itself or the Redis snapshot cache wrapped around it.
type LeaderboardSource interface {
	RankedUsers(ctx context.Context) ([]domain.User, error)
}

// LeaderboardService computes the ranked, masked leaderboard view.
type LeaderboardService struct {
	source LeaderboardSource
	log    *logrus.Entry
}

func NewLeaderboardService(source LeaderboardSource, log *logrus.Entry) *LeaderboardService {
	return &LeaderboardService{source: source, log: log}
}

// Leaderboard returns the top limit entries plus the caller's own entry when
// identity resolves to a ranked user. identity is nil for unauthenticated
// callers; the page is still served and only the current-user entry is
// dropped. A store failure fails the whole read.
func (s *LeaderboardService) Leaderboard(ctx context.Context, limit int, identity *domain.Identity) (*domain.Leaderboard, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}

	users, err := s.source.RankedUsers(ctx)
	if err != nil {
		s.log.WithError(err).Error("leaderboard fetch failed")
		return nil, domain.Internal("failed to fetch leaderboard", err)
	}

	// Ranks must be reproducible regardless of source ordering.
	sort.SliceStable(users, func(i, j int) bool {
		if *users[i].Score != *users[j].Score {
			return *users[i].Score > *users[j].Score
		}
		return users[i].Username < users[j].Username
	})

	result := &domain.Leaderboard{Entries: []domain.LeaderboardEntry{}}
	for i, user := range users {
		entry := domain.LeaderboardEntry{
			Position: i + 1,
			User: domain.RankedUser{
				ID:       user.ID,
				Email:    MaskEmail(user.Email),
				Username: user.Username,
				Score:    *user.Score,
			},
		}
		if i < limit {
			result.Entries = append(result.Entries, entry)
		}
		if identity != nil && user.ID == identity.ID {
			current := entry
			result.CurrentUserEntry = &current
		}
	}
	return result, nil
}

// MaskEmail hides the middle of the local part for display. Locals of one
// or two characters keep only the first character before a single star;
// longer locals keep the first and last characters around a star run of at
// most three.
func MaskEmail(email string) string {
	local, rest, found := strings.Cut(email, "@")
	if !found {
		return email
	}
	runes := []rune(local)
	if len(runes) <= 2 {
		if len(runes) == 0 {
			return email
		}
		return string(runes[0]) + "*@" + rest
	}
	stars := len(runes) - 2
	if stars > 3 {
		stars = 3
	}
	return string(runes[0]) + strings.Repeat("*", stars) + string(runes[len(runes)-1]) + "@" + rest
}
