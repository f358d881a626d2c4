package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizhub-api/internal/app"
	"quizhub-api/internal/domain"
)

const leaderboardKey = "leaderboard:ranked"

// LeaderboardCache caches the ranked user snapshot in Redis and falls back
// to the underlying source on a miss. The leaderboard is advisory, so a
// slightly stale snapshot is acceptable; TTL jitter spreads refills and
// singleflight keeps a cold cache from stampeding the store.
type LeaderboardCache struct {
	client *redis.Client
	source app.LeaderboardSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewLeaderboardCache(client *redis.Client, source app.LeaderboardSource, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// cachedUser is the slim projection stored in Redis. Password hashes and
// counters never enter the cache.
type cachedUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Score    int    `json:"score"`
}

func (c *LeaderboardCache) RankedUsers(ctx context.Context) ([]domain.User, error) {
	if users, ok := c.cachedSnapshot(ctx); ok {
		return users, nil
	}

	result, err, _ := c.sf.Do(leaderboardKey, func() (interface{}, error) {
		// Re-check in case another goroutine refilled the key.
		if users, ok := c.cachedSnapshot(ctx); ok {
			return users, nil
		}

		users, err := c.source.RankedUsers(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]cachedUser, 0, len(users))
		for _, u := range users {
			rows = append(rows, cachedUser{ID: u.ID, Username: u.Username, Email: u.Email, Score: *u.Score})
		}
		if payload, err := json.Marshal(rows); err == nil {
			_ = c.client.Set(ctx, leaderboardKey, payload, c.ttlWithJitter()).Err()
		}
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.User), nil
}

func (c *LeaderboardCache) cachedSnapshot(ctx context.Context) ([]domain.User, bool) {
	raw, err := c.client.Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		return nil, false
	}
	var rows []cachedUser
	if json.Unmarshal(raw, &rows) != nil {
		return nil, false
	}
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		score := row.Score
		users = append(users, domain.User{
			ID:       row.ID,
			Username: row.Username,
			Email:    row.Email,
			Score:    &score,
		})
	}
	return users, true
}

// Invalidate drops the snapshot; called after score-changing mutations.
func (c *LeaderboardCache) Invalidate(ctx context.Context) {
	_ = c.client.Del(ctx, leaderboardKey).Err()
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
