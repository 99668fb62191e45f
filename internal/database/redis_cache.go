package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

const redisLeaderboardKeyPrefix = "leaderboard:overall:"

// RedisLeaderboardCache keeps leaderboard snapshots in redis instead of
// postgres. Keys expire after ttl as a safety net; staleness itself is
// decided by the aggregator from ComputedAt.
type RedisLeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ LeaderboardCache = (*RedisLeaderboardCache)(nil)

func NewRedisLeaderboardCache(client *redis.Client, ttl time.Duration) *RedisLeaderboardCache {
	return &RedisLeaderboardCache{client: client, ttl: ttl}
}

// ConnectRedis opens a client and checks that the server answers
func ConnectRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
		PoolSize: 20,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, tracker_errors.WrapIPCError(err)
	}

	log.Infof("connected to redis at %v", addr)
	return client, nil
}

func (r *RedisLeaderboardCache) GetLeaderboardCache(ctx context.Context, groupID string) (LeaderboardCacheEntry, bool, error) {
	raw, err := r.client.Get(ctx, redisLeaderboardKeyPrefix+groupID).Bytes()
	if errors.Is(err, redis.Nil) {
		return LeaderboardCacheEntry{}, false, nil
	}
	if err != nil {
		err = fmt.Errorf("cannot read leaderboard cache of group %v: %w", groupID, tracker_errors.WrapIPCError(err))
		log.Error(err)
		return LeaderboardCacheEntry{}, false, err
	}

	var entry LeaderboardCacheEntry
	if err = json.Unmarshal(raw, &entry); err != nil {
		log.Errorf("cannot decode leaderboard cache of group %v: %v", groupID, err)
		return LeaderboardCacheEntry{}, false, nil
	}
	return entry, true, nil
}

func (r *RedisLeaderboardCache) PutLeaderboardCache(ctx context.Context, entry LeaderboardCacheEntry) error {
	if entry.Stats == nil {
		entry.Stats = []MemberStats{}
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w, cannot encode leaderboard cache: %w", tracker_errors.ErrInternal, err)
	}

	if err = r.client.Set(ctx, redisLeaderboardKeyPrefix+entry.GroupID, raw, r.ttl).Err(); err != nil {
		err = fmt.Errorf("cannot write leaderboard cache of group %v: %w", entry.GroupID, tracker_errors.WrapIPCError(err))
		log.Error(err)
		return err
	}
	return nil
}
