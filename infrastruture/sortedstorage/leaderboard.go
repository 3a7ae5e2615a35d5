package sortedstorage

import (
	"context"
	"errors"
	"time"

	"github.com/beka-birhanu/vinom-arena/service/i"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

var ErrEmptyKey = errors.New("leaderboard key is empty")

// RedisLeaderboard ranks episodes in a Redis sorted set with TTL support.
type RedisLeaderboard struct {
	client *redis.Client
	locker *redsync.Redsync
	key    string
	ttl    time.Duration
}

var _ i.EpisodeBoard = &RedisLeaderboard{}

// NewRedisLeaderboard initializes a RedisLeaderboard on key. A zero ttl keeps
// the set forever.
func NewRedisLeaderboard(client *redis.Client, key string, ttl time.Duration) (*RedisLeaderboard, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	board := &RedisLeaderboard{
		client: client,
		key:    key,
		ttl:    ttl,
	}
	pool := goredis.NewPool(client)
	board.locker = redsync.New(pool)
	return board, nil
}

// Record stores member with score and sets expiration if necessary.
func (b *RedisLeaderboard) Record(ctx context.Context, member string, score float64) error {
	if err := b.client.ZAdd(ctx, b.key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return err
	}

	if b.ttl <= 0 {
		return nil
	}
	// Set expiration only if it's not already set
	ttl, err := b.client.TTL(ctx, b.key).Result()
	if err == nil && ttl == -1 {
		_ = b.client.Expire(ctx, b.key, b.ttl).Err()
	}
	return nil
}

// Top returns up to n members with the highest scores, best first.
func (b *RedisLeaderboard) Top(ctx context.Context, n int64) ([]i.BoardEntry, error) {
	if n <= 0 {
		return []i.BoardEntry{}, nil
	}
	zs, err := b.client.ZRevRangeWithScores(ctx, b.key, 0, n-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]i.BoardEntry, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		entries = append(entries, i.BoardEntry{Member: member, Score: z.Score})
	}
	return entries, nil
}

// Trim keeps only the keep best members. Concurrent trims are serialised with
// a distributed lock.
func (b *RedisLeaderboard) Trim(ctx context.Context, keep int64) (int64, error) {
	mutex := b.locker.NewMutex(b.key + ":trim_lock")
	if err := mutex.LockContext(ctx); err != nil {
		return 0, err
	}
	defer func() {
		_, _ = mutex.UnlockContext(ctx)
	}()

	count := b.client.ZCard(ctx, b.key).Val()
	if count <= keep {
		return 0, nil
	}
	return b.client.ZRemRangeByRank(ctx, b.key, 0, count-keep-1).Result()
}

// Count returns the number of ranked episodes.
func (b *RedisLeaderboard) Count(ctx context.Context) (int64, error) {
	return b.client.ZCard(ctx, b.key).Result()
}
