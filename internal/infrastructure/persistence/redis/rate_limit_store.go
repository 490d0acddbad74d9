package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/internal/domain/repository"
	"github.com/opendgw/odg/pkg/logger"
)

// keyPrefix namespaces the per-user admission sets.
const keyPrefix = "odg:rl:"

// recordTTL bounds how long an idle user's set survives without a sweep.
const recordTTL = 48 * time.Hour

// RateLimitStore implements repository.RateLimitRepository on a Redis sorted
// set per user: score is the admission timestamp in Unix milliseconds, member
// is the record id, so counting a window is a single ZCOUNT.
type RateLimitStore struct {
	client redis.UniversalClient
	log    logger.Logger
}

// NewRateLimitStore creates the store over an established connection.
func NewRateLimitStore(conn *Connection, log logger.Logger) *RateLimitStore {
	return &RateLimitStore{
		client: conn.Client,
		log:    log.WithComponent("ratelimit-store"),
	}
}

var _ repository.RateLimitRepository = (*RateLimitStore)(nil)

func userKey(userID string) string {
	return keyPrefix + userID
}

// Save implements repository.RateLimitRepository.
func (s *RateLimitStore) Save(ctx context.Context, record *models.RateLimitRecord) error {
	key := userKey(record.UserID)
	member := fmt.Sprintf("%s|%s", record.ID, record.Endpoint)

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(record.Timestamp.UnixMilli()),
		Member: member,
	})
	pipe.Expire(ctx, key, recordTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// CountInWindow implements repository.RateLimitRepository with an inclusive
// ZCOUNT over [start, end].
func (s *RateLimitStore) CountInWindow(ctx context.Context, userID string, start, end time.Time) (int64, error) {
	return s.client.ZCount(ctx, userKey(userID),
		strconv.FormatInt(start.UnixMilli(), 10),
		strconv.FormatInt(end.UnixMilli(), 10),
	).Result()
}

// OldestInWindow implements repository.RateLimitRepository.
func (s *RateLimitStore) OldestInWindow(ctx context.Context, userID string, start, end time.Time) (time.Time, bool, error) {
	entries, err := s.client.ZRangeByScoreWithScores(ctx, userKey(userID), &redis.ZRangeBy{
		Min:   strconv.FormatInt(start.UnixMilli(), 10),
		Max:   strconv.FormatInt(end.UnixMilli(), 10),
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, err
	}
	if len(entries) == 0 {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(int64(entries[0].Score)), true, nil
}

// DeleteByUser implements repository.RateLimitRepository. Deleting an absent
// key is a no-op, which makes resets idempotent.
func (s *RateLimitStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	key := userKey(userID)
	count, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil && err != redis.Nil {
		return 0, err
	}
	return count, nil
}

// DeleteOlderThan implements repository.RateLimitRepository by scanning the
// key namespace and trimming each set below the cutoff score.
func (s *RateLimitStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	max := strconv.FormatInt(cutoff.UnixMilli(), 10)

	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		n, err := s.client.ZRemRangeByScore(ctx, iter.Val(), "-inf", "("+max).Result()
		if err != nil {
			return removed, err
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}

	if removed > 0 {
		s.log.Debug(ctx, "trimmed admission records",
			logger.Int64("removed", removed),
			logger.Time("cutoff", cutoff),
		)
	}
	return removed, nil
}
