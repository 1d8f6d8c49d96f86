// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/logging"
)

const (
	keyPrefix            = "meetup:meeting:"
	invalidatedKeyPrefix = "meetup:invalidated:"
)

// invalidationHold is how long an invalidation keeps snapshots last updated
// before it out of the cache. It must outlast a read-through, from the store
// read to the cache write.
const invalidationHold = 30 * time.Second

const defaultTTL = 5 * time.Minute

// setUnlessInvalidated writes KEYS[1] unless KEYS[2] holds an invalidation
// time at or after the snapshot's update time (ARGV[2], unix millis).
const setUnlessInvalidated = `
local marker = redis.call('GET', KEYS[2])
if marker and tonumber(ARGV[2]) <= tonumber(marker) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`

// deleteAndMark drops KEYS[1] and records the invalidation time in KEYS[2].
const deleteAndMark = `
redis.call('DEL', KEYS[1])
redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
return 1
`

// IRedisClient is the subset of the go-redis client used by [RedisMeetingCache].
type IRedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// RedisMeetingCache caches meeting read projections in Redis. Writes and
// invalidations are single scripts, so a read-through that loaded a meeting
// before a write committed cannot repopulate the cache after that write's
// invalidation.
type RedisMeetingCache struct {
	client IRedisClient
	ttl    time.Duration
	now    func() time.Time
}

var _ domain.MeetingCache = (*RedisMeetingCache)(nil)

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return c, nil
}

// NewRedisMeetingCache wraps a client; entries expire after ttl.
func NewRedisMeetingCache(client IRedisClient, ttl time.Duration) *RedisMeetingCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisMeetingCache{client: client, ttl: ttl, now: time.Now}
}

func cacheKey(meetingUID string) string {
	return keyPrefix + meetingUID
}

func invalidatedKey(meetingUID string) string {
	return invalidatedKeyPrefix + meetingUID
}

func (c *RedisMeetingCache) GetMeeting(ctx context.Context, meetingUID string) (*models.Meeting, error) {
	raw, err := c.client.Get(ctx, cacheKey(meetingUID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.NewNotFoundError("meeting not cached")
	}
	if err != nil {
		return nil, domain.NewUnavailableError("meeting cache is not available", err)
	}

	var meeting models.Meeting
	if err := json.Unmarshal(raw, &meeting); err != nil {
		slog.WarnContext(ctx, "dropping unreadable cache entry", logging.ErrKey, err, "meeting_uid", meetingUID)
		_ = c.client.Del(ctx, cacheKey(meetingUID)).Err()
		return nil, domain.NewNotFoundError("meeting not cached", err)
	}
	return &meeting, nil
}

func (c *RedisMeetingCache) SetMeeting(ctx context.Context, meeting *models.Meeting) error {
	data, err := json.Marshal(meeting)
	if err != nil {
		return domain.NewInternalError("failed to encode meeting for cache", err)
	}
	stored, err := c.client.Eval(ctx, setUnlessInvalidated,
		[]string{cacheKey(meeting.UID), invalidatedKey(meeting.UID)},
		data, meeting.UpdatedAt.UnixMilli(), c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return domain.NewUnavailableError("meeting cache is not available", err)
	}
	if stored == 0 {
		slog.DebugContext(ctx, "skipped caching meeting updated before its last invalidation", "meeting_uid", meeting.UID)
	}
	return nil
}

func (c *RedisMeetingCache) Invalidate(ctx context.Context, meetingUID string) error {
	err := c.client.Eval(ctx, deleteAndMark,
		[]string{cacheKey(meetingUID), invalidatedKey(meetingUID)},
		c.now().UnixMilli(), invalidationHold.Milliseconds(),
	).Err()
	if err != nil {
		return domain.NewUnavailableError("meeting cache is not available", err)
	}
	return nil
}

// NoOpMeetingCache never holds anything. It is used when no Redis URL is configured.
type NoOpMeetingCache struct{}

var _ domain.MeetingCache = NoOpMeetingCache{}

func (NoOpMeetingCache) GetMeeting(context.Context, string) (*models.Meeting, error) {
	return nil, domain.NewNotFoundError("meeting not cached")
}

func (NoOpMeetingCache) SetMeeting(context.Context, *models.Meeting) error { return nil }

func (NoOpMeetingCache) Invalidate(context.Context, string) error { return nil }
