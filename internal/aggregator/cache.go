package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"trustgate/pkg/domain"
)

// ReportCache holds recent aggregation reports. Entries must expire within
// the polling interval so callers never see a view older than one poll.
type ReportCache interface {
	Get(ctx context.Context, subjectID domain.SubjectID) (*Report, bool)
	Set(ctx context.Context, subjectID domain.SubjectID, report *Report)
}

// RedisCache is the production cache. Failures degrade to a cache miss;
// aggregation always works without redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(subjectID domain.SubjectID) string {
	return fmt.Sprintf("trustgate:aggregate:%s", subjectID)
}

func (c *RedisCache) Get(ctx context.Context, subjectID domain.SubjectID) (*Report, bool) {
	raw, err := c.client.Get(ctx, cacheKey(subjectID)).Bytes()
	if err != nil {
		if err != redis.Nil && c.logger != nil {
			c.logger.WarnContext(ctx, "aggregate cache read failed", "subject_id", subjectID, "error", err)
		}
		return nil, false
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, false
	}
	return &report, true
}

func (c *RedisCache) Set(ctx context.Context, subjectID domain.SubjectID, report *Report) {
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(subjectID), raw, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "aggregate cache write failed", "subject_id", subjectID, "error", err)
	}
}
