package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aouyang1/go-forecast-eval/compare"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisTTL = 30 * 24 * time.Hour

	reportKeyPrefix = "forecasteval:report:"
	reportIndexKey  = "forecasteval:reports"
)

var ErrMissingAddr = errors.New("redis address cannot be empty")

// RedisStore keeps reports in Redis so several evaluation jobs can share their history. Each
// report is a JSON value that expires after the TTL; a sorted set indexes run ids by creation time.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis. A ttl of 0 uses DefaultRedisTTL.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, ErrMissingAddr
	}
	if db < 0 {
		return nil, fmt.Errorf("redis database number must be >= 0, got %d", db)
	}
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to connect to redis at %s, %w", addr, err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func reportKey(runID string) string {
	return reportKeyPrefix + runID
}

func (r *RedisStore) Put(ctx context.Context, report *compare.Report) error {
	if err := checkReport(report); err != nil {
		return err
	}
	data, err := report.Marshal()
	if err != nil {
		return fmt.Errorf("unable to encode report, %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, reportKey(report.RunID), data, r.ttl)
		pipe.ZAdd(ctx, reportIndexKey, redis.Z{
			Score:  float64(report.CreatedAt.UnixMilli()),
			Member: report.RunID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to store report in redis, %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, runID string) (*compare.Report, bool, error) {
	if runID == "" {
		return nil, false, ErrMissingRunID
	}
	data, err := r.client.Get(ctx, reportKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("unable to get report from redis, %w", err)
	}
	report, err := compare.Unmarshal(data)
	if err != nil {
		return nil, false, err
	}
	return report, true, nil
}

// Latest returns up to n reports, newest first. Index entries whose report expired are removed.
func (r *RedisStore) Latest(ctx context.Context, n int) ([]*compare.Report, error) {
	if n <= 0 {
		return nil, nil
	}
	ids, err := r.client.ZRevRange(ctx, reportIndexKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("unable to list reports from redis, %w", err)
	}

	reports := make([]*compare.Report, 0, len(ids))
	var expired []any
	for _, id := range ids {
		report, found, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !found {
			expired = append(expired, id)
			continue
		}
		reports = append(reports, report)
	}

	if len(expired) > 0 {
		if err := r.client.ZRem(ctx, reportIndexKey, expired...).Err(); err != nil {
			slog.Warn("unable to prune expired reports from index", "count", len(expired), "error", err)
		}
	}
	return reports, nil
}

// Ping checks the Redis connection health
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client. It is safe to call multiple times; any other call after Close
// returns redis.ErrClosed.
func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
