package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/stategraph/store"
)

// RedisJournal implements store.Journal using one Redis list per run.
type RedisJournal struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ store.Journal = (*RedisJournal)(nil)

// RedisOptions configuration for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "stategraph:"
	TTL      time.Duration // Expiration for run journals, default 0 (no expiration)
}

// NewRedisJournal creates a new Redis journal
func NewRedisJournal(opts RedisOptions) *RedisJournal {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "stategraph:"
	}

	return &RedisJournal{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (s *RedisJournal) runKey(runID string) string {
	return fmt.Sprintf("%srun:%s:steps", s.prefix, runID)
}

// Append pushes a record onto the run's list
func (s *RedisJournal) Append(ctx context.Context, record *store.StepRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal step record: %w", err)
	}

	key := s.runKey(record.RunID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append step record to redis: %w", err)
	}
	return nil
}

// List returns the records of a run ordered by step
func (s *RedisJournal) List(ctx context.Context, runID string) ([]*store.StepRecord, error) {
	items, err := s.client.LRange(ctx, s.runKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list step records for run %s: %w", runID, err)
	}

	records := make([]*store.StepRecord, 0, len(items))
	for _, item := range items {
		var rec store.StepRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal step record: %w", err)
		}
		records = append(records, &rec)
	}

	slices.SortStableFunc(records, func(a, b *store.StepRecord) int {
		return a.Step - b.Step
	})
	return records, nil
}

// Clear removes all records of a run
func (s *RedisJournal) Clear(ctx context.Context, runID string) error {
	if err := s.client.Del(ctx, s.runKey(runID)).Err(); err != nil {
		return fmt.Errorf("failed to clear step records: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisJournal) Close() error {
	return s.client.Close()
}
