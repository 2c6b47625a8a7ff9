// Package store keeps the latest scan results per target in Redis so a package
// registry can look them up without re-running the scan.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/wp-secmeta/internal/detector"
)

const (
	defaultTTL   = 7 * 24 * time.Hour
	resultPrefix = "secmeta:result:"
	scanPrefix   = "secmeta:scan:"
)

// ErrNotFound is returned when no record exists for a target.
var ErrNotFound = errors.New("result not found")

// Record is the stored outcome of one target within a scan run.
type Record struct {
	ScanID   string            `json:"scanId"`
	Target   string            `json:"target"`
	StoredAt time.Time         `json:"storedAt"`
	Results  []detector.Result `json:"results"`
}

// RedisStore persists records in Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the Redis server at url.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// SaveScan stores results grouped by target and indexes the targets under scanID.
func (s *RedisStore) SaveScan(ctx context.Context, scanID string, results []detector.Result) error {
	if s == nil || s.client == nil {
		return errors.New("result store unavailable")
	}

	grouped := map[string][]detector.Result{}
	for _, res := range results {
		grouped[res.Target] = append(grouped[res.Target], res)
	}

	now := time.Now().UTC()
	pipe := s.client.TxPipeline()
	for target, batch := range grouped {
		payload, err := json.Marshal(Record{ScanID: scanID, Target: target, StoredAt: now, Results: batch})
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		pipe.Set(ctx, ResultKey(target), payload, s.ttl)
		pipe.SAdd(ctx, scanKey(scanID), target)
	}
	pipe.Expire(ctx, scanKey(scanID), s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store results: %w", err)
	}
	return nil
}

// Latest returns the most recent record stored for target.
func (s *RedisStore) Latest(ctx context.Context, target string) (Record, error) {
	data, err := s.client.Get(ctx, ResultKey(target)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// ScanTargets lists the targets recorded for scanID, sorted.
func (s *RedisStore) ScanTargets(ctx context.Context, scanID string) ([]string, error) {
	targets, err := s.client.SMembers(ctx, scanKey(scanID)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(targets)
	return targets, nil
}

// LoadScan returns the results stored under scanID, sorted by target. Targets
// whose latest record has since been replaced by another scan are skipped.
func (s *RedisStore) LoadScan(ctx context.Context, scanID string) ([]detector.Result, error) {
	targets, err := s.ScanTargets(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: scan %s", ErrNotFound, scanID)
	}

	var results []detector.Result
	for _, target := range targets {
		rec, err := s.Latest(ctx, target)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if rec.ScanID != scanID {
			continue
		}
		results = append(results, rec.Results...)
	}
	return results, nil
}

// ResultKey constructs the redis key for a target's latest record.
func ResultKey(target string) string {
	return resultPrefix + target
}

func scanKey(scanID string) string {
	return scanPrefix + scanID
}
