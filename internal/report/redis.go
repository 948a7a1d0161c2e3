package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pkordes/fln-schedule/internal/domain"
)

// DefaultRedisKey is the key the Redis sink stores the latest table under.
const DefaultRedisKey = "fln:schedule:latest"

// RedisSnapshot is the value stored by RedisSink. Cells are encoded as in
// the CSV sink.
type RedisSnapshot struct {
	OutputPath string     `json:"output_path"`
	WrittenAt  time.Time  `json:"written_at"`
	Columns    []string   `json:"columns"`
	Rows       [][]string `json:"rows"`
}

// RedisSink keeps only the most recent table in a single Redis key, so other
// processes can read the current schedule without touching the files.
type RedisSink struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisSink returns a sink writing to key (DefaultRedisKey when empty).
// A ttl of zero keeps the value until it is overwritten.
func NewRedisSink(client *redis.Client, key string, ttl time.Duration) *RedisSink {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSink{client: client, key: key, ttl: ttl}
}

// Write replaces the stored snapshot with table.
func (s *RedisSink) Write(ctx context.Context, table domain.ScheduleTable, path string) error {
	snap := RedisSnapshot{
		OutputPath: path,
		WrittenAt:  time.Now().UTC(),
		Columns:    domain.Columns(),
		Rows:       make([][]string, 0, table.Len()),
	}
	for _, r := range table.Rows {
		snap.Rows = append(snap.Rows, rowStrings(r))
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("report.RedisSink.Write: encode: %w", err)
	}
	if err := s.client.Set(ctx, s.key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("report.RedisSink.Write: %w", err)
	}
	return nil
}

// Read returns the stored snapshot. domain.ErrNotFound is returned when the
// key does not exist.
func (s *RedisSink) Read(ctx context.Context) (RedisSnapshot, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return RedisSnapshot{}, fmt.Errorf("report.RedisSink.Read: %w", domain.ErrNotFound)
	}
	if err != nil {
		return RedisSnapshot{}, fmt.Errorf("report.RedisSink.Read: %w", err)
	}
	var snap RedisSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return RedisSnapshot{}, fmt.Errorf("report.RedisSink.Read: decode: %w", err)
	}
	return snap, nil
}

// Close closes the underlying client.
func (s *RedisSink) Close() error { return s.client.Close() }
