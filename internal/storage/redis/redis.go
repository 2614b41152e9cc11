// Package redis persists the snapshot in Redis, one JSON value per
// user in a hash plus an order list and a version key.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/harybot/breakroom/internal/config"
	"github.com/harybot/breakroom/internal/storage"
	"github.com/redis/go-redis/v9"
)

const (
	keyUsers   = "breakroom:users"
	keyOrder   = "breakroom:users:order"
	keyVersion = "breakroom:meta:version"
)

// Store implements storage.Store using Redis.
type Store struct {
	client *redis.Client
}

// Open creates a new Redis-backed storage instance.
func Open(cfg config.RedisConfig) (*Store, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// Load reads the full snapshot from Redis.
func (s *Store) Load(ctx context.Context) (*storage.Snapshot, error) {
	snap := storage.NewSnapshot()

	raw, err := s.client.HGetAll(ctx, keyUsers).Result()
	if err != nil {
		return nil, fmt.Errorf("load users hash: %w", err)
	}
	for id, data := range raw {
		var rec storage.UserRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("%w: decode user %s: %v", storage.ErrCorruptSnapshot, id, err)
		}
		snap.Users[id] = &rec
	}

	order, err := s.client.LRange(ctx, keyOrder, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load user order: %w", err)
	}
	for _, id := range order {
		if _, ok := snap.Users[id]; ok {
			snap.Order = append(snap.Order, id)
		}
	}
	// Users missing from the order list still show up, appended last.
	seen := make(map[string]bool, len(snap.Order))
	for _, id := range snap.Order {
		seen[id] = true
	}
	for id := range snap.Users {
		if !seen[id] {
			snap.Order = append(snap.Order, id)
		}
	}

	version, err := s.client.Get(ctx, keyVersion).Result()
	switch {
	case err == redis.Nil:
		// Fresh store, keep the current schema version.
	case err != nil:
		return nil, fmt.Errorf("load snapshot version: %w", err)
	default:
		v, err := strconv.Atoi(version)
		if err != nil {
			return nil, fmt.Errorf("%w: decode version %q: %v", storage.ErrCorruptSnapshot, version, err)
		}
		snap.Version = v
	}

	return snap, nil
}

// Save replaces the stored snapshot in one transactional pipeline.
func (s *Store) Save(ctx context.Context, snapshot *storage.Snapshot) error {
	encoded := make(map[string]string, len(snapshot.Users))
	for id, rec := range snapshot.Users {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode user %s: %w", id, err)
		}
		encoded[id] = string(data)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keyUsers, keyOrder)
	if len(encoded) > 0 {
		fields := make([]interface{}, 0, len(encoded)*2)
		for id, data := range encoded {
			fields = append(fields, id, data)
		}
		pipe.HSet(ctx, keyUsers, fields...)
	}
	if len(snapshot.Order) > 0 {
		order := make([]interface{}, 0, len(snapshot.Order))
		for _, id := range snapshot.Order {
			order = append(order, id)
		}
		pipe.RPush(ctx, keyOrder, order...)
	}
	pipe.Set(ctx, keyVersion, strconv.Itoa(snapshot.Version), 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
