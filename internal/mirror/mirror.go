package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ordercast/ordercast/internal/config"
	"github.com/ordercast/ordercast/internal/model"
)

const (
	snapshotKey  = "ordercast:snapshot"
	writeTimeout = 5 * time.Second
)

// Mirror keeps the last adopted snapshot in Redis. It is a write-behind
// copy of the in-memory store, never the source of truth; the first
// successful poll after startup overwrites whatever was loaded.
type Mirror struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*Mirror, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("snapshot mirror connected", "addr", cfg.Addr, "db", cfg.DB)

	return &Mirror{
		client: client,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

// Load returns the mirrored snapshot, or nil when none is stored.
func (m *Mirror) Load(ctx context.Context) (*model.Snapshot, error) {
	data, err := m.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mirror load failed: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("mirror snapshot corrupt: %w", err)
	}
	return &snap, nil
}

// Store writes the snapshot to Redis with the configured TTL.
func (m *Mirror) Store(ctx context.Context, snap *model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("mirror snapshot encode failed: %w", err)
	}
	if err := m.client.Set(ctx, snapshotKey, data, m.ttl).Err(); err != nil {
		return fmt.Errorf("mirror store failed: %w", err)
	}
	return nil
}

// HandleChange mirrors an adopted snapshot. Failures are logged and
// swallowed; the mirror must never block or fail a poll cycle.
func (m *Mirror) HandleChange(snap *model.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := m.Store(ctx, snap); err != nil {
		m.logger.Warn("snapshot mirror write failed",
			"signature", snap.Signature,
			"error", err,
		)
		return
	}
	m.logger.Debug("snapshot mirrored",
		"signature", snap.Signature,
		"orders", len(snap.Orders),
	)
}

// Close releases the Redis connection.
func (m *Mirror) Close() error {
	return m.client.Close()
}
