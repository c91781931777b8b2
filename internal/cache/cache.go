/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for frequently accessed data.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/openkiosk/fleetd/internal/models"
	"github.com/openkiosk/fleetd/internal/telemetry"
)

// Default TTL values for different cache types
const (
	DefaultPlayerListTTL = 5 * time.Minute
	DefaultSlotsTTL      = 1 * time.Minute
	DefaultAssetTTL      = 1 * time.Hour
)

// Key prefixes for Redis cache
const (
	KeyPlayerList = "fleet:cache:players"
	KeySlots      = "fleet:cache:slots:" // + player_id
	KeyAsset      = "fleet:cache:asset:" // + asset_id
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL overrides
	PlayerListTTL time.Duration
	SlotsTTL      time.Duration
	AssetTTL      time.Duration

	// Fallback behavior
	DisableOnError bool // If true, disable caching on Redis errors
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		PlayerListTTL:  DefaultPlayerListTTL,
		SlotsTTL:       DefaultSlotsTTL,
		AssetTTL:       DefaultAssetTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// New creates a new cache instance.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// get retrieves a value from cache and unmarshals it. keyClass labels
// the hit/miss counters (players, slots, asset).
func (c *Cache) get(ctx context.Context, key, keyClass string, dest any) (bool, error) {
	if !c.IsAvailable() {
		telemetry.CacheMissesTotal.WithLabelValues(keyClass).Inc()
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		telemetry.CacheMissesTotal.WithLabelValues(keyClass).Inc()
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		telemetry.CacheMissesTotal.WithLabelValues(keyClass).Inc()
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		telemetry.CacheMissesTotal.WithLabelValues(keyClass).Inc()
		return false, nil
	}

	telemetry.CacheHitsTotal.WithLabelValues(keyClass).Inc()
	return true, nil
}

// set stores a value in cache with TTL.
func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}

// delete removes a key from cache.
func (c *Cache) delete(ctx context.Context, key string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}

	return nil
}

// deletePattern deletes all keys matching a pattern.
func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	if !c.IsAvailable() {
		return nil
	}

	// SCAN rather than KEYS, the latter blocks Redis on large keyspaces.
	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err, "delete_batch")
				return err
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return nil
}

// Player list caching

// GetPlayerList retrieves the cached list of players.
func (c *Cache) GetPlayerList(ctx context.Context) ([]models.Player, bool) {
	var players []models.Player
	found, err := c.get(ctx, KeyPlayerList, "players", &players)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Int("count", len(players)).Msg("player list cache hit")
	return players, true
}

// SetPlayerList caches the list of players.
func (c *Cache) SetPlayerList(ctx context.Context, players []models.Player) {
	if err := c.set(ctx, KeyPlayerList, players, c.config.PlayerListTTL); err == nil {
		c.logger.Debug().Int("count", len(players)).Msg("cached player list")
	}
}

// InvalidatePlayerList removes the cached player list.
func (c *Cache) InvalidatePlayerList(ctx context.Context) {
	c.delete(ctx, KeyPlayerList)
}

// Slot snapshot caching. The snapshot is the fully preloaded slot list
// for one player, the input to every schedule resolution.

// GetSlots retrieves a player's cached slot snapshot.
func (c *Cache) GetSlots(ctx context.Context, playerID string) ([]models.Slot, bool) {
	var slots []models.Slot
	found, err := c.get(ctx, KeySlots+playerID, "slots", &slots)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Str("player_id", playerID).Int("count", len(slots)).Msg("slot snapshot cache hit")
	return slots, true
}

// SetSlots caches a player's slot snapshot.
func (c *Cache) SetSlots(ctx context.Context, playerID string, slots []models.Slot) {
	c.set(ctx, KeySlots+playerID, slots, c.config.SlotsTTL)
}

// InvalidateSlots removes a player's cached slot snapshot.
func (c *Cache) InvalidateSlots(ctx context.Context, playerID string) {
	c.delete(ctx, KeySlots+playerID)
}

// InvalidateAllSlots removes every cached slot snapshot. Used when an
// asset changes, since any player's snapshot may embed it.
func (c *Cache) InvalidateAllSlots(ctx context.Context) {
	c.deletePattern(ctx, KeySlots+"*")
}

// Asset caching

// GetAsset retrieves a cached asset.
func (c *Cache) GetAsset(ctx context.Context, assetID string) (*models.Asset, bool) {
	var asset models.Asset
	found, err := c.get(ctx, KeyAsset+assetID, "asset", &asset)
	if err != nil || !found {
		return nil, false
	}
	return &asset, true
}

// SetAsset caches an asset.
func (c *Cache) SetAsset(ctx context.Context, asset *models.Asset) {
	if asset == nil {
		return
	}
	c.set(ctx, KeyAsset+asset.ID, asset, c.config.AssetTTL)
}

// InvalidateAsset removes a cached asset.
func (c *Cache) InvalidateAsset(ctx context.Context, assetID string) {
	c.delete(ctx, KeyAsset+assetID)
}
