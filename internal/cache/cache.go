/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for catalog reads.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/soundshare/soundshare/internal/models"
	"github.com/soundshare/soundshare/internal/telemetry"
)

// Default TTL values for different cache types
const (
	DefaultSongsTTL     = 5 * time.Minute
	DefaultTagsTTL      = 30 * time.Minute
	DefaultTagGroupsTTL = 30 * time.Minute
	DefaultPlaylistsTTL = 5 * time.Minute
)

// Key prefixes for Redis cache
const (
	KeySongs     = "soundshare:cache:songs:" // + query hash
	KeyTags      = "soundshare:cache:tags"
	KeyTagGroups = "soundshare:cache:tag_groups"
	KeyPlaylists = "soundshare:cache:playlists"
	KeyPlaylist  = "soundshare:cache:playlist:" // + playlist_id
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL overrides
	SongsTTL     time.Duration
	TagsTTL      time.Duration
	TagGroupsTTL time.Duration
	PlaylistsTTL time.Duration

	// Fallback behavior
	DisableOnError bool // If true, disable caching on Redis errors
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		SongsTTL:       DefaultSongsTTL,
		TagsTTL:        DefaultTagsTTL,
		TagGroupsTTL:   DefaultTagGroupsTTL,
		PlaylistsTTL:   DefaultPlaylistsTTL,
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

// get retrieves a value from cache and unmarshals it.
func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

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

	// Use SCAN to find keys (safer than KEYS for production)
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

// SongsKey derives the cache key for a canonical query string. The empty
// string is the unfiltered catalog.
func SongsKey(queryKey string) string {
	sum := sha256.Sum256([]byte(queryKey))
	return KeySongs + hex.EncodeToString(sum[:16])
}

// GetSongs retrieves a cached song list for a query key.
func (c *Cache) GetSongs(ctx context.Context, queryKey string) ([]models.Song, bool) {
	var songs []models.Song
	found, err := c.get(ctx, SongsKey(queryKey), &songs)
	if err != nil || !found {
		telemetry.CacheMissesTotal.WithLabelValues("songs").Inc()
		return nil, false
	}
	telemetry.CacheHitsTotal.WithLabelValues("songs").Inc()
	c.logger.Debug().Int("count", len(songs)).Msg("songs cache hit")
	return songs, true
}

// SetSongs caches a song list for a query key.
func (c *Cache) SetSongs(ctx context.Context, queryKey string, songs []models.Song) error {
	return c.set(ctx, SongsKey(queryKey), songs, c.config.SongsTTL)
}

// InvalidateSongs removes every cached song listing. Any song mutation
// invalidates all query results, there is no per-query bookkeeping.
func (c *Cache) InvalidateSongs(ctx context.Context) error {
	c.logger.Debug().Msg("invalidating song caches")
	return c.deletePattern(ctx, KeySongs+"*")
}

// GetTags retrieves the cached tag list.
func (c *Cache) GetTags(ctx context.Context) ([]models.Tag, bool) {
	var tags []models.Tag
	found, err := c.get(ctx, KeyTags, &tags)
	if err != nil || !found {
		telemetry.CacheMissesTotal.WithLabelValues("tags").Inc()
		return nil, false
	}
	telemetry.CacheHitsTotal.WithLabelValues("tags").Inc()
	return tags, true
}

// SetTags caches the tag list.
func (c *Cache) SetTags(ctx context.Context, tags []models.Tag) error {
	return c.set(ctx, KeyTags, tags, c.config.TagsTTL)
}

// InvalidateTags removes the tag list from cache. Tag renames change song
// listings too, so song caches go with it.
func (c *Cache) InvalidateTags(ctx context.Context) error {
	c.logger.Debug().Msg("invalidating tag caches")
	if err := c.delete(ctx, KeyTags); err != nil {
		return err
	}
	return c.InvalidateSongs(ctx)
}

// GetTagGroups retrieves the cached tag group list.
func (c *Cache) GetTagGroups(ctx context.Context) ([]models.TagGroup, bool) {
	var groups []models.TagGroup
	found, err := c.get(ctx, KeyTagGroups, &groups)
	if err != nil || !found {
		telemetry.CacheMissesTotal.WithLabelValues("tag_groups").Inc()
		return nil, false
	}
	telemetry.CacheHitsTotal.WithLabelValues("tag_groups").Inc()
	return groups, true
}

// SetTagGroups caches the tag group list.
func (c *Cache) SetTagGroups(ctx context.Context, groups []models.TagGroup) error {
	return c.set(ctx, KeyTagGroups, groups, c.config.TagGroupsTTL)
}

// InvalidateTagGroups removes the tag group list from cache.
func (c *Cache) InvalidateTagGroups(ctx context.Context) error {
	c.logger.Debug().Msg("invalidating tag group cache")
	return c.delete(ctx, KeyTagGroups)
}

// GetPlaylists retrieves the cached playlist list.
func (c *Cache) GetPlaylists(ctx context.Context) ([]models.Playlist, bool) {
	var playlists []models.Playlist
	found, err := c.get(ctx, KeyPlaylists, &playlists)
	if err != nil || !found {
		telemetry.CacheMissesTotal.WithLabelValues("playlists").Inc()
		return nil, false
	}
	telemetry.CacheHitsTotal.WithLabelValues("playlists").Inc()
	return playlists, true
}

// SetPlaylists caches the playlist list.
func (c *Cache) SetPlaylists(ctx context.Context, playlists []models.Playlist) error {
	return c.set(ctx, KeyPlaylists, playlists, c.config.PlaylistsTTL)
}

// GetPlaylist retrieves a cached playlist by ID.
func (c *Cache) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, bool) {
	var playlist models.Playlist
	found, err := c.get(ctx, KeyPlaylist+playlistID, &playlist)
	if err != nil || !found {
		telemetry.CacheMissesTotal.WithLabelValues("playlist").Inc()
		return nil, false
	}
	telemetry.CacheHitsTotal.WithLabelValues("playlist").Inc()
	return &playlist, true
}

// SetPlaylist caches a playlist by ID.
func (c *Cache) SetPlaylist(ctx context.Context, playlist *models.Playlist) error {
	return c.set(ctx, KeyPlaylist+playlist.ID, playlist, c.config.PlaylistsTTL)
}

// InvalidatePlaylists removes the playlist list and one playlist (or all,
// when playlistID is empty) from cache.
func (c *Cache) InvalidatePlaylists(ctx context.Context, playlistID string) error {
	c.logger.Debug().Str("playlist_id", playlistID).Msg("invalidating playlist caches")

	if err := c.delete(ctx, KeyPlaylists); err != nil {
		return err
	}
	if playlistID == "" {
		return c.deletePattern(ctx, KeyPlaylist+"*")
	}
	return c.delete(ctx, KeyPlaylist+playlistID)
}

// FlushAll removes all cached data (use sparingly).
func (c *Cache) FlushAll(ctx context.Context) error {
	c.logger.Warn().Msg("flushing all cache data")
	return c.deletePattern(ctx, "soundshare:cache:*")
}
