/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires configuration, storage, cache, events, and the
// HTTP API into one process.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/soundshare/soundshare/internal/api"
	"github.com/soundshare/soundshare/internal/cache"
	"github.com/soundshare/soundshare/internal/config"
	"github.com/soundshare/soundshare/internal/db"
	"github.com/soundshare/soundshare/internal/eventbus"
	"github.com/soundshare/soundshare/internal/events"
	"github.com/soundshare/soundshare/internal/gateway"
	"github.com/soundshare/soundshare/internal/library"
	"github.com/soundshare/soundshare/internal/logbuffer"
	"github.com/soundshare/soundshare/internal/player"
	"github.com/soundshare/soundshare/internal/telemetry"
)

// eventBus is satisfied by both the in-process bus and the Redis bridge.
type eventBus interface {
	Subscribe(eventType events.EventType) events.Subscriber
	Unsubscribe(eventType events.EventType, sub events.Subscriber)
	Publish(eventType events.EventType, payload events.Payload)
}

// Server bundles HTTP and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error
	logBuffer     *logbuffer.Buffer

	db        *gorm.DB
	cache     *cache.Cache
	library   *library.Service
	gateway   *gateway.Gateway
	sequencer *player.Sequencer
	api       *api.API
	bus       eventBus

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies. logBuf may be nil when
// no log capture is wanted.
func New(cfg *config.Config, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("soundshare-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Skip timeout for WebSocket and audio streaming connections
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			if len(r.URL.Path) >= 7 && r.URL.Path[:7] == "/audio/" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    router,
		logBuffer: logBuf,
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:    addr,
		Handler: srv.router,
		// Keep header deadline to protect against slowloris, but leave the
		// write side open for audio streaming and websockets.
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       0,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	// Metrics live on their own bind so the scrape endpoint is never
	// exposed on the public API port.
	srv.metricsServer = newMetricsServer(cfg.MetricsBind)
	go func() {
		if err := srv.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Str("bind", cfg.MetricsBind).Msg("metrics server failed")
		}
	}()
	srv.DeferClose(srv.metricsServer.Close)

	return srv, nil
}

func newMetricsServer(bind string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	return &http.Server{
		Addr:              bind,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self' 'unsafe-inline' data: blob:; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	if err := db.RegisterCallbacks(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if err := os.MkdirAll(s.cfg.MediaRoot, 0o755); err != nil {
		return fmt.Errorf("create media root: %w", err)
	}

	// Events. The Redis bridge only matters when a shared cache is in
	// play; a lone instance runs fully in-process.
	if s.cfg.CacheEnabled {
		hostname, _ := os.Hostname()
		busCfg := eventbus.DefaultRedisConfig()
		busCfg.Addr = s.cfg.RedisAddr
		busCfg.Password = s.cfg.RedisPassword
		busCfg.DB = s.cfg.RedisDB
		redisBus, err := eventbus.NewRedisBus(busCfg, hostname, s.logger)
		if err != nil {
			return err
		}
		s.bus = redisBus
		s.DeferClose(redisBus.Close)
	} else {
		s.bus = events.NewBus()
	}

	if s.cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		cacheCfg.SongsTTL = s.cfg.CatalogCacheTTL
		c, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			return err
		}
		s.cache = c
		s.DeferClose(c.Close)
	}

	s.library = library.New(s.db, s.logger)
	s.gateway = gateway.New(s.library, s.cache, s.bus, s.logger)
	s.sequencer = player.New(s.bus)
	s.api = api.New(s.gateway, s.sequencer, s.bus, s.logBuffer, s.cfg.MediaRoot, s.logger)

	return nil
}

// HTTPServer returns the configured HTTP server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.sequencer.Close()
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	// Database metrics updater
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.UpdateConnectionMetrics(s.db)
			}
		}
	}()

	// Cache invalidation listener; mostly relevant when another instance
	// publishes invalidations over the Redis bridge.
	if s.cache != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.runCacheInvalidationListener(ctx)
		}()
	}
}

// runCacheInvalidationListener subscribes to cache events and invalidates
// the local cache accordingly.
func (s *Server) runCacheInvalidationListener(ctx context.Context) {
	songsUpdated := s.bus.Subscribe(events.EventSongsUpdated)
	tagsUpdated := s.bus.Subscribe(events.EventTagsUpdated)
	tagGroupsUpdated := s.bus.Subscribe(events.EventTagGroupsUpdated)
	playlistsUpdated := s.bus.Subscribe(events.EventPlaylistsUpdated)

	defer func() {
		s.bus.Unsubscribe(events.EventSongsUpdated, songsUpdated)
		s.bus.Unsubscribe(events.EventTagsUpdated, tagsUpdated)
		s.bus.Unsubscribe(events.EventTagGroupsUpdated, tagGroupsUpdated)
		s.bus.Unsubscribe(events.EventPlaylistsUpdated, playlistsUpdated)
	}()

	s.logger.Info().Msg("cache invalidation listener started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("cache invalidation listener stopped")
			return

		case <-songsUpdated:
			s.cache.InvalidateSongs(ctx)

		case <-tagsUpdated:
			s.cache.InvalidateTags(ctx)

		case <-tagGroupsUpdated:
			s.cache.InvalidateTagGroups(ctx)

		case payload := <-playlistsUpdated:
			playlistID, _ := payload["playlist_id"].(string)
			s.cache.InvalidatePlaylists(ctx, playlistID)
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.api.Routes(s.router)
}
