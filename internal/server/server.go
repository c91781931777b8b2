/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires configuration, storage, buses and services into
// a runnable fleetd instance.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/openkiosk/fleetd/internal/api"
	"github.com/openkiosk/fleetd/internal/cache"
	"github.com/openkiosk/fleetd/internal/config"
	"github.com/openkiosk/fleetd/internal/db"
	"github.com/openkiosk/fleetd/internal/eventbus"
	"github.com/openkiosk/fleetd/internal/events"
	"github.com/openkiosk/fleetd/internal/schedule"
	"github.com/openkiosk/fleetd/internal/status"
	"github.com/openkiosk/fleetd/internal/store"
	"github.com/openkiosk/fleetd/internal/telemetry"
	"github.com/openkiosk/fleetd/internal/watcher"
)

// EventBus is the common surface of the in-process and distributed buses.
type EventBus interface {
	Subscribe(eventType events.EventType) events.Subscriber
	Unsubscribe(eventType events.EventType, sub events.Subscriber)
	Publish(eventType events.EventType, payload events.Payload)
}

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db       *gorm.DB
	cache    *cache.Cache
	bus      EventBus
	store    *store.Service
	status   *status.Service
	watcher  *watcher.Watcher
	resolver *schedule.Resolver
	api      *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs a fully wired server from config.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.TracingMiddleware)
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	nodeID := s.cfg.InstanceID
	if nodeID == "" {
		nodeID = uuid.New().String()
	}

	// Distributed bus when configured, plain in-process bus otherwise.
	switch {
	case s.cfg.NATSURL != "":
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		natsBus, err := eventbus.NewNATSBus(natsCfg, nodeID, s.logger)
		if err != nil {
			return fmt.Errorf("init NATS bus: %w", err)
		}
		s.bus = natsBus
		s.DeferClose(natsBus.Close)
	case s.cfg.RedisAddr != "":
		redisCfg := eventbus.DefaultRedisConfig()
		redisCfg.Addr = s.cfg.RedisAddr
		redisCfg.Password = s.cfg.RedisPassword
		redisCfg.DB = s.cfg.RedisDB
		redisBus, err := eventbus.NewRedisBus(redisCfg, nodeID, s.logger)
		if err != nil {
			return fmt.Errorf("init Redis bus: %w", err)
		}
		s.bus = redisBus
		s.DeferClose(redisBus.Close)
	default:
		s.bus = events.NewBus()
	}

	if s.cfg.RedisAddr != "" {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		snapshotCache, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
		} else {
			s.cache = snapshotCache
			s.DeferClose(s.cache.Close)
		}
	}

	s.resolver = schedule.NewResolver(schedule.Config{
		EventActive:         eventActiveFunc(s.cfg.EventPolicy),
		FallbackItemSeconds: s.cfg.FallbackItemSeconds,
		Horizon:             s.cfg.ChangeHorizon,
	})

	s.store = store.NewService(s.db, s.bus, s.cache, s.logger)
	s.status = status.NewService(s.store, s.resolver, s.logger)
	s.watcher = watcher.New(s.store, s.resolver, s.bus, s.cfg.WatcherInterval, s.logger)

	exportSvc := schedule.NewExportService(s.db, s.logger)
	s.api = api.New(s.store, s.status, exportSvc, s.logger)

	return nil
}

// eventActiveFunc maps the configured policy onto a resolver strategy.
func eventActiveFunc(policy config.EventPolicy) schedule.EventActiveFunc {
	if policy == config.EventPolicyWindowEnd {
		return schedule.WindowEndEvent
	}
	return schedule.WholeDayEvent
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.api.Routes(s.router)
}

// MetricsHandler exposes the Prometheus endpoint, served on a separate
// listener so operational scrapes never share the public bind.
func (s *Server) MetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	return mux
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.watcher.Run(ctx)
	}()

	if s.cache != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.runCacheInvalidationListener(ctx)
		}()
	}
}

// runCacheInvalidationListener drops cached snapshots when another
// instance mutates the schedule.
func (s *Server) runCacheInvalidationListener(ctx context.Context) {
	slotCreated := s.bus.Subscribe(events.EventSlotCreated)
	slotUpdated := s.bus.Subscribe(events.EventSlotUpdated)
	slotDeleted := s.bus.Subscribe(events.EventSlotDeleted)
	assetUpdated := s.bus.Subscribe(events.EventAssetUpdated)
	assetDeleted := s.bus.Subscribe(events.EventAssetDeleted)
	playerChanged := s.bus.Subscribe(events.EventPlayerUpdated)

	defer func() {
		s.bus.Unsubscribe(events.EventSlotCreated, slotCreated)
		s.bus.Unsubscribe(events.EventSlotUpdated, slotUpdated)
		s.bus.Unsubscribe(events.EventSlotDeleted, slotDeleted)
		s.bus.Unsubscribe(events.EventAssetUpdated, assetUpdated)
		s.bus.Unsubscribe(events.EventAssetDeleted, assetDeleted)
		s.bus.Unsubscribe(events.EventPlayerUpdated, playerChanged)
	}()

	s.logger.Info().Msg("cache invalidation listener started")

	invalidatePlayer := func(payload events.Payload) {
		if playerID, ok := payload["player_id"].(string); ok && playerID != "" {
			s.cache.InvalidateSlots(ctx, playerID)
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("cache invalidation listener stopped")
			return

		case payload := <-slotCreated:
			invalidatePlayer(payload)

		case payload := <-slotUpdated:
			invalidatePlayer(payload)

		case payload := <-slotDeleted:
			invalidatePlayer(payload)

		case <-assetUpdated:
			s.cache.InvalidateAllSlots(ctx)

		case <-assetDeleted:
			s.cache.InvalidateAllSlots(ctx)

		case <-playerChanged:
			s.cache.InvalidatePlayerList(ctx)
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

// HTTPServer returns the configured HTTP server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
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
