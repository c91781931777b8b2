/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus provides distributed event bus implementations so
// multiple fleetd instances can share schedule and player events.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/openkiosk/fleetd/internal/events"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// channelName maps an event type to its Redis pub/sub channel.
func channelName(eventType events.EventType) string {
	return "fleet:events:" + string(eventType)
}

// RedisBus implements a Redis-backed event bus for multi-instance deployments.
type RedisBus struct {
	client   *redis.Client
	logger   zerolog.Logger
	fallback *events.Bus
	nodeID   string

	mu       sync.RWMutex
	subs     map[events.EventType][]events.Subscriber
	channels map[events.EventType]*redis.PubSub

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Circuit breaker state
	useFallback bool
	failCount   int
	maxFails    int
	lastCheck   time.Time
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Circuit breaker
	MaxFailures   int
	CheckInterval time.Duration
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:          "localhost:6379",
		PoolSize:      10,
		MinIdleConns:  2,
		DialTimeout:   5 * time.Second,
		ReadTimeout:   3 * time.Second,
		WriteTimeout:  3 * time.Second,
		MaxFailures:   5,
		CheckInterval: 30 * time.Second,
	}
}

// NewRedisBus creates a Redis-backed event bus.
// Falls back to an in-memory bus if Redis is unavailable.
func NewRedisBus(cfg RedisConfig, nodeID string, logger zerolog.Logger) (*RedisBus, error) {
	ctx, cancel := context.WithCancel(context.Background())

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis connection failed, using in-memory fallback")
		cancel()

		return &RedisBus{
			logger:      logger,
			fallback:    events.NewBus(),
			nodeID:      nodeID,
			useFallback: true,
			maxFails:    cfg.MaxFailures,
			subs:        make(map[events.EventType][]events.Subscriber),
			channels:    make(map[events.EventType]*redis.PubSub),
			ctx:         context.Background(),
		}, nil
	}

	rb := &RedisBus{
		client:   client,
		logger:   logger,
		fallback: events.NewBus(),
		nodeID:   nodeID,
		maxFails: cfg.MaxFailures,
		subs:     make(map[events.EventType][]events.Subscriber),
		channels: make(map[events.EventType]*redis.PubSub),
		ctx:      ctx,
		cancel:   cancel,
	}

	logger.Info().Str("addr", cfg.Addr).Msg("Redis event bus initialized")

	return rb, nil
}

// Subscribe registers a subscriber for an event type. Local publishes
// reach it through the in-memory bus; remote publishes through the
// shared Redis subscription.
func (rb *RedisBus) Subscribe(eventType events.EventType) events.Subscriber {
	sub := rb.fallback.Subscribe(eventType)

	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.useFallback {
		return sub
	}

	rb.subs[eventType] = append(rb.subs[eventType], sub)

	// One Redis subscription per event type, shared by local subscribers.
	if _, exists := rb.channels[eventType]; !exists {
		pubsub := rb.client.Subscribe(rb.ctx, channelName(eventType))
		rb.channels[eventType] = pubsub

		rb.wg.Add(1)
		go rb.receiveMessages(eventType, pubsub)
	}

	return sub
}

// receiveMessages handles incoming Redis pub/sub messages.
func (rb *RedisBus) receiveMessages(eventType events.EventType, pubsub *redis.PubSub) {
	defer rb.wg.Done()

	ch := pubsub.Channel()

	rb.logger.Debug().Str("event_type", string(eventType)).Msg("started Redis message receiver")

	for {
		select {
		case <-rb.ctx.Done():
			rb.logger.Debug().Str("event_type", string(eventType)).Msg("stopping Redis message receiver")
			return

		case msg, ok := <-ch:
			if !ok {
				rb.logger.Warn().Str("event_type", string(eventType)).Msg("Redis channel closed")
				rb.handleFailure()
				return
			}

			wireMsg, err := unmarshalMessage([]byte(msg.Payload))
			if err != nil {
				rb.logger.Error().Err(err).Msg("failed to unmarshal Redis message")
				continue
			}

			// Skip messages from ourselves (prevent echo)
			if wireMsg.NodeID == rb.nodeID {
				continue
			}

			rb.mu.RLock()
			subs := rb.subs[eventType]
			rb.mu.RUnlock()

			for _, sub := range subs {
				select {
				case sub <- wireMsg.Payload:
				default:
					rb.logger.Warn().Str("event_type", string(eventType)).Msg("subscriber channel full, dropping event")
				}
			}
		}
	}
}

// Publish sends an event payload to all subscribers, local and remote.
func (rb *RedisBus) Publish(eventType events.EventType, payload events.Payload) {
	// Local subscribers always get the event, even when Redis is down.
	rb.fallback.Publish(eventType, payload)

	if rb.useFallback {
		return
	}

	data, err := marshalMessage(eventType, payload, rb.nodeID)
	if err != nil {
		rb.logger.Error().Err(err).Msg("failed to marshal Redis message")
		return
	}

	ctx, cancel := context.WithTimeout(rb.ctx, 2*time.Second)
	defer cancel()

	if err := rb.client.Publish(ctx, channelName(eventType), data).Err(); err != nil {
		rb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to publish to Redis")
		rb.handleFailure()
		return
	}

	rb.mu.Lock()
	rb.failCount = 0
	rb.mu.Unlock()
}

// Unsubscribe removes a subscriber.
func (rb *RedisBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	subs := rb.subs[eventType]
	for i, s := range subs {
		if s == sub {
			rb.subs[eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}

	// The fallback bus owns the channel and closes it.
	rb.fallback.Unsubscribe(eventType, sub)

	// Last local subscriber gone, drop the Redis subscription too.
	if len(rb.subs[eventType]) == 0 {
		if pubsub, exists := rb.channels[eventType]; exists {
			pubsub.Close()
			delete(rb.channels, eventType)
			rb.logger.Debug().Str("event_type", string(eventType)).Msg("closed Redis subscription")
		}
	}
}

// Close closes the Redis connection and all subscriptions.
func (rb *RedisBus) Close() error {
	rb.logger.Info().Msg("closing Redis event bus")

	if rb.cancel != nil {
		rb.cancel()
	}
	rb.wg.Wait()

	rb.mu.Lock()
	for eventType, pubsub := range rb.channels {
		pubsub.Close()
		rb.logger.Debug().Str("event_type", string(eventType)).Msg("closed Redis pub/sub")
	}
	rb.channels = make(map[events.EventType]*redis.PubSub)
	rb.mu.Unlock()

	if rb.client != nil {
		if err := rb.client.Close(); err != nil {
			rb.logger.Error().Err(err).Msg("failed to close Redis client")
			return err
		}
	}

	return nil
}

// handleFailure implements circuit breaker logic.
func (rb *RedisBus) handleFailure() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.failCount++

	if rb.failCount >= rb.maxFails && !rb.useFallback {
		rb.logger.Warn().
			Int("fail_count", rb.failCount).
			Msg("Redis failure threshold reached, switching to in-memory fallback")

		rb.useFallback = true
		rb.lastCheck = time.Now()

		if rb.client != nil {
			rb.client.Close()
		}
	}
}

// wireMessage is the envelope published to Redis and NATS.
type wireMessage struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
}

func marshalMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	msg := wireMessage{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now(),
		NodeID:    nodeID,
	}
	return json.Marshal(msg)
}

func unmarshalMessage(data []byte) (*wireMessage, error) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal bus message: %w", err)
	}
	return &msg, nil
}
