/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/openkiosk/fleetd/internal/events"
)

// subjectName maps an event type to its NATS subject.
func subjectName(eventType events.EventType) string {
	return "fleet.events." + string(eventType)
}

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL   string
	Token string

	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSBus implements a NATS-backed event bus for multi-instance deployments.
type NATSBus struct {
	conn     *nats.Conn
	logger   zerolog.Logger
	fallback *events.Bus
	nodeID   string

	mu            sync.Mutex
	subscriptions map[events.Subscriber]*nats.Subscription
}

// NewNATSBus creates a NATS-backed event bus.
// Falls back to an in-memory bus if NATS is unavailable.
func NewNATSBus(cfg NATSConfig, nodeID string, logger zerolog.Logger) (*NATSBus, error) {
	opts := []nats.Option{
		nats.Name("fleetd-" + nodeID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nb := &NATSBus{
		logger:        logger,
		fallback:      events.NewBus(),
		nodeID:        nodeID,
		subscriptions: make(map[events.Subscriber]*nats.Subscription),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		logger.Warn().Err(err).Msg("NATS connection failed, using in-memory fallback")
		return nb, nil
	}

	nb.conn = conn
	logger.Info().Str("url", conn.ConnectedUrl()).Msg("NATS event bus initialized")

	return nb, nil
}

// Subscribe registers a subscriber for an event type.
func (nb *NATSBus) Subscribe(eventType events.EventType) events.Subscriber {
	sub := nb.fallback.Subscribe(eventType)

	if nb.conn == nil {
		return sub
	}

	natsSub, err := nb.conn.Subscribe(subjectName(eventType), func(msg *nats.Msg) {
		wireMsg, err := unmarshalMessage(msg.Data)
		if err != nil {
			nb.logger.Error().Err(err).Msg("failed to unmarshal NATS message")
			return
		}

		// Skip messages from ourselves (prevent echo)
		if wireMsg.NodeID == nb.nodeID {
			return
		}

		select {
		case sub <- wireMsg.Payload:
		default:
			nb.logger.Warn().Str("event_type", string(eventType)).Msg("subscriber channel full, dropping event")
		}
	})
	if err != nil {
		nb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("NATS subscribe failed")
		return sub
	}

	nb.mu.Lock()
	nb.subscriptions[sub] = natsSub
	nb.mu.Unlock()

	return sub
}

// Publish sends an event payload to all subscribers, local and remote.
func (nb *NATSBus) Publish(eventType events.EventType, payload events.Payload) {
	nb.fallback.Publish(eventType, payload)

	if nb.conn == nil {
		return
	}

	data, err := marshalMessage(eventType, payload, nb.nodeID)
	if err != nil {
		nb.logger.Error().Err(err).Msg("failed to marshal NATS message")
		return
	}

	if err := nb.conn.Publish(subjectName(eventType), data); err != nil {
		nb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to publish to NATS")
	}
}

// Unsubscribe removes a subscriber.
func (nb *NATSBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	nb.mu.Lock()
	if natsSub, ok := nb.subscriptions[sub]; ok {
		natsSub.Unsubscribe()
		delete(nb.subscriptions, sub)
	}
	nb.mu.Unlock()

	nb.fallback.Unsubscribe(eventType, sub)
}

// Close drains and closes the NATS connection.
func (nb *NATSBus) Close() error {
	if nb.conn == nil {
		return nil
	}

	nb.mu.Lock()
	for sub, natsSub := range nb.subscriptions {
		natsSub.Unsubscribe()
		delete(nb.subscriptions, sub)
	}
	nb.mu.Unlock()

	if err := nb.conn.Drain(); err != nil {
		nb.logger.Error().Err(err).Msg("NATS drain failed")
		nb.conn.Close()
		return err
	}

	return nil
}
