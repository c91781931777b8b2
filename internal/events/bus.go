/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventScheduleChange EventType = "schedule.change"
	EventPlayerOnline   EventType = "player.online"
	EventPlayerOffline  EventType = "player.offline"

	// Cache invalidation events
	EventPlayerCreated EventType = "cache.player_created"
	EventPlayerUpdated EventType = "cache.player_updated"
	EventPlayerDeleted EventType = "cache.player_deleted"
	EventSlotCreated   EventType = "cache.slot_created"
	EventSlotUpdated   EventType = "cache.slot_updated"
	EventSlotDeleted   EventType = "cache.slot_deleted"
	EventAssetUpdated  EventType = "cache.asset_updated"
	EventAssetDeleted  EventType = "cache.asset_deleted"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. Delivery is best effort, a
// subscriber with a full channel misses the event.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
