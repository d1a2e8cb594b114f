// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package events is the in-process change notification fan-out. Delivery is
// synchronous and best-effort, at-most-once per currently-subscribed
// listener; clients that need stronger guarantees poll as a fallback.
package events

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Type identifies a kind of event. The fixed set of constants replaces
// stringly-typed event names so a typo fails at compile time.
type Type string

// RosterChanged fires after any mutation that can change the live roster.
const RosterChanged Type = "roster:changed"

// Subscriber receives event payloads. Subscribers run synchronously on the
// publishing goroutine and must not block.
type Subscriber func(payload any)

// Broadcaster fans events out to subscribers. Safe for concurrent
// Subscribe, Publish, and unsubscribe.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[Type]map[uuid.UUID]Subscriber
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[Type]map[uuid.UUID]Subscriber),
	}
}

// Subscribe registers fn for events of the given type and returns the
// function that removes the subscription. Unsubscribing twice is harmless.
func (b *Broadcaster) Subscribe(eventType Type, fn Subscriber) (unsubscribe func()) {
	id := uuid.New()

	b.mu.Lock()
	if b.subs[eventType] == nil {
		b.subs[eventType] = make(map[uuid.UUID]Subscriber)
	}
	b.subs[eventType][id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs[eventType], id)
		b.mu.Unlock()
	}
}

// Publish delivers payload to every current subscriber of the event type.
// Fan-out is isolated per subscriber: a panicking subscriber is logged and
// the remaining subscribers are still notified.
func (b *Broadcaster) Publish(eventType Type, payload any) {
	b.mu.RLock()
	subscribers := lo.Values(b.subs[eventType])
	b.mu.RUnlock()

	for _, fn := range subscribers {
		deliver(eventType, fn, payload)
	}
}

// SubscriberCount returns the number of subscribers for an event type.
func (b *Broadcaster) SubscriberCount(eventType Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs[eventType])
}

func deliver(eventType Type, fn Subscriber, payload any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event_subscriber_panic", "event", string(eventType), "panic", r)
		}
	}()
	fn(payload)
}
