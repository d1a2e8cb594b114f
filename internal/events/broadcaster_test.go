// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package events_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/millwardesque/parkbench/internal/events"
)

func TestPublish_FansOutToAllSubscribers(t *testing.T) {
	b := events.NewBroadcaster()

	var got []any
	b.Subscribe(events.RosterChanged, func(payload any) { got = append(got, payload) })
	b.Subscribe(events.RosterChanged, func(payload any) { got = append(got, payload) })

	b.Publish(events.RosterChanged, "hello")

	assert.Len(t, got, 2)
	assert.Equal(t, "hello", got[0])
}

func TestPublish_NoSubscribers(t *testing.T) {
	b := events.NewBroadcaster()

	assert.NotPanics(t, func() {
		b.Publish(events.RosterChanged, "nobody home")
	})
}

func TestUnsubscribe(t *testing.T) {
	b := events.NewBroadcaster()

	calls := 0
	unsubscribe := b.Subscribe(events.RosterChanged, func(any) { calls++ })

	b.Publish(events.RosterChanged, nil)
	unsubscribe()
	b.Publish(events.RosterChanged, nil)

	assert.Equal(t, 1, calls)
	assert.Zero(t, b.SubscriberCount(events.RosterChanged))
}

func TestUnsubscribe_Twice(t *testing.T) {
	b := events.NewBroadcaster()

	unsubscribe := b.Subscribe(events.RosterChanged, func(any) {})

	unsubscribe()
	assert.NotPanics(t, unsubscribe)
}

func TestPublish_PanickingSubscriberIsIsolated(t *testing.T) {
	b := events.NewBroadcaster()

	delivered := false
	b.Subscribe(events.RosterChanged, func(any) { panic("boom") })
	b.Subscribe(events.RosterChanged, func(any) { delivered = true })

	assert.NotPanics(t, func() {
		b.Publish(events.RosterChanged, nil)
	})
	assert.True(t, delivered)
}

func TestSubscribe_OnlyMatchingTypeDelivered(t *testing.T) {
	b := events.NewBroadcaster()

	calls := 0
	b.Subscribe(events.Type("other:event"), func(any) { calls++ })

	b.Publish(events.RosterChanged, nil)

	assert.Zero(t, calls)
}

func TestBroadcaster_ConcurrentUse(t *testing.T) {
	b := events.NewBroadcaster()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unsubscribe := b.Subscribe(events.RosterChanged, func(any) {})
			unsubscribe()
		}()
		go func() {
			defer wg.Done()
			b.Publish(events.RosterChanged, nil)
		}()
	}
	wg.Wait()
}
