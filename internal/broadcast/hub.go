// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package broadcast fans engine events out to in-process subscribers and
// WebSocket clients.
package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/coresystem/internal/core"
)

// AllStreams subscribes to every stream.
const AllStreams = "*"

// DefaultBuffer is the channel capacity of a subscription.
const DefaultBuffer = 100

var (
	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coresystem_broadcast_events_total",
			Help: "Events published by type",
		},
		[]string{"type"},
	)
	eventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coresystem_broadcast_events_dropped_total",
			Help: "Events dropped because a subscriber buffer was full",
		},
	)
)

// RegisterMetrics registers broadcast metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(eventsPublished, eventsDropped)
}

// Hub distributes events to subscribers by stream.
type Hub struct {
	mu   sync.RWMutex
	subs map[string][]chan core.Event
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string][]chan core.Event)}
}

// Subscribe creates a channel receiving events on stream. Use AllStreams
// for everything.
func (h *Hub) Subscribe(stream string) chan core.Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan core.Event, DefaultBuffer)
	h.subs[stream] = append(h.subs[stream], ch)
	return ch
}

// Unsubscribe removes ch from stream and closes it.
func (h *Hub) Unsubscribe(stream string, ch chan core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[stream]
	for i, sub := range subs {
		if sub == ch {
			h.subs[stream] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Subscribers returns the number of subscriptions on stream.
func (h *Hub) Subscribers(stream string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[stream])
}

// Broadcast sends ev to the subscribers of its stream and of AllStreams.
// Full subscribers miss the event.
func (h *Hub) Broadcast(ev core.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	eventsPublished.WithLabelValues(string(ev.Type)).Inc()
	for _, stream := range []string{ev.Stream, AllStreams} {
		for _, ch := range h.subs[stream] {
			select {
			case ch <- ev:
			default:
				eventsDropped.Inc()
				slog.Warn("event dropped: subscriber buffer full",
					"stream", ev.Stream,
					"event_id", ev.ID.String(),
					"event_type", ev.Type,
				)
			}
		}
	}
}

// Publish implements the engine's notifier contract.
func (h *Hub) Publish(_ context.Context, ev core.Event) {
	h.Broadcast(ev)
}
