// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package broadcast

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/holomush/coresystem/internal/core"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message is the JSON frame sent to WebSocket clients.
type Message struct {
	ID        string          `json:"id"`
	Stream    string          `json:"stream"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Actor     string          `json:"actor"`
	Subject   string          `json:"subject,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// MessageFor converts an event to its wire frame.
func MessageFor(ev core.Event) Message {
	m := Message{
		ID:        ev.ID.String(),
		Stream:    ev.Stream,
		Type:      string(ev.Type),
		Timestamp: ev.Timestamp,
		Actor:     ev.Actor.Kind.String() + ":" + ev.Actor.ID,
		Payload:   ev.Payload,
	}
	if ev.Subject != (core.ActorID{}) {
		m.Subject = ev.Subject.String()
	}
	return m
}

// Handler streams announcements to WebSocket clients. A client may add
// ?actor=<id> to also receive that actor's events.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a handler over hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	streams := []string{core.StreamAnnouncements}
	if raw := r.URL.Query().Get("actor"); raw != "" {
		id, err := core.ParseActorID(raw)
		if err != nil {
			http.Error(w, "invalid actor id", http.StatusBadRequest)
			return
		}
		streams = append(streams, core.ActorStream(id))
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events := make(chan core.Event, DefaultBuffer)
	subs := make([]chan core.Event, len(streams))
	for i, s := range streams {
		subs[i] = h.hub.Subscribe(s)
	}
	done := make(chan struct{})
	defer func() {
		close(done)
		for i, s := range streams {
			h.hub.Unsubscribe(s, subs[i])
		}
	}()
	for _, sub := range subs {
		go forward(sub, events, done)
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case ev := <-events:
			data, err := json.Marshal(MessageFor(ev))
			if err != nil {
				slog.Error("encode broadcast frame", "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// forward copies events from sub to out until done closes or sub is closed.
func forward(sub <-chan core.Event, out chan<- core.Event, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			select {
			case out <- ev:
			case <-done:
				return
			}
		}
	}
}
