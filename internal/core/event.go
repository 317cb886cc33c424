// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// EventType identifies the kind of event.
type EventType string

// Engine event types.
const (
	EventTypePlaced    EventType = "core_placed"
	EventTypeDestroyed EventType = "core_destroyed"
	EventTypeRestored  EventType = "core_restored"
	EventTypeXPGained  EventType = "core_xp_gained"
	EventTypeLevelUp   EventType = "core_level_up"
	EventTypeRebirth   EventType = "core_rebirth"
	EventTypeSkillUsed EventType = "core_skill_used"
	EventTypeReloaded  EventType = "definitions_reloaded"
)

// StreamAnnouncements carries server-wide announcements.
const StreamAnnouncements = "announce"

// ActorStream returns the stream of events addressed to one actor.
func ActorStream(id ActorID) string {
	return "actor:" + id.String()
}

// ActorKind identifies what type of entity caused an event.
type ActorKind uint8

// Actor kinds.
const (
	ActorPlayer ActorKind = iota
	ActorSystem
	ActorAdmin
)

func (a ActorKind) String() string {
	switch a {
	case ActorPlayer:
		return "player"
	case ActorSystem:
		return "system"
	case ActorAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Actor represents who or what caused an event.
type Actor struct {
	Kind ActorKind
	ID   string
}

// SystemActor is the actor for events raised by the engine itself.
var SystemActor = Actor{Kind: ActorSystem, ID: "system"}

// Event is a notification raised by a committed Core change.
type Event struct {
	ID        ulid.ULID
	Stream    string
	Type      EventType
	Timestamp time.Time
	Actor     Actor
	Subject   ActorID // owner of the Core the event is about
	Payload   []byte  // JSON
}

// LevelUpPayload is the payload of EventTypeLevelUp.
type LevelUpPayload struct {
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
}

// XPPayload is the payload of EventTypeXPGained.
type XPPayload struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
	Total  float64 `json:"total"`
}

// RebirthPayload is the payload of EventTypeRebirth.
type RebirthPayload struct {
	OldCount   int    `json:"old_count"`
	NewCount   int    `json:"new_count"`
	MutationID string `json:"mutation_id"`
}

// MessagePayload carries announcement text.
type MessagePayload struct {
	Message string `json:"message"`
}

// SkillPayload is the payload of EventTypeSkillUsed.
type SkillPayload struct {
	SkillID    string `json:"skill_id"`
	EffectKind string `json:"effect_kind"`
}

// NewEvent builds an event with a fresh id and a JSON payload.
func NewEvent(stream string, typ EventType, actor Actor, subject ActorID, payload any) (Event, error) {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return Event{}, oops.With("event_type", string(typ)).Wrap(err)
		}
	}
	return Event{
		ID:        NewULID(),
		Stream:    stream,
		Type:      typ,
		Timestamp: time.Now(),
		Actor:     actor,
		Subject:   subject,
		Payload:   data,
	}, nil
}
