// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// NewULID generates a monotonic ULID.
func NewULID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// NewActorID generates a new actor id.
func NewActorID() ActorID {
	return NewULID()
}

// ParseActorID parses an actor id from its canonical string form.
func ParseActorID(s string) (ActorID, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return ActorID{}, oops.Code(CodeInvalidInput).
			With("actor_id", s).
			Wrap(&ValidationError{Field: "actor_id", Message: err.Error()})
	}
	return id, nil
}
