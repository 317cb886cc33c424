// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package regen_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions/definitionstest"
	"github.com/holomush/coresystem/internal/lifecycle"
	"github.com/holomush/coresystem/internal/regen"
	"github.com/holomush/coresystem/internal/store"
)

const photosynthesis = `
version: "1.0"
mutations:
  PHOTOSYNTHESIS:
    type: regen-add
    effect_details: {amount: 1.5}
`

func activeWithEnergy(t *testing.T, s *store.Store, energy float64, mutations ...string) core.ActorID {
	t.Helper()
	id := core.NewActorID()
	_, err := s.Update(context.Background(), id, func(r *core.Record) error {
		r.Active = true
		r.Location = &core.Location{World: "world"}
		r.SetEnergy(energy)
		for _, m := range mutations {
			r.AddMutation(m)
		}
		return nil
	})
	require.NoError(t, err)
	return id
}

func energy(t *testing.T, s *store.Store, id core.ActorID) float64 {
	t.Helper()
	r, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	return r.Energy
}

func TestTick(t *testing.T) {
	holder := definitionstest.Holder(t, definitionstest.Docs{"mutations.yaml": photosynthesis})
	s := store.New(store.NewMemoryAdapter(), holder)
	roster := lifecycle.NewRoster()
	sched, err := regen.New(s, holder, roster)
	require.NoError(t, err)

	plain := activeWithEnergy(t, s, 10)
	boosted := activeWithEnergy(t, s, 10, "PHOTOSYNTHESIS")
	nearlyFull := activeWithEnergy(t, s, 99.5)
	full := activeWithEnergy(t, s, 100)
	absent := activeWithEnergy(t, s, 10)
	inactive := core.NewActorID()
	for _, id := range []core.ActorID{plain, boosted, nearlyFull, full, inactive} {
		roster.Add(id, "")
	}

	assert.Equal(t, 3, sched.Tick(context.Background()))

	assert.Equal(t, 11.0, energy(t, s, plain))
	assert.Equal(t, 12.5, energy(t, s, boosted))
	assert.Equal(t, 100.0, energy(t, s, nearlyFull), "clamped at max")
	assert.Equal(t, 100.0, energy(t, s, full))
	assert.Equal(t, 10.0, energy(t, s, absent), "absent actors are skipped")
}

func TestTick_Disabled(t *testing.T) {
	holder := definitionstest.Holder(t, definitionstest.Docs{"core.yaml": "version: \"1.0\"\nenergy-regeneration:\n  passive-enabled: false\n"})
	s := store.New(store.NewMemoryAdapter(), holder)
	roster := lifecycle.NewRoster()
	sched, err := regen.New(s, holder, roster)
	require.NoError(t, err)

	id := activeWithEnergy(t, s, 10)
	roster.Add(id, "")
	assert.Zero(t, sched.Tick(context.Background()))
	assert.Equal(t, 10.0, energy(t, s, id))
}

func TestScheduler_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	holder := definitionstest.Holder(t, definitionstest.Docs{"core.yaml": "version: \"1.0\"\nenergy-regeneration:\n  passive-interval-seconds: 1\n"})
	s := store.New(store.NewMemoryAdapter(), holder)
	roster := lifecycle.NewRoster()
	sched, err := regen.New(s, holder, roster)
	require.NoError(t, err)

	id := activeWithEnergy(t, s, 10)
	roster.Add(id, "")

	sched.Start(context.Background())
	sched.Start(context.Background())
	assert.Eventually(t, func() bool { return energy(t, s, id) > 10 }, 3*time.Second, 50*time.Millisecond)
	sched.Stop()
	sched.Stop()
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := regen.New(nil, nil, nil)
	assert.Error(t, err)
}
