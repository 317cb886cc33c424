// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/coresystem/internal/cooldown"
	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions"
	"github.com/holomush/coresystem/internal/lifecycle"
	"github.com/holomush/coresystem/internal/presence"
	"github.com/holomush/coresystem/internal/protection"
	"github.com/holomush/coresystem/internal/store"
	"github.com/holomush/coresystem/internal/world"
)

var origin = core.Location{World: "world", X: 10, Y: 64, Z: 10}

// engineEnv is an engine whose records live in PostgreSQL.
type engineEnv struct {
	adapter   *store.PostgresAdapter
	store     *store.Store
	engine    *lifecycle.Engine
	host      *world.Memory
	cooldowns *cooldown.Registry
}

func newEngineEnv(ctx context.Context) *engineEnv {
	holder, err := definitions.NewHolder(definitions.NewLoader(), definitions.DefaultFS())
	Expect(err).NotTo(HaveOccurred())
	adapter, err := store.OpenPostgres(ctx, databaseURL)
	Expect(err).NotTo(HaveOccurred())

	e := &engineEnv{
		adapter:   adapter,
		host:      world.NewMemory(),
		cooldowns: cooldown.New(cooldown.Config{}),
	}
	e.store = store.New(adapter, holder, store.WithWriter(store.NewWriter(adapter, store.DefaultWriterConfig())))
	e.engine, err = lifecycle.New(lifecycle.Deps{
		Store:      e.store,
		Catalogs:   holder,
		Protection: protection.NewCuboid(holder.Current().Tunables.ProtectionRadius),
		Presence:   presence.NewTracker(),
		Cooldowns:  e.cooldowns,
		Inventory:  e.host,
		Economy:    e.host,
		World:      e.host,
	})
	Expect(err).NotTo(HaveOccurred())
	return e
}

func (e *engineEnv) close(ctx context.Context) {
	e.cooldowns.Close()
	Expect(e.store.Close(ctx)).To(Succeed())
}

// placeCore joins a new actor and gives them an active Core.
func (e *engineEnv) placeCore(ctx context.Context, name string, loc core.Location) core.ActorID {
	actor := core.NewActorID()
	e.host.SetName(actor, name)
	_, err := e.engine.Join(ctx, actor, name)
	Expect(err).NotTo(HaveOccurred())
	seed := e.engine.Catalog().Tunables.Seed.Material
	Expect(e.host.Give(ctx, actor, seed, 1)).To(Succeed())
	e.host.Hold(actor, seed)
	_, err = e.engine.Place(ctx, actor, loc)
	Expect(err).NotTo(HaveOccurred())
	return actor
}

var _ = Describe("Core records in PostgreSQL", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("survives leave and a fresh engine", func() {
		first := newEngineEnv(ctx)
		actor := first.placeCore(ctx, "Alex", origin)
		_, err := first.engine.GrantXP(ctx, actor, 250, "MOB_KILL")
		Expect(err).NotTo(HaveOccurred())
		_, err = first.engine.ChooseArchetype(ctx, actor, "guardian")
		Expect(err).NotTo(HaveOccurred())
		Expect(first.engine.Leave(ctx, actor)).To(Succeed())
		first.close(ctx)

		second := newEngineEnv(ctx)
		defer second.close(ctx)
		rec, err := second.store.Get(ctx, actor)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Active).To(BeTrue())
		Expect(rec.Level).To(Equal(2))
		Expect(rec.TotalXP).To(BeNumerically("==", 250))
		Expect(rec.ArchetypeID).To(Equal("GUARDIAN"))
		Expect(rec.Location).NotTo(BeNil())
		Expect(rec.Location.World).To(Equal("world"))
	})

	It("keeps the backup of a destroyed Core", func() {
		env := newEngineEnv(ctx)
		actor := env.placeCore(ctx, "Sam", core.Location{World: "world", X: 200, Y: 64, Z: 200})
		_, err := env.engine.Destroy(ctx, actor)
		Expect(err).NotTo(HaveOccurred())
		Expect(env.store.Evict(ctx, actor)).To(Succeed())

		rec, err := env.store.Get(ctx, actor)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Active).To(BeFalse())
		Expect(rec.Backup).NotTo(BeNil())
		env.close(ctx)
	})

	It("serialises concurrent XP grants on one record", func() {
		env := newEngineEnv(ctx)
		actor := env.placeCore(ctx, "Kim", core.Location{World: "world", X: -300, Y: 64, Z: 40})

		var wg sync.WaitGroup
		for range 40 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				_, err := env.engine.GrantXP(ctx, actor, 10, "CORE_FEED")
				Expect(err).NotTo(HaveOccurred())
			}()
		}
		wg.Wait()
		Expect(env.store.Flush(ctx)).To(Succeed())
		Expect(env.store.Evict(ctx, actor)).To(Succeed())

		rec, err := env.store.Get(ctx, actor)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.TotalXP).To(BeNumerically("==", 400))
		Expect(rec.XPBySource.Feed).To(BeNumerically("==", 400))
		env.close(ctx)
	})

	It("exports and imports through the archive format", func() {
		env := newEngineEnv(ctx)
		actor := env.placeCore(ctx, "Lee", core.Location{World: "world", X: 500, Y: 64, Z: -500})
		Expect(env.store.Flush(ctx)).To(Succeed())

		var buf bytes.Buffer
		n, err := store.Export(ctx, env.adapter, &buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeNumerically(">=", 1))

		mem := store.NewMemoryAdapter()
		imported, err := store.Import(ctx, mem, &buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(imported).To(Equal(n))
		doc, err := mem.Load(ctx, actor)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Active).To(BeTrue())
		env.close(ctx)
	})
})

var _ = Describe("Migrator", func() {
	It("reports no pending migrations after the suite migrated", func() {
		m, err := store.NewMigrator(databaseURL)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = m.Close() }()

		pending, err := m.Pending()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(BeEmpty())

		versions, err := store.MigrationVersions()
		Expect(err).NotTo(HaveOccurred())
		version, dirty, err := m.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(dirty).To(BeFalse())
		Expect(version).To(Equal(versions[len(versions)-1]))
	})
})
