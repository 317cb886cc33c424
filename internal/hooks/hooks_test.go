// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hooks_test

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/hooks"
	"github.com/holomush/coresystem/pkg/errutil"
)

func TestChain_RunsInOrderAndStopsAtRejection(t *testing.T) {
	h := hooks.New()
	var calls []string
	h.XPGrant.Register("double", func(_ context.Context, g *hooks.XPGrant) error {
		calls = append(calls, "double")
		g.Amount *= 2
		return nil
	})
	h.XPGrant.Register("cap", func(_ context.Context, g *hooks.XPGrant) error {
		calls = append(calls, "cap")
		if g.Amount > 100 {
			return hooks.Reject("too much xp")
		}
		return nil
	})
	h.XPGrant.Register("never", func(context.Context, *hooks.XPGrant) error {
		calls = append(calls, "never")
		return nil
	})
	assert.Equal(t, []string{"double", "cap", "never"}, h.XPGrant.Names())

	g := &hooks.XPGrant{Actor: core.NewActorID(), Amount: 40}
	require.NoError(t, h.RunXPGrant(context.Background(), g))
	assert.Equal(t, 80.0, g.Amount)

	calls = nil
	g = &hooks.XPGrant{Actor: core.NewActorID(), Amount: 60}
	err := h.RunXPGrant(context.Background(), g)
	errutil.AssertErrorCode(t, err, core.CodeHookRejected)
	errutil.AssertErrorContext(t, err, "hook", "cap")
	assert.ErrorIs(t, err, hooks.ErrRejected)
	assert.Contains(t, err.Error(), "too much xp")
	assert.Equal(t, []string{"double", "cap"}, calls)
}

func TestHooks_NilIsPermissive(t *testing.T) {
	var h *hooks.Hooks
	assert.NoError(t, h.RunXPGrant(context.Background(), &hooks.XPGrant{}))
	assert.NoError(t, h.RunSkillUse(context.Background(), &hooks.SkillUse{}))
}

func TestLuaScript_XPGrant(t *testing.T) {
	src := `
function on_xp_grant(grant)
  if grant.reason == "ADMIN" then
    return nil
  end
  if grant.level >= 10 then
    return false, "veterans earn xp elsewhere"
  end
  return grant.amount * 1.5
end
`
	s, err := hooks.CompileLua("bonus.lua", src)
	require.NoError(t, err)
	assert.True(t, s.Defines(hooks.LuaXPGrantFunc))
	assert.False(t, s.Defines(hooks.LuaSkillUseFunc))

	h := hooks.New()
	s.Install(h)
	assert.Equal(t, []string{"lua:bonus.lua"}, h.XPGrant.Names())
	assert.Empty(t, h.SkillUse.Names())

	tests := []struct {
		name       string
		grant      hooks.XPGrant
		wantAmount float64
		wantReject bool
	}{
		{"scaled", hooks.XPGrant{Amount: 10, Reason: "MOB_KILL", Level: 2}, 15, false},
		{"unchanged", hooks.XPGrant{Amount: 10, Reason: "ADMIN", Level: 2}, 10, false},
		{"rejected", hooks.XPGrant{Amount: 10, Reason: "MOB_KILL", Level: 12}, 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.grant
			g.Actor = core.NewActorID()
			err := h.RunXPGrant(context.Background(), &g)
			if tt.wantReject {
				errutil.AssertErrorCode(t, err, core.CodeHookRejected)
				assert.Contains(t, err.Error(), "veterans earn xp elsewhere")
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantAmount, g.Amount, 1e-9)
		})
	}
}

func TestLuaScript_SkillUse(t *testing.T) {
	s, err := hooks.CompileLua("no_dash.lua", `
function on_skill_use(use)
  if use.skill_id == "dash" then
    return false
  end
  return true
end
`)
	require.NoError(t, err)
	h := hooks.New()
	s.Install(h)

	err = h.RunSkillUse(context.Background(), &hooks.SkillUse{Actor: core.NewActorID(), SkillID: "dash"})
	errutil.AssertErrorCode(t, err, core.CodeHookRejected)
	assert.True(t, errors.Is(err, hooks.ErrRejected))

	assert.NoError(t, h.RunSkillUse(context.Background(), &hooks.SkillUse{Actor: core.NewActorID(), SkillID: "frenzy"}))
}

func TestLuaScript_Sandbox(t *testing.T) {
	s, err := hooks.CompileLua("escape.lua", `
function on_skill_use(use)
  if os ~= nil or io ~= nil or dofile ~= nil or loadstring ~= nil then
    return false, "sandbox leaked"
  end
  return true
end
`)
	require.NoError(t, err)
	h := hooks.New()
	s.Install(h)
	assert.NoError(t, h.RunSkillUse(context.Background(), &hooks.SkillUse{Actor: core.NewActorID()}))
}

func TestLuaScript_RuntimeErrorFailsClosed(t *testing.T) {
	s, err := hooks.CompileLua("broken.lua", `
function on_xp_grant(grant)
  error("boom")
end
`)
	require.NoError(t, err)
	h := hooks.New()
	s.Install(h)

	err = h.RunXPGrant(context.Background(), &hooks.XPGrant{Actor: core.NewActorID(), Amount: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestCompileLua_SyntaxError(t *testing.T) {
	_, err := hooks.CompileLua("bad.lua", "function (")
	errutil.AssertErrorCode(t, err, "HOOK_SCRIPT_INVALID")
}

func TestLoadLuaDir(t *testing.T) {
	fsys := fstest.MapFS{
		"b.lua":     {Data: []byte("function on_skill_use(u) return true end")},
		"a.lua":     {Data: []byte("function on_xp_grant(g) return nil end")},
		"notes.txt": {Data: []byte("ignored")},
	}
	scripts, err := hooks.LoadLuaDir(fsys)
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.Equal(t, "a.lua", scripts[0].Name)
	assert.Equal(t, "b.lua", scripts[1].Name)
}
