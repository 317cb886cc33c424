// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hooks

import (
	"context"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// Lua entry points a script may define.
const (
	LuaXPGrantFunc  = "on_xp_grant"
	LuaSkillUseFunc = "on_skill_use"
)

// DefaultLuaTimeout bounds one validator call.
const DefaultLuaTimeout = 100 * time.Millisecond

var luaLibraries = []struct {
	name string
	fn   lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

var blockedGlobals = []string{"dofile", "loadfile", "loadstring", "load", "require"}

// LuaScript is a compiled validator script. Each call runs in a fresh
// sandboxed state with only the base, table, string and math libraries.
//
// on_xp_grant(grant) receives {actor_id, amount, reason, level}. Returning
// nil keeps the grant, a number replaces the amount, and false plus an
// optional message rejects it. on_skill_use(use) receives {actor_id,
// skill_id, archetype, energy_cost} and rejects the same way.
type LuaScript struct {
	Name    string
	proto   *lua.FunctionProto
	timeout time.Duration
	exports map[string]bool
}

// CompileLua compiles src and records which entry points it defines.
func CompileLua(name, src string) (*LuaScript, error) {
	chunk, err := parse.Parse(strings.NewReader(src), name)
	if err != nil {
		return nil, oops.Code("HOOK_SCRIPT_INVALID").With("script", name).Wrap(err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, oops.Code("HOOK_SCRIPT_INVALID").With("script", name).Wrap(err)
	}
	s := &LuaScript{Name: name, proto: proto, timeout: DefaultLuaTimeout, exports: map[string]bool{}}

	L, err := s.newState(context.Background())
	if err != nil {
		return nil, err
	}
	defer L.Close()
	for _, fn := range []string{LuaXPGrantFunc, LuaSkillUseFunc} {
		if L.GetGlobal(fn).Type() == lua.LTFunction {
			s.exports[fn] = true
		}
	}
	return s, nil
}

// LoadLuaDir compiles every *.lua file at the root of fsys in name order.
func LoadLuaDir(fsys fs.FS) ([]*LuaScript, error) {
	names, err := fs.Glob(fsys, "*.lua")
	if err != nil {
		return nil, oops.Code("HOOK_SCRIPT_INVALID").Wrap(err)
	}
	slices.Sort(names)
	scripts := make([]*LuaScript, 0, len(names))
	for _, name := range names {
		src, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, oops.Code("HOOK_SCRIPT_INVALID").With("script", name).Wrap(err)
		}
		s, err := CompileLua(path.Base(name), string(src))
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, s)
	}
	return scripts, nil
}

// Defines reports whether the script defines the named entry point.
func (s *LuaScript) Defines(fn string) bool {
	return s.exports[fn]
}

// Install registers the script's entry points on h.
func (s *LuaScript) Install(h *Hooks) {
	if s.Defines(LuaXPGrantFunc) {
		h.XPGrant.Register("lua:"+s.Name, s.validateXP)
	}
	if s.Defines(LuaSkillUseFunc) {
		h.SkillUse.Register("lua:"+s.Name, s.validateSkill)
	}
}

func (s *LuaScript) newState(ctx context.Context) (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range luaLibraries {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.fn), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, oops.Code("HOOK_SCRIPT_FAILED").With("library", lib.name).Wrap(err)
		}
	}
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetContext(ctx)
	L.Push(L.NewFunctionFromProto(s.proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		L.Close()
		return nil, oops.Code("HOOK_SCRIPT_FAILED").With("script", s.Name).Wrap(err)
	}
	return L, nil
}

// call runs fn(arg) and returns its first two results.
func (s *LuaScript) call(ctx context.Context, fn string, build func(L *lua.LState) *lua.LTable) (lua.LValue, lua.LValue, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	L, err := s.newState(ctx)
	if err != nil {
		return lua.LNil, lua.LNil, err
	}
	defer L.Close()

	if err := L.CallByParam(lua.P{Fn: L.GetGlobal(fn), NRet: 2, Protect: true}, build(L)); err != nil {
		return lua.LNil, lua.LNil, oops.Code("HOOK_SCRIPT_FAILED").With("script", s.Name).With("function", fn).Wrap(err)
	}
	first, second := L.Get(-2), L.Get(-1)
	L.Pop(2)
	return first, second, nil
}

func (s *LuaScript) validateXP(ctx context.Context, g *XPGrant) error {
	ret, msg, err := s.call(ctx, LuaXPGrantFunc, func(L *lua.LState) *lua.LTable {
		t := L.NewTable()
		L.SetField(t, "actor_id", lua.LString(g.Actor.String()))
		L.SetField(t, "amount", lua.LNumber(g.Amount))
		L.SetField(t, "reason", lua.LString(g.Reason))
		L.SetField(t, "level", lua.LNumber(g.Level))
		return t
	})
	if err != nil {
		return err
	}
	switch v := ret.(type) {
	case lua.LNumber:
		g.Amount = float64(v)
	case lua.LBool:
		if !bool(v) {
			return rejection(msg)
		}
	}
	return nil
}

func (s *LuaScript) validateSkill(ctx context.Context, u *SkillUse) error {
	ret, msg, err := s.call(ctx, LuaSkillUseFunc, func(L *lua.LState) *lua.LTable {
		t := L.NewTable()
		L.SetField(t, "actor_id", lua.LString(u.Actor.String()))
		L.SetField(t, "skill_id", lua.LString(u.SkillID))
		L.SetField(t, "archetype", lua.LString(u.ArchetypeID))
		L.SetField(t, "energy_cost", lua.LNumber(u.EnergyCost))
		return t
	})
	if err != nil {
		return err
	}
	if b, ok := ret.(lua.LBool); ok && !bool(b) {
		return rejection(msg)
	}
	return nil
}

func rejection(msg lua.LValue) error {
	if s, ok := msg.(lua.LString); ok && s != "" {
		return Reject("%s", string(s))
	}
	return ErrRejected
}
