package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/l1jgo/bulletpool/internal/core/ecs"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Host is what wave scripts may do to the projectile pools.
type Host interface {
	PoolCount() int
	Lookup(name string) (ecs.PoolID, bool)
	Preload(id ecs.PoolID, count int)
	FreeCount(id ecs.PoolID) int
	// Spawn fetches, places and activates a projectile heading at angle
	// degrees, attaching the sub-munitions its template declares.
	Spawn(id ecs.PoolID, x, y, angle float64) ecs.Handle
	Recycle(h ecs.Handle, children, split bool) bool
	InUse(h ecs.Handle) bool
	// MoveTo tweens a projectile to (x, y); it stops flying on its own
	// velocity while the tween runs.
	MoveTo(h ecs.Handle, x, y float64, d time.Duration) bool
	// After schedules fn on h. Recycling h cancels it.
	After(h ecs.Handle, d time.Duration, fn func()) bool
}

const handleTypeName = "projectile"

// Engine wraps a single gopher-lua VM running wave scripts.
// Single-goroutine access only (game loop).
type Engine struct {
	vm   *lua.LState
	host Host
	log  *zap.Logger
}

// NewEngine creates a Lua engine, installs the pool API and loads all
// scripts from dir in file name order. A missing dir loads nothing.
func NewEngine(dir string, host Host, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, host: host, log: log}
	e.installPoolAPI()

	if err := e.loadDir(dir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load wave scripts: %w", err)
	}
	return e, nil
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk in the engine's VM.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// Start calls the optional global on_start().
func (e *Engine) Start() error {
	return e.callOptional("on_start")
}

// Tick calls the optional global on_tick(tick, dt_seconds).
func (e *Engine) Tick(tick uint64, dt time.Duration) error {
	return e.callOptional("on_tick", lua.LNumber(tick), lua.LNumber(dt.Seconds()))
}

func (e *Engine) callOptional(name string, args ...lua.LValue) error {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return nil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		return fmt.Errorf("lua %s: %w", name, err)
	}
	return nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

func (e *Engine) installPoolAPI() {
	L := e.vm
	mt := L.NewTypeMetatable(handleTypeName)
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(e.checkHandle(L, 1).String()))
		return 1
	}))
	L.SetField(mt, "__eq", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(e.checkHandle(L, 1) == e.checkHandle(L, 2)))
		return 1
	}))

	api := L.NewTable()
	L.SetFuncs(api, map[string]lua.LGFunction{
		"id":      e.luaID,
		"preload": e.luaPreload,
		"free":    e.luaFree,
		"spawn":   e.luaSpawn,
		"recycle": e.luaRecycle,
		"alive":   e.luaAlive,
		"move_to": e.luaMoveTo,
		"after":   e.luaAfter,
	})
	L.SetGlobal("pool", api)
}

func (e *Engine) newHandle(L *lua.LState, h ecs.Handle) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = h
	L.SetMetatable(ud, L.GetTypeMetatable(handleTypeName))
	return ud
}

func (e *Engine) pushHandle(L *lua.LState, h ecs.Handle) {
	L.Push(e.newHandle(L, h))
}

func (e *Engine) checkHandle(L *lua.LState, n int) ecs.Handle {
	ud := L.CheckUserData(n)
	h, ok := ud.Value.(ecs.Handle)
	if !ok {
		L.ArgError(n, "projectile handle expected")
	}
	return h
}

// checkPool accepts a prototype name or a numeric pool id.
func (e *Engine) checkPool(L *lua.LState, n int) ecs.PoolID {
	switch v := L.Get(n).(type) {
	case lua.LString:
		id, ok := e.host.Lookup(string(v))
		if !ok {
			L.ArgError(n, fmt.Sprintf("unknown prototype %q", string(v)))
		}
		return id
	case lua.LNumber:
		id := int(v)
		if id < 0 || id >= e.host.PoolCount() {
			L.ArgError(n, fmt.Sprintf("pool id %d out of range", id))
		}
		return ecs.PoolID(id)
	default:
		L.ArgError(n, "prototype name or pool id expected")
	}
	return 0
}

func (e *Engine) luaID(L *lua.LState) int {
	id, ok := e.host.Lookup(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(id))
	return 1
}

func (e *Engine) luaPreload(L *lua.LState) int {
	id := e.checkPool(L, 1)
	count := L.CheckInt(2)
	if count < 0 {
		L.ArgError(2, "count must not be negative")
	}
	e.host.Preload(id, count)
	return 0
}

func (e *Engine) luaFree(L *lua.LState) int {
	L.Push(lua.LNumber(e.host.FreeCount(e.checkPool(L, 1))))
	return 1
}

func (e *Engine) luaSpawn(L *lua.LState) int {
	id := e.checkPool(L, 1)
	x := float64(L.OptNumber(2, 0))
	y := float64(L.OptNumber(3, 0))
	angle := float64(L.OptNumber(4, 0))
	e.pushHandle(L, e.host.Spawn(id, x, y, angle))
	return 1
}

func (e *Engine) luaRecycle(L *lua.LState) int {
	h := e.checkHandle(L, 1)
	children := L.OptBool(2, false)
	split := L.OptBool(3, false)
	L.Push(lua.LBool(e.host.Recycle(h, children, split)))
	return 1
}

func (e *Engine) luaAlive(L *lua.LState) int {
	L.Push(lua.LBool(e.host.InUse(e.checkHandle(L, 1))))
	return 1
}

func seconds(v lua.LNumber) time.Duration {
	return time.Duration(float64(v) * float64(time.Second))
}

func (e *Engine) luaMoveTo(L *lua.LState) int {
	h := e.checkHandle(L, 1)
	x := float64(L.CheckNumber(2))
	y := float64(L.CheckNumber(3))
	d := seconds(L.CheckNumber(4))
	L.Push(lua.LBool(e.host.MoveTo(h, x, y, d)))
	return 1
}

// luaAfter schedules a Lua function against a projectile. The callback gets
// the handle back and runs from the animation phase.
func (e *Engine) luaAfter(L *lua.LState) int {
	h := e.checkHandle(L, 1)
	d := seconds(L.CheckNumber(2))
	fn := L.CheckFunction(3)
	ok := e.host.After(h, d, func() {
		arg := e.newHandle(e.vm, h)
		if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, arg); err != nil {
			e.log.Error("lua after callback failed", zap.Stringer("entity", h), zap.Error(err))
		}
	})
	L.Push(lua.LBool(ok))
	return 1
}
