package scripting

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tilesim/core/internal/core/ecs"
	coresys "github.com/tilesim/core/internal/core/system"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ErrNoUpdate is returned for a script that does not define update(e).
var ErrNoUpdate = errors.New("script defines no update function")

const entityTypeName = "entity"

// Engine wraps a single gopher-lua VM that hosts script-defined systems.
// Single-goroutine access only (frame loop).
type Engine struct {
	vm    *lua.LState
	world *ecs.World
	log   *zap.Logger
}

// NewEngine creates a VM with the world API installed as globals:
//
//	spawn() -> entity|nil        destroy(e) -> bool    mark(e)
//	exists(e) -> bool            has(e, name) -> bool  add(e, name) -> bool
//	remove(e, name)              get_i32(e, name, off) -> number|nil
//	set_i32(e, name, off, v) -> bool                   quit()
//	log(msg)
func NewEngine(w *ecs.World, log *zap.Logger) *Engine {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, world: w, log: log}

	mt := vm.NewTypeMetatable(entityTypeName)
	vm.SetField(mt, "__tostring", vm.NewFunction(e.entityString))
	vm.SetField(mt, "__eq", vm.NewFunction(e.entityEqual))

	for name, fn := range map[string]lua.LGFunction{
		"spawn":   e.spawn,
		"destroy": e.destroy,
		"mark":    e.mark,
		"exists":  e.exists,
		"has":     e.has,
		"add":     e.add,
		"remove":  e.remove,
		"get_i32": e.getI32,
		"set_i32": e.setI32,
		"quit":    e.quit,
		"log":     e.logMessage,
	} {
		vm.SetGlobal(name, vm.NewFunction(fn))
	}
	return e
}

// LoadDir loads every .lua file in dir as a system, in file name order.
// A missing directory yields no systems.
func (e *Engine) LoadDir(dir string) ([]coresys.Descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []coresys.Descriptor
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		d, err := e.LoadSystem(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// LoadSystem runs a script in its own environment and builds a system from
// the globals it defines: name (defaults to the file name), requires (a list
// of component names), update(e), and optional pre() and post().
func (e *Engine) LoadSystem(path string) (coresys.Descriptor, error) {
	fn, err := e.vm.LoadFile(path)
	if err != nil {
		return coresys.Descriptor{}, fmt.Errorf("load %s: %w", path, err)
	}

	env := e.vm.NewTable()
	meta := e.vm.NewTable()
	meta.RawSetString("__index", e.vm.G.Global)
	e.vm.SetMetatable(env, meta)
	fn.Env = env

	e.vm.Push(fn)
	if err := e.vm.PCall(0, 0, nil); err != nil {
		return coresys.Descriptor{}, fmt.Errorf("run %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), ".lua")
	if s, ok := env.RawGetString("name").(lua.LString); ok && s != "" {
		name = string(s)
	}

	var required []string
	if t, ok := env.RawGetString("requires").(*lua.LTable); ok {
		t.ForEach(func(_, v lua.LValue) {
			required = append(required, v.String())
		})
	}
	mask, err := e.world.Registry().Mask(required...)
	if err != nil {
		return coresys.Descriptor{}, fmt.Errorf("%s: %w", path, err)
	}

	update, ok := env.RawGetString("update").(*lua.LFunction)
	if !ok {
		return coresys.Descriptor{}, fmt.Errorf("%s: %w", path, ErrNoUpdate)
	}

	d := coresys.Descriptor{
		Name:     name,
		Required: mask,
		Update: func(_ *ecs.World, ent ecs.EntityID) {
			e.call(name, "update", update, e.pushEntity(ent))
		},
	}
	if pre, ok := env.RawGetString("pre").(*lua.LFunction); ok {
		d.Pre = func(*ecs.World) { e.call(name, "pre", pre) }
	}
	if post, ok := env.RawGetString("post").(*lua.LFunction); ok {
		d.Post = func(*ecs.World) { e.call(name, "post", post) }
	}

	e.log.Debug("loaded lua system",
		zap.String("file", path),
		zap.String("system", name),
		zap.Strings("requires", required),
	)
	return d, nil
}

// call runs fn protected. Script errors are logged and do not stop the pass.
func (e *Engine) call(system, hook string, fn *lua.LFunction, args ...lua.LValue) {
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua system error",
			zap.String("system", system),
			zap.String("hook", hook),
			zap.Error(err),
		)
	}
}

func (e *Engine) pushEntity(id ecs.EntityID) *lua.LUserData {
	ud := e.vm.NewUserData()
	ud.Value = id
	e.vm.SetMetatable(ud, e.vm.GetTypeMetatable(entityTypeName))
	return ud
}

func checkEntity(L *lua.LState, n int) ecs.EntityID {
	ud := L.CheckUserData(n)
	if id, ok := ud.Value.(ecs.EntityID); ok {
		return id
	}
	L.ArgError(n, "entity expected")
	return ecs.Nil
}

func (e *Engine) entityString(L *lua.LState) int {
	id := checkEntity(L, 1)
	L.Push(lua.LString(fmt.Sprintf("entity(%d:%d)", id.Index(), id.Generation())))
	return 1
}

func (e *Engine) entityEqual(L *lua.LState) int {
	L.Push(lua.LBool(checkEntity(L, 1) == checkEntity(L, 2)))
	return 1
}

func (e *Engine) spawn(L *lua.LState) int {
	id, err := e.world.CreateEntity()
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(e.pushEntity(id))
	return 1
}

func (e *Engine) destroy(L *lua.LState) int {
	L.Push(lua.LBool(e.world.DestroyEntity(checkEntity(L, 1))))
	return 1
}

func (e *Engine) mark(L *lua.LState) int {
	e.world.MarkForDestruction(checkEntity(L, 1))
	return 0
}

func (e *Engine) exists(L *lua.LState) int {
	L.Push(lua.LBool(e.world.Exists(checkEntity(L, 1))))
	return 1
}

func (e *Engine) has(L *lua.LState) int {
	L.Push(lua.LBool(e.world.HasByName(checkEntity(L, 1), L.CheckString(2))))
	return 1
}

func (e *Engine) add(L *lua.LState) int {
	L.Push(lua.LBool(e.world.AddByName(checkEntity(L, 1), L.CheckString(2), nil)))
	return 1
}

func (e *Engine) remove(L *lua.LState) int {
	e.world.RemoveByName(checkEntity(L, 1), L.CheckString(2))
	return 0
}

// field returns the 4 bytes at off in an attached component, or nil.
func (e *Engine) field(L *lua.LState) []byte {
	b := e.world.GetByName(checkEntity(L, 1), L.CheckString(2))
	off := L.CheckInt(3)
	if b == nil || off < 0 || off+4 > len(b) {
		return nil
	}
	return b[off : off+4]
}

func (e *Engine) getI32(L *lua.LState) int {
	b := e.field(L)
	if b == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(int32(binary.LittleEndian.Uint32(b))))
	return 1
}

func (e *Engine) setI32(L *lua.LState) int {
	b := e.field(L)
	v := L.CheckInt(4)
	if b == nil {
		L.Push(lua.LFalse)
		return 1
	}
	binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	L.Push(lua.LTrue)
	return 1
}

func (e *Engine) quit(L *lua.LState) int {
	e.world.RequestQuit()
	return 0
}

func (e *Engine) logMessage(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	if e.vm != nil {
		e.vm.Close()
	}
}
