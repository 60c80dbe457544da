package conveyor

import (
	"fmt"

	"github.com/TheBitDrifter/mask"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ScriptSystem runs a Lua function as the system's per-entity update body,
// so behavior can be authored without recompiling the host. Each instance
// owns its own VM: gopher-lua states are not goroutine-safe, and one
// system is always one goroutine within a stage.
//
// The entry function is called once per matching entity with the entity id
// as its single argument. Host capabilities are exposed to the script
// through Bind.
type ScriptSystem struct {
	BaseSystem
	vm    *lua.LState
	entry string
	log   *zap.Logger
}

// NewScriptSystem compiles source into a fresh VM and resolves the entry
// function. The logger may be nil.
func NewScriptSystem(signature mask.Mask, source, entry string, log *zap.Logger) (*ScriptSystem, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState()
	if err := vm.DoString(source); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load script: %w", err)
	}
	fn := vm.GetGlobal(entry)
	if fn.Type() != lua.LTFunction {
		vm.Close()
		return nil, fmt.Errorf("script entry %q is %s, want function", entry, fn.Type())
	}
	log.Debug("script system loaded", zap.String("entry", entry))
	return &ScriptSystem{
		BaseSystem: NewBaseSystem(signature),
		vm:         vm,
		entry:      entry,
		log:        log,
	}, nil
}

// Bind exposes a Go function to the script under the given global name.
func (s *ScriptSystem) Bind(name string, fn lua.LGFunction) {
	s.vm.SetGlobal(name, s.vm.NewFunction(fn))
}

// Update calls the entry function once per matching entity.
func (s *ScriptSystem) Update() error {
	fn := s.vm.GetGlobal(s.entry)
	for id := range s.Entities().All() {
		err := s.vm.CallByParam(lua.P{
			Fn:      fn,
			NRet:    0,
			Protect: true,
		}, lua.LNumber(id))
		if err != nil {
			return fmt.Errorf("script entry %q on entity %d: %w", s.entry, id, err)
		}
	}
	return nil
}

// Close releases the VM. The system must not update afterwards.
func (s *ScriptSystem) Close() {
	s.vm.Close()
}
