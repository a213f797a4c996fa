// Package registry implements the Module Registry and Native Function
// Registry: keyed, append-only stores, internally synchronized
// so host code may register concurrently at setup time. Every lookup takes
// the same mutex as registration, including the interpreter's lookups
// during dispatch; reads are not lock-free.
package registry

import (
	"sync"

	"github.com/dolthub/swiss"
	"github.com/flisp-vm/flisp/bytecode"
	"github.com/flisp-vm/flisp/primitive"
	"github.com/flisp-vm/flisp/vmerr"
)

// funcKey identifies a function by its owning module.
type funcKey struct {
	module   string
	function string
}

// ModuleRegistry is a keyed append-only store of modules, plus a secondary
// (module, function) -> *Function index populated at registration time.
type ModuleRegistry struct {
	mu        sync.Mutex
	modules   *swiss.Map[string, *bytecode.Module]
	functions *swiss.Map[funcKey, *bytecode.Function]
}

// NewModuleRegistry constructs an empty registry.
func NewModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{
		modules:   swiss.NewMap[string, *bytecode.Module](16),
		functions: swiss.NewMap[funcKey, *bytecode.Function](64),
	}
}

// Register inserts m, failing with DuplicateModule if its name is already
// registered. Every function of m is indexed for O(1) (module,function)
// lookup via a swiss table; see DESIGN.md.
func (r *ModuleRegistry) Register(m *bytecode.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules.Get(m.Name); ok {
		return vmerr.New(vmerr.DuplicateModule, "module %q already registered", m.Name)
	}
	r.modules.Put(m.Name, m)
	for i := range m.Functions {
		r.functions.Put(funcKey{module: m.Name, function: m.Functions[i].Name}, &m.Functions[i])
	}
	return nil
}

// Module returns the module registered under name.
func (r *ModuleRegistry) Module(name string) (*bytecode.Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modules.Get(name)
}

// Function resolves (module, function) to its compiled Function, failing
// with UndefinedFunction if either name is unknown.
func (r *ModuleRegistry) Function(module, function string) (*bytecode.Function, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.functions.Get(funcKey{module: module, function: function})
	if !ok {
		return nil, vmerr.New(vmerr.UndefinedFunction, "%s/%s is not registered", module, function)
	}
	return fn, nil
}

// NativeHandler is a host-provided function: it receives the popped
// arguments (already validated against Arity by the interpreter) and a
// context, and returns the value to push, or an error.
type NativeHandler func(ctx any, args []primitive.Primitive) (primitive.Primitive, error)

// NativeFunction is one registered entry.
type NativeFunction struct {
	Name    string
	Arity   int
	Handler NativeHandler
}

// NativeRegistry is a keyed append-only store of native functions.
type NativeRegistry struct {
	mu      sync.Mutex
	entries *swiss.Map[string, NativeFunction]
}

// NewNativeRegistry constructs an empty registry.
func NewNativeRegistry() *NativeRegistry {
	return &NativeRegistry{entries: swiss.NewMap[string, NativeFunction](32)}
}

// Register adds fn, failing if its name is already registered.
func (r *NativeRegistry) Register(fn NativeFunction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries.Get(fn.Name); ok {
		return vmerr.New(vmerr.DuplicateModule, "native %q already registered", fn.Name)
	}
	r.entries.Put(fn.Name, fn)
	return nil
}

// Lookup resolves name to its NativeFunction, failing with UndefinedNative
// if absent.
func (r *NativeRegistry) Lookup(name string) (NativeFunction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.entries.Get(name)
	if !ok {
		return NativeFunction{}, vmerr.New(vmerr.UndefinedNative, "native %q is not registered", name)
	}
	return fn, nil
}
