// Package vm wires the heap, interpreter, and registries into a single
// embeddable VM instance, configured with a functional-options style.
package vm

import (
	"io"

	"github.com/flisp-vm/flisp/bytecode"
	"github.com/flisp-vm/flisp/heap"
	"github.com/flisp-vm/flisp/interp"
	"github.com/flisp-vm/flisp/moduleio"
	"github.com/flisp-vm/flisp/primitive"
	"github.com/flisp-vm/flisp/registry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VM bundles one heap, one call stack, the two registries, and the
// dispatch loop that runs over them.
type VM struct {
	id     uuid.UUID
	heap   *heap.Heap
	stack  *interp.CallStack
	mods   *registry.ModuleRegistry
	nats   *registry.NativeRegistry
	interp *interp.Interpreter
	logger *zap.Logger
	trace  bool
}

// Option configures a VM at construction time.
type Option func(*config)

type config struct {
	logger    *zap.Logger
	maxDepth  int
	trace     bool
	gcOnEvery bool
}

// WithLogger installs a structured logger (defaults to a no-op logger).
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithMaxCallDepth overrides the call stack's default bound.
func WithMaxCallDepth(depth int) Option {
	return func(c *config) { c.maxDepth = depth }
}

// WithTrace enables per-opcode debug-level tracing.
func WithTrace(trace bool) Option {
	return func(c *config) { c.trace = trace }
}

// WithGCStress forces a collection before every single heap allocation.
// This is a testing/debugging aid for exercising the collector's root
// scanning far more often than allocation pressure alone would trigger,
// to catch a stale-reference bug deterministically.
func WithGCStress(stress bool) Option {
	return func(c *config) { c.gcOnEvery = stress }
}

// New constructs a VM with heapSize bytes per semi-space.
func New(heapSize uint64, opts ...Option) *VM {
	c := &config{logger: zap.NewNop(), maxDepth: interp.DefaultMaxDepth}
	for _, opt := range opts {
		opt(c)
	}

	h := heap.New(heapSize, c.logger)
	if c.gcOnEvery {
		h.SetStressMode(true)
	}
	stack := interp.NewCallStack(c.maxDepth)
	mods := registry.NewModuleRegistry()
	nats := registry.NewNativeRegistry()

	v := &VM{
		id:     uuid.New(),
		heap:   h,
		stack:  stack,
		mods:   mods,
		nats:   nats,
		logger: c.logger,
		trace:  c.trace,
	}
	it := interp.New(h, stack, mods, nats, v, c.logger)
	it.Trace = c.trace
	v.interp = it
	return v
}

// ID returns this instance's unique identity tag, used to correlate log
// lines across concurrently running VMs.
func (v *VM) ID() uuid.UUID { return v.id }

// Heap exposes the underlying heap, satisfying natives.Context.
func (v *VM) Heap() *heap.Heap { return v.heap }

// Logger exposes the VM's logger, satisfying natives.Context.
func (v *VM) Logger() *zap.Logger { return v.logger }

// Natives exposes the native function registry so callers can install a
// standard library (e.g. natives.Register(v.Natives())) or their own
// custom functions directly.
func (v *VM) Natives() *registry.NativeRegistry { return v.nats }

// LoadModule decodes a binary module image from r and registers it.
func (v *VM) LoadModule(r io.Reader) (*bytecode.Module, error) {
	m, err := moduleio.Decode(r)
	if err != nil {
		return nil, err
	}
	if err := v.mods.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RegisterModule registers an already-parsed module (the assembler's
// output, for instance).
func (v *VM) RegisterModule(m *bytecode.Module) error {
	return v.mods.Register(m)
}

// RegisterNative installs a host function under name.
func (v *VM) RegisterNative(fn registry.NativeFunction) error {
	return v.nats.Register(fn)
}

// Run resolves module/function and executes it to completion.
func (v *VM) Run(module, function string) (primitive.Primitive, error) {
	v.logger.Debug("run", zap.String("vm", v.id.String()), zap.String("module", module), zap.String("function", function))
	return v.interp.Invoke(module, function)
}
