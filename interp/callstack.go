package interp

import (
	"github.com/flisp-vm/flisp/bytecode"
	"github.com/flisp-vm/flisp/primitive"
	"github.com/flisp-vm/flisp/vmerr"
)

// DefaultMaxDepth is the call stack's default bound.
const DefaultMaxDepth = 4096

// CallStack is the bounded LIFO of activation records that backs the
// interpreter's Invoke/Return opcodes. It implements heap.RootProvider so
// every live frame's locals and operand stack are scanned as GC roots
// without the mutator needing per-frame Handles.
type CallStack struct {
	frames   []Frame
	maxDepth int
}

// NewCallStack constructs an empty stack bounded at maxDepth frames. A
// maxDepth of 0 selects DefaultMaxDepth.
func NewCallStack(maxDepth int) *CallStack {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &CallStack{maxDepth: maxDepth}
}

// Depth reports the number of live frames.
func (c *CallStack) Depth() int { return len(c.frames) }

// Push allocates and activates a new frame for fn, bound to mod, with
// fn.Locals Nil-initialized local slots and an empty operand stack.
// Fails with StackOverflow once maxDepth frames are already live.
func (c *CallStack) Push(fn *bytecode.Function, mod *bytecode.Module) (*Frame, error) {
	if len(c.frames) >= c.maxDepth {
		return nil, vmerr.New(vmerr.StackOverflow, "call stack exceeded max depth %d", c.maxDepth)
	}
	locals := make([]primitive.Primitive, fn.Locals)
	for i := range locals {
		locals[i] = primitive.Nil()
	}
	c.frames = append(c.frames, Frame{
		Function: fn,
		Module:   mod,
		Locals:   locals,
	})
	return &c.frames[len(c.frames)-1], nil
}

// Pop discards the top frame, failing with StackUnderflow if the stack is
// empty.
func (c *CallStack) Pop() error {
	if len(c.frames) == 0 {
		return vmerr.New(vmerr.StackUnderflow, "call stack is empty")
	}
	c.frames = c.frames[:len(c.frames)-1]
	return nil
}

// Current returns the top frame, or nil if the stack is empty.
func (c *CallStack) Current() *Frame {
	if len(c.frames) == 0 {
		return nil
	}
	return &c.frames[len(c.frames)-1]
}

// ForEachRoot implements heap.RootProvider: every local and every operand
// stack cell of every live frame is a GC root.
func (c *CallStack) ForEachRoot(fn func(*primitive.Primitive)) {
	for i := range c.frames {
		f := &c.frames[i]
		for j := range f.Locals {
			fn(&f.Locals[j])
		}
		for j := range f.Operand {
			fn(&f.Operand[j])
		}
	}
}
