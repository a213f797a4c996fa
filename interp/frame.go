// Package interp implements the bytecode dispatch loop: frame lifecycle,
// stack-machine semantics, and per-opcode handlers.
package interp

import (
	"github.com/flisp-vm/flisp/bytecode"
	"github.com/flisp-vm/flisp/primitive"
	"github.com/flisp-vm/flisp/vmerr"
)

// Frame is one call-stack activation record. It lives in the CallStack's
// own backing array, never on the GC heap, mirroring a dedicated
// frame-stack region kept outside the managed heap.
type Frame struct {
	Function *bytecode.Function
	Module   *bytecode.Module
	Locals   []primitive.Primitive
	Operand  []primitive.Primitive
	PC       int
}

// PushOperand appends v to the operand stack.
func (f *Frame) PushOperand(v primitive.Primitive) {
	f.Operand = append(f.Operand, v)
}

// PopOperand removes and returns the top of the operand stack.
func (f *Frame) PopOperand() (primitive.Primitive, error) {
	if len(f.Operand) == 0 {
		return primitive.Primitive{}, vmerr.New(vmerr.StackUnderflow, "operand stack is empty")
	}
	v := f.Operand[len(f.Operand)-1]
	f.Operand = f.Operand[:len(f.Operand)-1]
	return v, nil
}

// PopArgs pops n values off the operand stack and returns them in
// source/push order (args[0] is the first-pushed argument), matching
// Invoke's "first argument -> locals[0]" convention.
func (f *Frame) PopArgs(n uint64) ([]primitive.Primitive, error) {
	args := make([]primitive.Primitive, n)
	for i := int(n) - 1; i >= 0; i-- {
		v, err := f.PopOperand()
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// Local reads locals[i], failing with IndexOutOfBounds if out of range.
func (f *Frame) Local(i uint64) (primitive.Primitive, error) {
	if i >= uint64(len(f.Locals)) {
		return primitive.Primitive{}, vmerr.New(vmerr.IndexOutOfBounds, "local index %d out of bounds (locals=%d)", i, len(f.Locals))
	}
	return f.Locals[i], nil
}

// SetLocal writes locals[i], failing with IndexOutOfBounds if out of range.
func (f *Frame) SetLocal(i uint64, v primitive.Primitive) error {
	if i >= uint64(len(f.Locals)) {
		return vmerr.New(vmerr.IndexOutOfBounds, "local index %d out of bounds (locals=%d)", i, len(f.Locals))
	}
	f.Locals[i] = v
	return nil
}
