// Package vmerr defines the VM's error taxonomy and the single
// Fault type every subsystem uses to surface structured failures to the
// host boundary.
package vmerr

import (
	"errors"
	"fmt"
)

// Kind classifies a Fault by origin.
type Kind string

const (
	IncompatibleVersion  Kind = "IncompatibleVersion"
	UnknownOpcode        Kind = "UnknownOpcode"
	BadBytecodeEncoding  Kind = "BadBytecodeEncoding"
	DuplicateModule      Kind = "DuplicateModule"
	UndefinedNative      Kind = "UndefinedNative"
	UndefinedFunction    Kind = "UndefinedFunction"
	TypeMismatch         Kind = "TypeMismatch"
	ConstantTypeMismatch Kind = "ConstantTypeMismatch"
	ArityMismatch        Kind = "ArityMismatch"
	IndexOutOfBounds     Kind = "IndexOutOfBounds"
	StackUnderflow       Kind = "StackUnderflow"
	StackOverflow        Kind = "StackOverflow"
	OutOfMemory          Kind = "OutOfMemory"
	AlignmentError       Kind = "AlignmentError"
	ValueOverflow        Kind = "ValueOverflow"
	IoError              Kind = "IoError"
)

// Fault is the single structured error type returned by every package in
// this module. Interpreter faults carry the dispatch context (opcode, pc,
// module, function); faults raised outside dispatch (module loading,
// registry setup, heap construction) leave those fields zero.
type Fault struct {
	Kind     Kind
	Cause    string
	Opcode   string
	PC       int
	Module   string
	Function string
}

func (f *Fault) Error() string {
	if f.Module == "" && f.Function == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Cause)
	}
	return fmt.Sprintf("%s: %s (at %s:%s pc=%d op=%s)", f.Kind, f.Cause, f.Module, f.Function, f.PC, f.Opcode)
}

// New builds a bare Fault with no dispatch context.
func New(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Cause: fmt.Sprintf(format, args...)}
}

// WithContext returns a copy of f annotated with the frame it failed in.
func (f *Fault) WithContext(opcode string, pc int, module, function string) *Fault {
	cp := *f
	cp.Opcode = opcode
	cp.PC = pc
	cp.Module = module
	cp.Function = function
	return &cp
}

// Is reports whether err is a *Fault of the given kind.
func Is(err error, kind Kind) bool {
	var f *Fault
	if !errors.As(err, &f) {
		return false
	}
	return f.Kind == kind
}
