// Package natives implements the host-provided native function library:
// arithmetic, comparison, and output primitives sufficient to drive
// end-to-end programs, installed into a *registry.NativeRegistry by
// Register (vm.New does not install them itself).
package natives

import (
	"fmt"

	"github.com/flisp-vm/flisp/heap"
	"github.com/flisp-vm/flisp/primitive"
	"github.com/flisp-vm/flisp/registry"
	"github.com/flisp-vm/flisp/vmerr"
	"go.uber.org/zap"
)

// Context is the narrow surface a NativeHandler needs from its host VM.
// *vm.VM satisfies this structurally; natives never imports vm, so there
// is no import cycle between natives, vm, and registry.
type Context interface {
	Heap() *heap.Heap
	Logger() *zap.Logger
}

// Register installs the standard library into r. Callers that want a
// smaller or different surface can register a subset directly against
// *registry.NativeRegistry instead of calling this.
func Register(r *registry.NativeRegistry) error {
	for _, fn := range standard {
		if err := r.Register(fn); err != nil {
			return err
		}
	}
	return nil
}

var standard = []registry.NativeFunction{
	{Name: "add", Arity: 2, Handler: arith(func(a, b int64) int64 { return a + b })},
	{Name: "sub", Arity: 2, Handler: arith(func(a, b int64) int64 { return a - b })},
	{Name: "mul", Arity: 2, Handler: arith(func(a, b int64) int64 { return a * b })},
	{Name: "lt", Arity: 2, Handler: compare(func(a, b int64) bool { return a < b })},
	{Name: "le", Arity: 2, Handler: compare(func(a, b int64) bool { return a <= b })},
	{Name: "eq", Arity: 2, Handler: compare(func(a, b int64) bool { return a == b })},
	{Name: "println", Arity: 1, Handler: println_},
	{Name: "strlen", Arity: 1, Handler: strlen},
}

func integerArg(args []primitive.Primitive, i int) (int64, error) {
	v, err := args[i].AsInteger()
	if err != nil {
		return 0, vmerr.New(vmerr.TypeMismatch, "native argument %d: %v", i, err)
	}
	return v, nil
}

func arith(op func(a, b int64) int64) registry.NativeHandler {
	return func(ctx any, args []primitive.Primitive) (primitive.Primitive, error) {
		a, err := integerArg(args, 0)
		if err != nil {
			return primitive.Primitive{}, err
		}
		b, err := integerArg(args, 1)
		if err != nil {
			return primitive.Primitive{}, err
		}
		v, err := primitive.Integer(op(a, b))
		if err != nil {
			return primitive.Primitive{}, err
		}
		return v, nil
	}
}

func compare(op func(a, b int64) bool) registry.NativeHandler {
	return func(ctx any, args []primitive.Primitive) (primitive.Primitive, error) {
		a, err := integerArg(args, 0)
		if err != nil {
			return primitive.Primitive{}, err
		}
		b, err := integerArg(args, 1)
		if err != nil {
			return primitive.Primitive{}, err
		}
		return primitive.Boolean(op(a, b)), nil
	}
}

// println_ writes the argument's display form to stdout, returning Nil;
// nothing is written to the VM's logger. println is a predeclared Go
// builtin, so the registry name ("println") is set at the table above, not
// here.
func println_(ctx any, args []primitive.Primitive) (primitive.Primitive, error) {
	hostCtx, ok := ctx.(Context)
	if !ok {
		return primitive.Primitive{}, vmerr.New(vmerr.TypeMismatch, "println requires a natives.Context")
	}
	fmt.Println(Display(hostCtx.Heap(), args[0]))
	return primitive.Nil(), nil
}

func strlen(ctx any, args []primitive.Primitive) (primitive.Primitive, error) {
	hostCtx, ok := ctx.(Context)
	if !ok {
		return primitive.Primitive{}, vmerr.New(vmerr.TypeMismatch, "strlen requires a natives.Context")
	}
	offset, err := args[0].AsReference()
	if err != nil {
		return primitive.Primitive{}, vmerr.New(vmerr.TypeMismatch, "strlen argument: %v", err)
	}
	n := hostCtx.Heap().StringLength(offset)
	return primitive.Integer(n)
}

// Display renders v as text: Strings are read directly off the heap,
// every other kind falls back to its tagged-value form. Used by println
// and by the CLI's execute command to print a run's result.
func Display(h *heap.Heap, v primitive.Primitive) string {
	switch v.Type() {
	case primitive.TypeReference:
		offset, _ := v.AsReference()
		if h.TypeOf(offset) == heap.TagString {
			return string(h.StringBytes(offset))
		}
		return fmt.Sprintf("#<%s@%d>", h.TypeOf(offset), offset)
	case primitive.TypeInteger:
		i, _ := v.AsInteger()
		return fmt.Sprintf("%d", i)
	case primitive.TypeBoolean:
		b, _ := v.AsBoolean()
		return fmt.Sprintf("%t", b)
	case primitive.TypeNil:
		return "nil"
	default:
		return fmt.Sprintf("%v", v.Raw())
	}
}
