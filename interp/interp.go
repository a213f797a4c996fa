package interp

import (
	"github.com/flisp-vm/flisp/bytecode"
	"github.com/flisp-vm/flisp/heap"
	"github.com/flisp-vm/flisp/primitive"
	"github.com/flisp-vm/flisp/registry"
	"github.com/flisp-vm/flisp/vmerr"
	"go.uber.org/zap"
)

// NativeResolver and ModuleResolver look up callees for Invoke: a native by plain name,
// or a module function by (module, function) name. Satisfied by
// *registry.ModuleRegistry and *registry.NativeRegistry together; kept as
// two narrow interfaces so interp never imports the vm package.
type NativeResolver interface {
	Lookup(name string) (registry.NativeFunction, error)
}

type ModuleResolver interface {
	Function(module, function string) (*bytecode.Function, error)
	Module(name string) (*bytecode.Module, bool)
}

// Interpreter runs the fixed 14-opcode dispatch loop over a Heap, a
// CallStack, and the two registries.
type Interpreter struct {
	Heap     *heap.Heap
	Stack    *CallStack
	Modules  ModuleResolver
	Natives  NativeResolver
	Context  any // passed verbatim to every NativeHandler
	Logger   *zap.Logger
	Trace    bool
}

// New constructs an Interpreter. The CallStack is registered with h as a
// root provider so frame locals and operand stacks survive collection.
func New(h *heap.Heap, stack *CallStack, modules ModuleResolver, natives NativeResolver, ctx any, logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	h.AddRootProvider(stack)
	return &Interpreter{Heap: h, Stack: stack, Modules: modules, Natives: natives, Context: ctx, Logger: logger}
}

// Invoke starts execution of module/function with no arguments and runs
// the dispatch loop to completion (typically resolving main/main). It
// returns the value popped by a Return at depth 1; an explicit Halt
// returns Nil.
func (in *Interpreter) Invoke(module, function string) (primitive.Primitive, error) {
	mod, ok := in.Modules.Module(module)
	if !ok {
		return primitive.Primitive{}, vmerr.New(vmerr.UndefinedFunction, "module %q is not registered", module)
	}
	fn, err := in.Modules.Function(module, function)
	if err != nil {
		return primitive.Primitive{}, err
	}
	if _, err := in.Stack.Push(fn, mod); err != nil {
		return primitive.Primitive{}, err
	}
	return in.run()
}

// run drains the dispatch loop from whatever frame is currently on top of
// the stack until an implicit Halt (Return at depth 1) or an explicit Halt
// opcode is reached, or until an opcode handler fails.
func (in *Interpreter) run() (primitive.Primitive, error) {
	result := primitive.Nil()
	for {
		frame := in.Stack.Current()
		if frame == nil {
			return result, vmerr.New(vmerr.StackUnderflow, "dispatch loop reached with no active frame")
		}
		if frame.PC < 0 || frame.PC >= len(frame.Function.Bytecode) {
			err := vmerr.New(vmerr.IndexOutOfBounds, "program counter %d out of bounds (function has %d instructions)", frame.PC, len(frame.Function.Bytecode))
			return result, err.WithContext("", frame.PC, frame.Module.Name, frame.Function.Name)
		}
		bc := frame.Function.Bytecode[frame.PC]

		if in.Trace {
			in.Logger.Debug("dispatch",
				zap.String("module", frame.Module.Name),
				zap.String("function", frame.Function.Name),
				zap.Int("pc", frame.PC),
				zap.String("opcode", bc.Opcode.String()),
				zap.Uint64("arg", bc.Arg),
				zap.Int("depth", in.Stack.Depth()),
			)
		}

		switch bc.Opcode {
		case bytecode.Halt:
			return result, nil

		case bytecode.Return:
			val, err := frame.PopOperand()
			if err != nil {
				return result, in.fault(frame, err)
			}
			if in.Stack.Depth() == 1 {
				return val, nil
			}
			if err := in.Stack.Pop(); err != nil {
				return result, in.fault(frame, err)
			}
			caller := in.Stack.Current()
			caller.PushOperand(val)
			// No PC advance here: Invoke already advanced the caller's PC
			// past itself before transferring control to the callee.
			continue

		case bytecode.LoadNil:
			frame.PushOperand(primitive.Nil())
			frame.PC++

		case bytecode.LoadTrue:
			frame.PushOperand(primitive.Boolean(true))
			frame.PC++

		case bytecode.LoadFalse:
			frame.PushOperand(primitive.Boolean(false))
			frame.PC++

		case bytecode.LoadInteger:
			c, err := in.constant(frame, bc.Arg, bytecode.ConstInteger)
			if err != nil {
				return result, in.fault(frame, err)
			}
			v, err := primitive.Integer(c.Integer)
			if err != nil {
				return result, in.fault(frame, err)
			}
			frame.PushOperand(v)
			frame.PC++

		case bytecode.LoadString:
			c, err := in.constant(frame, bc.Arg, bytecode.ConstString)
			if err != nil {
				return result, in.fault(frame, err)
			}
			offset, err := in.Heap.NewString(c.String)
			if err != nil {
				return result, in.fault(frame, err)
			}
			ref, err := primitive.Reference(offset)
			if err != nil {
				return result, in.fault(frame, err)
			}
			frame.PushOperand(ref)
			frame.PC++

		case bytecode.LoadUnsigned:
			v, err := primitive.Integer(int64(bc.Arg))
			if err != nil {
				return result, in.fault(frame, err)
			}
			frame.PushOperand(v)
			frame.PC++

		case bytecode.LoadLocal:
			v, err := frame.Local(bc.Arg)
			if err != nil {
				return result, in.fault(frame, err)
			}
			frame.PushOperand(v)
			frame.PC++

		case bytecode.StoreLocal:
			v, err := frame.PopOperand()
			if err != nil {
				return result, in.fault(frame, err)
			}
			if err := frame.SetLocal(bc.Arg, v); err != nil {
				return result, in.fault(frame, err)
			}
			frame.PC++

		case bytecode.Pop:
			if _, err := frame.PopOperand(); err != nil {
				return result, in.fault(frame, err)
			}
			frame.PC++

		case bytecode.Jump:
			frame.PC = int(bc.Arg)

		case bytecode.JumpIfFalse:
			v, err := frame.PopOperand()
			if err != nil {
				return result, in.fault(frame, err)
			}
			branch := false
			if v.Type() == primitive.TypeBoolean {
				b, _ := v.AsBoolean()
				branch = !b
			}
			if branch {
				frame.PC = int(bc.Arg)
			} else {
				frame.PC++
			}

		case bytecode.Invoke:
			if err := in.invoke(frame, bc.Arg); err != nil {
				return result, err
			}

		default:
			return result, in.fault(frame, vmerr.New(vmerr.UnknownOpcode, "opcode %d has no handler", bc.Opcode))
		}
	}
}

// constant fetches constant index k from the current frame's module,
// asserting it has kind want.
func (in *Interpreter) constant(frame *Frame, k uint64, want bytecode.ConstantKind) (bytecode.Constant, error) {
	consts := frame.Module.Constants
	if k >= uint64(len(consts)) {
		return bytecode.Constant{}, vmerr.New(vmerr.IndexOutOfBounds, "constant index %d out of bounds (pool has %d entries)", k, len(consts))
	}
	c := consts[k]
	if c.Kind != want {
		return bytecode.Constant{}, vmerr.New(vmerr.ConstantTypeMismatch, "constant %d is not the expected kind", k)
	}
	return c, nil
}

// invoke implements the Invoke opcode's full resolution and call-linkage
// algorithm. Natives are resolved first by plain function
// name (the registry is a flat, module-agnostic namespace); failing that,
// the module_name/function_name pair is resolved against the module
// registry. The caller's PC is advanced only once the call can no longer
// fail at this Invoke: after a native handler returns, or just before a
// callee frame is pushed (the push may move the frame array, so the
// caller's frame is updated first, and a failed push restores it) so that
// the callee resumes its caller at the correct instruction on Return.
func (in *Interpreter) invoke(frame *Frame, constIdx uint64) error {
	c, err := in.constant(frame, constIdx, bytecode.ConstInvocation)
	if err != nil {
		return in.fault(frame, err)
	}
	inv := c.Invocation

	moduleNameConst, err := in.constant(frame, inv.ModuleNameIndex, bytecode.ConstString)
	if err != nil {
		return in.fault(frame, err)
	}
	functionNameConst, err := in.constant(frame, inv.FunctionNameIndex, bytecode.ConstString)
	if err != nil {
		return in.fault(frame, err)
	}
	moduleName := string(moduleNameConst.String)
	functionName := string(functionNameConst.String)

	if native, nerr := in.Natives.Lookup(functionName); nerr == nil {
		if uint64(native.Arity) != inv.ArgCount {
			return in.fault(frame, vmerr.New(vmerr.ArityMismatch, "native %q expects %d arguments, got %d", functionName, native.Arity, inv.ArgCount))
		}
		args, err := frame.PopArgs(inv.ArgCount)
		if err != nil {
			return in.fault(frame, err)
		}
		result, err := native.Handler(in.Context, args)
		if err != nil {
			return in.fault(frame, err)
		}
		frame.PushOperand(result)
		frame.PC++
		return nil
	}

	fn, err := in.Modules.Function(moduleName, functionName)
	if err != nil {
		return in.fault(frame, err)
	}
	if fn.Arity != inv.ArgCount {
		return in.fault(frame, vmerr.New(vmerr.ArityMismatch, "%s/%s expects %d arguments, got %d", moduleName, functionName, fn.Arity, inv.ArgCount))
	}
	args, err := frame.PopArgs(inv.ArgCount)
	if err != nil {
		return in.fault(frame, err)
	}
	mod, _ := in.Modules.Module(moduleName)
	frame.PC++

	callee, err := in.Stack.Push(fn, mod)
	if err != nil {
		frame.PC-- // Push failed without touching the frame array; report at the Invoke
		return in.fault(frame, err)
	}
	for i, a := range args {
		callee.Locals[i] = a
	}
	return nil
}

// fault wraps err with the current frame's dispatch context: the opcode at
// frame.PC ("Invoke" if frame.PC is out of range), the pc, and the owning
// module/function names. Invoke-path faults are raised while frame.PC
// still points at the Invoke.
func (in *Interpreter) fault(frame *Frame, err error) error {
	if f, ok := err.(*vmerr.Fault); ok {
		op := "Invoke"
		if frame.PC >= 0 && frame.PC < len(frame.Function.Bytecode) {
			op = frame.Function.Bytecode[frame.PC].Opcode.String()
		}
		return f.WithContext(op, frame.PC, frame.Module.Name, frame.Function.Name)
	}
	return err
}
