package vm_test

import (
	"testing"

	"github.com/flisp-vm/flisp/bytecode"
	"github.com/flisp-vm/flisp/natives"
	"github.com/flisp-vm/flisp/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loopCounterModule() *bytecode.Module {
	// i := 0; while (lt i 5) { i := (add i 1) }; return i
	return &bytecode.Module{
		Version: 1,
		Name:    "main",
		Exports: []string{"main"},
		Constants: []bytecode.Constant{
			{Kind: bytecode.ConstInteger, Integer: 0},                                                                              // 0
			{Kind: bytecode.ConstInteger, Integer: 5},                                                                              // 1
			{Kind: bytecode.ConstInteger, Integer: 1},                                                                              // 2
			{Kind: bytecode.ConstString, String: []byte("native")},                                                                // 3
			{Kind: bytecode.ConstString, String: []byte("lt")},                                                                    // 4
			{Kind: bytecode.ConstString, String: []byte("add")},                                                                   // 5
			{Kind: bytecode.ConstInvocation, Invocation: bytecode.Invocation{ModuleNameIndex: 3, FunctionNameIndex: 4, ArgCount: 2}}, // 6: lt
			{Kind: bytecode.ConstInvocation, Invocation: bytecode.Invocation{ModuleNameIndex: 3, FunctionNameIndex: 5, ArgCount: 2}}, // 7: add
		},
		Functions: []bytecode.Function{
			{
				Name:   "main",
				Arity:  0,
				Locals: 1,
				Bytecode: []bytecode.Bytecode{
					{Opcode: bytecode.LoadInteger, Arg: 0}, // 0: push 0
					{Opcode: bytecode.StoreLocal, Arg: 0},  // 1: i = 0
					// loop:
					{Opcode: bytecode.LoadLocal, Arg: 0},   // 2
					{Opcode: bytecode.LoadInteger, Arg: 1}, // 3: push 5
					{Opcode: bytecode.Invoke, Arg: 6},      // 4: lt(i, 5)
					{Opcode: bytecode.JumpIfFalse, Arg: 11}, // 5: -> done
					{Opcode: bytecode.LoadLocal, Arg: 0},    // 6
					{Opcode: bytecode.LoadInteger, Arg: 2},  // 7: push 1
					{Opcode: bytecode.Invoke, Arg: 7},       // 8: add(i, 1)
					{Opcode: bytecode.StoreLocal, Arg: 0},   // 9: i = ...
					{Opcode: bytecode.Jump, Arg: 2},         // 10: -> loop
					// done:
					{Opcode: bytecode.LoadLocal, Arg: 0}, // 11
					{Opcode: bytecode.Return},            // 12
				},
			},
		},
	}
}

func TestLoopCounterScenario(t *testing.T) {
	v := vm.New(1 << 16)
	require.NoError(t, natives.Register(v.Natives()))
	require.NoError(t, v.RegisterModule(loopCounterModule()))

	result, err := v.Run("main", "main")
	require.NoError(t, err)
	n, err := result.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestGCStressSurvivesStringAllocation(t *testing.T) {
	v := vm.New(256, vm.WithGCStress(true))
	require.NoError(t, natives.Register(v.Natives()))

	mod := &bytecode.Module{
		Version: 1,
		Name:    "main",
		Exports: []string{"main"},
		Constants: []bytecode.Constant{
			{Kind: bytecode.ConstString, String: []byte("hi")},
			{Kind: bytecode.ConstString, String: []byte("native")},
			{Kind: bytecode.ConstString, String: []byte("strlen")},
			{Kind: bytecode.ConstInvocation, Invocation: bytecode.Invocation{ModuleNameIndex: 1, FunctionNameIndex: 2, ArgCount: 1}},
		},
		Functions: []bytecode.Function{
			{
				Name:  "main",
				Arity: 0,
				Bytecode: []bytecode.Bytecode{
					{Opcode: bytecode.LoadString, Arg: 0},
					{Opcode: bytecode.Invoke, Arg: 3},
					{Opcode: bytecode.Return},
				},
			},
		},
	}
	require.NoError(t, v.RegisterModule(mod))

	result, err := v.Run("main", "main")
	require.NoError(t, err)
	n, err := result.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
