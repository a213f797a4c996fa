package moduleio_test

import (
	"bytes"
	"testing"

	"github.com/flisp-vm/flisp/bytecode"
	"github.com/flisp-vm/flisp/moduleio"
	"github.com/flisp-vm/flisp/vmerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleModule() *bytecode.Module {
	return &bytecode.Module{
		Version: moduleio.CompatibleVersion,
		Name:    "main",
		Imports: []string{"io"},
		Exports: []string{"main"},
		Functions: []bytecode.Function{
			{
				Name:   "main",
				Arity:  0,
				Locals: 1,
				Bytecode: []bytecode.Bytecode{
					{Opcode: bytecode.LoadInteger, Arg: 0},
					{Opcode: bytecode.StoreLocal, Arg: 0},
					{Opcode: bytecode.LoadLocal, Arg: 0},
					{Opcode: bytecode.Return},
					{Opcode: bytecode.Halt},
				},
			},
		},
		Constants: []bytecode.Constant{
			{Kind: bytecode.ConstInteger, Integer: 42},
			{Kind: bytecode.ConstString, String: []byte("hello")},
			{Kind: bytecode.ConstInvocation, Invocation: bytecode.Invocation{ModuleNameIndex: 1, FunctionNameIndex: 1, ArgCount: 2}},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	m := sampleModule()
	var buf bytes.Buffer
	require.NoError(t, moduleio.Encode(&buf, m))

	decoded, err := moduleio.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestIncompatibleVersion(t *testing.T) {
	m := sampleModule()
	m.Version = 2
	var buf bytes.Buffer
	require.NoError(t, moduleio.Encode(&buf, m))

	_, err := moduleio.Decode(&buf)
	require.Error(t, err)
	assert.True(t, vmerr.Is(err, vmerr.IncompatibleVersion))
}
