package asmtext_test

import (
	"strings"
	"testing"

	"github.com/flisp-vm/flisp/asmtext"
	"github.com/flisp-vm/flisp/bytecode"
	"github.com/flisp-vm/flisp/vmerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
; identity return
@version 1
@module main
@export main

@function main
@arity 0
@locals 0
@integer 42
LoadInteger 0
Return
Halt
@endfunction
`

func TestAssembleIdentityReturn(t *testing.T) {
	m, err := asmtext.Assemble(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.Version)
	assert.Equal(t, "main", m.Name)
	assert.Equal(t, []string{"main"}, m.Exports)
	require.Len(t, m.Functions, 1)
	fn := m.Functions[0]
	assert.Equal(t, "main", fn.Name)
	require.Len(t, fn.Bytecode, 3)
	assert.Equal(t, bytecode.LoadInteger, fn.Bytecode[0].Opcode)
	assert.Equal(t, uint64(0), fn.Bytecode[0].Arg)
	assert.Equal(t, bytecode.Return, fn.Bytecode[1].Opcode)
	assert.Equal(t, bytecode.Halt, fn.Bytecode[2].Opcode)
	require.Len(t, m.Constants, 1)
	assert.Equal(t, int64(42), m.Constants[0].Integer)
}

func TestAssembleUnknownOpcode(t *testing.T) {
	src := "@function f\n@arity 0\n@locals 0\nBogusOp\n@endfunction\n"
	_, err := asmtext.Assemble(strings.NewReader(src))
	require.Error(t, err)
	assert.True(t, vmerr.Is(err, vmerr.UnknownOpcode))
}

func TestAssembleStringConstantWithSpaces(t *testing.T) {
	src := `@string 11 hello world
`
	m, err := asmtext.Assemble(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, m.Constants, 1)
	assert.Equal(t, "hello world", string(m.Constants[0].String))
}
