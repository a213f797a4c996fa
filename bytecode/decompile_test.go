package bytecode_test

import (
	"strings"
	"testing"

	"github.com/flisp-vm/flisp/bytecode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecompileInlinesConstants(t *testing.T) {
	m := &bytecode.Module{
		Version: 1,
		Name:    "main",
		Exports: []string{"main"},
		Constants: []bytecode.Constant{
			{Kind: bytecode.ConstInteger, Integer: 42},
		},
		Functions: []bytecode.Function{
			{
				Name:  "main",
				Arity: 0,
				Bytecode: []bytecode.Bytecode{
					{Opcode: bytecode.LoadInteger, Arg: 0},
					{Opcode: bytecode.Return},
				},
			},
		},
	}

	var buf strings.Builder
	require.NoError(t, bytecode.Decompile(&buf, m))
	out := buf.String()
	assert.Contains(t, out, "module main (version 1)")
	assert.Contains(t, out, "function main")
	assert.Contains(t, out, "LoadInteger")
	assert.Contains(t, out, "; Integer 42")
}
