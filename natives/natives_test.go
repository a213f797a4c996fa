package natives_test

import (
	"testing"

	"github.com/flisp-vm/flisp/heap"
	"github.com/flisp-vm/flisp/natives"
	"github.com/flisp-vm/flisp/primitive"
	"github.com/flisp-vm/flisp/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCtx struct {
	h *heap.Heap
}

func (f fakeCtx) Heap() *heap.Heap    { return f.h }
func (f fakeCtx) Logger() *zap.Logger { return zap.NewNop() }

func TestRegisterAndArithmetic(t *testing.T) {
	r := registry.NewNativeRegistry()
	require.NoError(t, natives.Register(r))

	add, err := r.Lookup("add")
	require.NoError(t, err)
	a := primitive.MustInteger(2)
	b := primitive.MustInteger(3)
	v, err := add.Handler(nil, []primitive.Primitive{a, b})
	require.NoError(t, err)
	n, err := v.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestLt(t *testing.T) {
	r := registry.NewNativeRegistry()
	require.NoError(t, natives.Register(r))
	lt, err := r.Lookup("lt")
	require.NoError(t, err)
	v, err := lt.Handler(nil, []primitive.Primitive{primitive.MustInteger(1), primitive.MustInteger(2)})
	require.NoError(t, err)
	b, err := v.AsBoolean()
	require.NoError(t, err)
	assert.True(t, b)
}

func TestStrlen(t *testing.T) {
	h := heap.New(4096, zap.NewNop())
	r := registry.NewNativeRegistry()
	require.NoError(t, natives.Register(r))
	strlen, err := r.Lookup("strlen")
	require.NoError(t, err)

	offset, err := h.NewString([]byte("hello"))
	require.NoError(t, err)
	ref, err := primitive.Reference(offset)
	require.NoError(t, err)

	v, err := strlen.Handler(fakeCtx{h: h}, []primitive.Primitive{ref})
	require.NoError(t, err)
	n, err := v.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}
