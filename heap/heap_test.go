package heap_test

import (
	"testing"

	"github.com/flisp-vm/flisp/heap"
	"github.com/flisp-vm/flisp/primitive"
	"github.com/flisp-vm/flisp/vmerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHeap(t *testing.T, size uint64) *heap.Heap {
	t.Helper()
	return heap.New(size, nil)
}

func TestAllocateAlignment(t *testing.T) {
	h := newHeap(t, 4096)
	_, err := h.Allocate(7)
	require.Error(t, err)
	assert.True(t, vmerr.Is(err, vmerr.AlignmentError))
}

func TestPairRoundTrip(t *testing.T) {
	h := newHeap(t, 4096)
	a := h.NewHandle(primitive.MustInteger(1))
	b := h.NewHandle(primitive.MustInteger(2))
	defer a.Release()
	defer b.Release()

	off, err := h.NewPair(a, b)
	require.NoError(t, err)
	assert.Equal(t, heap.TagPair, h.TypeOf(off))

	first, err := h.PairFirst(off).AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	second, err := h.PairSecond(off).AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)
}

func TestStringRoundTrip(t *testing.T) {
	h := newHeap(t, 4096)
	off, err := h.NewString([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), h.StringLength(off))
	assert.Equal(t, []byte("hello"), h.StringBytes(off))
}

func TestVectorBoundsChecked(t *testing.T) {
	h := newHeap(t, 4096)
	off, err := h.NewVector(3)
	require.NoError(t, err)
	require.NoError(t, h.VectorSet(off, 2, primitive.MustInteger(9)))

	_, err = h.VectorGet(off, 3)
	require.Error(t, err)
	assert.True(t, vmerr.Is(err, vmerr.IndexOutOfBounds))
}

func TestGCPreservesHandleValuesAndIdentity(t *testing.T) {
	// A heap just big enough for a handful of Pairs, forcing collection.
	h := newHeap(t, 512)

	first := h.NewHandle(primitive.Nil())
	defer first.Release()

	aHandle := h.NewHandle(primitive.MustInteger(1))
	bHandle := h.NewHandle(primitive.MustInteger(2))
	off, err := h.NewPair(aHandle, bHandle)
	require.NoError(t, err)
	first.Set(primitive.MustReference(off))
	aHandle.Release()
	bHandle.Release()

	second := h.NewHandle(first.Get()) // same Reference as first, pre-GC
	defer second.Release()

	// Allocate enough garbage to force at least one collection.
	for i := 0; i < 40; i++ {
		x := h.NewHandle(primitive.MustInteger(int64(i)))
		y := h.NewHandle(primitive.MustInteger(int64(i + 1)))
		_, err := h.NewPair(x, y)
		require.NoError(t, err)
		x.Release()
		y.Release()
	}

	// first and second must still be pointer-equal to each other (pointer
	// identity preserved under GC) and still reference a valid Pair with
	// the original slot values.
	assert.True(t, first.Get().ShallowEquals(second.Get()))

	pairOff, err := first.Get().AsReference()
	require.NoError(t, err)
	assert.Equal(t, heap.TagPair, h.TypeOf(pairOff))
	v1, err := h.PairFirst(pairOff).AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)
	v2, err := h.PairSecond(pairOff).AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2)

	assert.True(t, h.Collections() > 0, "expected at least one collection to have run")
}

func TestMapInsertLookup(t *testing.T) {
	h := newHeap(t, 4096)
	mapOff, err := h.NewMap()
	require.NoError(t, err)
	mapHandle := h.NewHandle(primitive.MustReference(mapOff))
	defer mapHandle.Release()

	key := h.NewHandle(primitive.MustInteger(7))
	val := h.NewHandle(primitive.MustInteger(100))
	require.NoError(t, h.MapInsert(mapHandle, key, val))
	assert.Equal(t, int64(1), h.MapSize(mapOff))

	got, ok, err := h.MapLookup(mapHandle, key)
	require.NoError(t, err)
	require.True(t, ok)
	v, _ := got.AsInteger()
	assert.Equal(t, int64(100), v)

	// Re-insert with the same key updates, size unchanged.
	val2 := h.NewHandle(primitive.MustInteger(200))
	require.NoError(t, h.MapInsert(mapHandle, key, val2))
	assert.Equal(t, int64(1), h.MapSize(mapOff))
	got, ok, err = h.MapLookup(mapHandle, key)
	require.NoError(t, err)
	require.True(t, ok)
	v, _ = got.AsInteger()
	assert.Equal(t, int64(200), v)

	// Lookup of absent key returns not-found.
	missing := h.NewHandle(primitive.MustInteger(999))
	_, ok, err = h.MapLookup(mapHandle, missing)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStackLIFO(t *testing.T) {
	h := newHeap(t, 4096)
	stackOff, err := h.NewStack()
	require.NoError(t, err)
	stackHandle := h.NewHandle(primitive.MustReference(stackOff))
	defer stackHandle.Release()

	for i := int64(1); i <= 3; i++ {
		v := h.NewHandle(primitive.MustInteger(i))
		require.NoError(t, h.StackPush(stackHandle, v))
		v.Release()
	}
	assert.Equal(t, int64(3), h.StackSize(stackOff))

	for i := int64(3); i >= 1; i-- {
		v, ok, err := h.StackPop(stackHandle)
		require.NoError(t, err)
		require.True(t, ok)
		got, _ := v.AsInteger()
		assert.Equal(t, i, got)
	}
	assert.Equal(t, int64(0), h.StackSize(stackOff))
	_, ok, err := h.StackPop(stackHandle)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSymbolInternIdempotent(t *testing.T) {
	h := newHeap(t, 4096)
	st, err := h.NewSymbolTable()
	require.NoError(t, err)

	s1Off, err := h.NewString([]byte("hello"))
	require.NoError(t, err)
	s1 := h.NewHandle(primitive.MustReference(s1Off))
	defer s1.Release()

	s2Off, err := h.NewString([]byte("hello"))
	require.NoError(t, err)
	s2 := h.NewHandle(primitive.MustReference(s2Off))
	defer s2.Release()

	sym1, err := h.Intern(st, s1)
	require.NoError(t, err)
	sym2, err := h.Intern(st, s2)
	require.NoError(t, err)
	assert.True(t, sym1.ShallowEquals(sym2), "equal strings must intern to the same symbol")

	str, err := h.ToString(st, sym1)
	require.NoError(t, err)
	strOff, err := str.AsReference()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), h.StringBytes(strOff))
}

func TestEnvironmentLookupWalksOuterChain(t *testing.T) {
	h := newHeap(t, 4096)
	outerNil := h.NewHandle(primitive.Nil())
	outerOff, err := h.NewEnvironment(outerNil)
	require.NoError(t, err)
	outerNil.Release()
	outerHandle := h.NewHandle(primitive.MustReference(outerOff))
	defer outerHandle.Release()

	sym, err := primitive.Symbol(1)
	require.NoError(t, err)
	require.NoError(t, h.Define(outerHandle, sym, primitive.MustInteger(42)))

	innerOff, err := h.NewEnvironment(outerHandle)
	require.NoError(t, err)
	innerHandle := h.NewHandle(primitive.MustReference(innerOff))
	defer innerHandle.Release()

	v, err := h.Lookup(innerHandle, sym)
	require.NoError(t, err)
	got, err := v.AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	missingSym, _ := primitive.Symbol(2)
	v, err = h.Lookup(innerHandle, missingSym)
	require.NoError(t, err)
	assert.True(t, v.IsNil())
}
