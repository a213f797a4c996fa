package heap

import (
	"github.com/flisp-vm/flisp/primitive"
	"github.com/flisp-vm/flisp/vmerr"
)

// --- Pair ---------------------------------------------------------------

// NewPair allocates a 2-slot Pair{first, second}. Both arguments are read
// through handles because allocation may have moved whatever they point at.
func (h *Heap) NewPair(first, second *Handle) (uint64, error) {
	off, err := h.allocObject(TagPair, 2, 0)
	if err != nil {
		return 0, err
	}
	h.SetSlot(off, 0, first.Get())
	h.SetSlot(off, 1, second.Get())
	return off, nil
}

func (h *Heap) PairFirst(offset uint64) primitive.Primitive  { return h.Slot(offset, 0) }
func (h *Heap) PairSecond(offset uint64) primitive.Primitive { return h.Slot(offset, 1) }
func (h *Heap) SetPairFirst(offset uint64, v primitive.Primitive)  { h.SetSlot(offset, 0, v) }
func (h *Heap) SetPairSecond(offset uint64, v primitive.Primitive) { h.SetSlot(offset, 1, v) }

// --- Vector --------------------------------------------------------------

// NewVector allocates an n-slot Vector, every slot initialized to Nil.
func (h *Heap) NewVector(n int) (uint64, error) {
	if n < 0 {
		return 0, vmerr.New(vmerr.IndexOutOfBounds, "negative vector length %d", n)
	}
	return h.allocObject(TagVector, n, 0)
}

func (h *Heap) VectorGet(offset uint64, i int) (primitive.Primitive, error) {
	if i < 0 || uint64(i) >= h.VectorLength(offset) {
		return primitive.Primitive{}, vmerr.New(vmerr.IndexOutOfBounds, "vector index %d out of bounds (len %d)", i, h.VectorLength(offset))
	}
	return h.Slot(offset, i), nil
}

func (h *Heap) VectorSet(offset uint64, i int, v primitive.Primitive) error {
	if i < 0 || uint64(i) >= h.VectorLength(offset) {
		return vmerr.New(vmerr.IndexOutOfBounds, "vector index %d out of bounds (len %d)", i, h.VectorLength(offset))
	}
	h.SetSlot(offset, i, v)
	return nil
}

// --- String ----------------------------------------------------------------

// NewString allocates a String object copying the given bytes. bytes is a
// plain Go slice, never a heap reference, so no Handle is required.
func (h *Heap) NewString(bytes []byte) (uint64, error) {
	size := alignUp8(headerSize + wordSize + uint64(len(bytes)))
	off, err := h.Allocate(size)
	if err != nil {
		return 0, err
	}
	writeHeader(h.active.bytes, off, TagString, uint32(size))
	lenPrim, err := primitive.Integer(int64(len(bytes)))
	if err != nil {
		return 0, err
	}
	writeWord(h.active.bytes, off+headerSize, lenPrim.Raw())
	copy(h.active.bytes[off+headerSize+wordSize:], bytes)
	return off, nil
}

// StringLength returns the String's byte length.
func (h *Heap) StringLength(offset uint64) int64 {
	n, _ := primitive.FromRaw(readWord(h.active.bytes, offset+headerSize)).AsInteger()
	return n
}

// StringBytes returns a copy of the String's raw bytes.
func (h *Heap) StringBytes(offset uint64) []byte {
	n := h.StringLength(offset)
	start := offset + headerSize + wordSize
	out := make([]byte, n)
	copy(out, h.active.bytes[start:start+uint64(n)])
	return out
}

// --- Map (head is a Pair-list of Pair(key,value), size tracked) -----------

func (h *Heap) NewMap() (uint64, error) {
	off, err := h.allocObject(TagMap, 2, 0)
	if err != nil {
		return 0, err
	}
	h.SetSlot(off, 1, primitive.MustInteger(0))
	return off, nil
}

func (h *Heap) MapHead(offset uint64) primitive.Primitive { return h.Slot(offset, 0) }
func (h *Heap) MapSize(offset uint64) int64 {
	n, _ := h.Slot(offset, 1).AsInteger()
	return n
}
func (h *Heap) setMapHead(offset uint64, v primitive.Primitive) { h.SetSlot(offset, 0, v) }
func (h *Heap) setMapSize(offset uint64, n int64)               { h.SetSlot(offset, 1, primitive.MustInteger(n)) }

// --- Stack (head is a Pair-list, size tracked, head-only ops) -------------

func (h *Heap) NewStack() (uint64, error) {
	off, err := h.allocObject(TagStack, 2, 0)
	if err != nil {
		return 0, err
	}
	h.SetSlot(off, 1, primitive.MustInteger(0))
	return off, nil
}

func (h *Heap) StackHead(offset uint64) primitive.Primitive { return h.Slot(offset, 0) }
func (h *Heap) StackSize(offset uint64) int64 {
	n, _ := h.Slot(offset, 1).AsInteger()
	return n
}
func (h *Heap) setStackHead(offset uint64, v primitive.Primitive) { h.SetSlot(offset, 0, v) }
func (h *Heap) setStackSize(offset uint64, n int64)               { h.SetSlot(offset, 1, primitive.MustInteger(n)) }

// --- Environment (outer ref, lookup Map) -----------------------------------

// NewEnvironment allocates an Environment with the given outer (Reference
// or Nil) and a freshly-allocated empty lookup Map.
func (h *Heap) NewEnvironment(outer *Handle) (uint64, error) {
	off, err := h.allocObject(TagEnvironment, 2, 0)
	if err != nil {
		return 0, err
	}
	h.SetSlot(off, 0, outer.Get())
	envHandle := h.NewHandle(primitive.MustReference(off))
	defer envHandle.Release()

	mapOff, err := h.NewMap()
	if err != nil {
		return 0, err
	}
	off, _ = envHandle.Get().AsReference()
	h.SetSlot(off, 1, primitive.MustReference(mapOff))
	return off, nil
}

func (h *Heap) EnvOuter(offset uint64) primitive.Primitive  { return h.Slot(offset, 0) }
func (h *Heap) EnvLookupMap(offset uint64) primitive.Primitive { return h.Slot(offset, 1) }

// --- Closure (function descriptor, captured env) ---------------------------

// NewClosure allocates a Closure. function is an opaque descriptor
// Primitive supplied by the caller and stored as-is, since the heap has no
// notion of a Function pointer of its own.
func (h *Heap) NewClosure(function primitive.Primitive, env *Handle) (uint64, error) {
	off, err := h.allocObject(TagClosure, 2, 0)
	if err != nil {
		return 0, err
	}
	h.SetSlot(off, 0, function)
	h.SetSlot(off, 1, env.Get())
	return off, nil
}

func (h *Heap) ClosureFunction(offset uint64) primitive.Primitive { return h.Slot(offset, 0) }
func (h *Heap) ClosureEnv(offset uint64) primitive.Primitive      { return h.Slot(offset, 1) }

// --- NativeFunction (native pointer, arity) --------------------------------

func (h *Heap) NewNativeFunction(nativeRef primitive.Primitive, arity int64) (uint64, error) {
	off, err := h.allocObject(TagNativeFunction, 2, 0)
	if err != nil {
		return 0, err
	}
	h.SetSlot(off, 0, nativeRef)
	h.SetSlot(off, 1, primitive.MustInteger(arity))
	return off, nil
}

func (h *Heap) NativeFunctionPointer(offset uint64) primitive.Primitive { return h.Slot(offset, 0) }
func (h *Heap) NativeFunctionArity(offset uint64) int64 {
	n, _ := h.Slot(offset, 1).AsInteger()
	return n
}

// --- SymbolTable (id->string Map, string->id Map) --------------------------

func (h *Heap) newSymbolTableObject() (uint64, error) {
	off, err := h.allocObject(TagSymbolTable, 2, 0)
	if err != nil {
		return 0, err
	}
	selfHandle := h.NewHandle(primitive.MustReference(off))
	defer selfHandle.Release()

	idToString, err := h.NewMap()
	if err != nil {
		return 0, err
	}
	off, _ = selfHandle.Get().AsReference()
	h.SetSlot(off, 0, primitive.MustReference(idToString))

	stringToID, err := h.NewMap()
	if err != nil {
		return 0, err
	}
	off, _ = selfHandle.Get().AsReference()
	h.SetSlot(off, 1, primitive.MustReference(stringToID))
	return off, nil
}

func (h *Heap) symbolTableIDToString(offset uint64) primitive.Primitive { return h.Slot(offset, 0) }
func (h *Heap) symbolTableStringToID(offset uint64) primitive.Primitive { return h.Slot(offset, 1) }
