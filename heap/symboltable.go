package heap

import "github.com/flisp-vm/flisp/primitive"

// SymbolTable wraps a heap-allocated SymbolTable object and implements
// intern/to-string.
type SymbolTable struct {
	Offset uint64
}

// NewSymbolTable allocates a fresh, empty SymbolTable.
func (h *Heap) NewSymbolTable() (SymbolTable, error) {
	off, err := h.newSymbolTableObject()
	if err != nil {
		return SymbolTable{}, err
	}
	return SymbolTable{Offset: off}, nil
}

// Intern returns the Symbol for the string held by strHandle, allocating a
// fresh one (and inserting both directions of the table) if it has not
// been seen before. Every intermediate reference is handle-rooted because
// both Map insertions below may allocate.
func (h *Heap) Intern(st SymbolTable, strHandle *Handle) (primitive.Primitive, error) {
	selfHandle := h.NewHandle(primitive.MustReference(st.Offset))
	defer selfHandle.Release()

	stringToIDOff, _ := h.symbolTableStringToID(st.Offset).AsReference()
	stringToIDHandle := h.NewHandle(primitive.MustReference(stringToIDOff))
	defer stringToIDHandle.Release()

	if existing, ok, err := h.mapLookupByBytes(stringToIDHandle, strHandle); err != nil {
		return primitive.Primitive{}, err
	} else if ok {
		return existing, nil
	}

	stOff, _ := stringToIDHandle.Get().AsReference()
	id := uint64(h.MapSize(stOff))
	sym, err := primitive.Symbol(id)
	if err != nil {
		return primitive.Primitive{}, err
	}
	symHandle := h.NewHandle(sym)
	defer symHandle.Release()

	if err := h.MapInsert(stringToIDHandle, strHandle, symHandle); err != nil {
		return primitive.Primitive{}, err
	}

	selfOff, _ := selfHandle.Get().AsReference()
	idToStringOff, _ := h.symbolTableIDToString(selfOff).AsReference()
	idToStringHandle := h.NewHandle(primitive.MustReference(idToStringOff))
	defer idToStringHandle.Release()

	if err := h.MapInsert(idToStringHandle, symHandle, strHandle); err != nil {
		return primitive.Primitive{}, err
	}
	return symHandle.Get(), nil
}

// ToString looks up the String Reference interned for sym, or Nil if
// sym was never interned in this table.
func (h *Heap) ToString(st SymbolTable, sym primitive.Primitive) (primitive.Primitive, error) {
	idToStringOff, _ := h.symbolTableIDToString(st.Offset).AsReference()
	idToStringHandle := h.NewHandle(primitive.MustReference(idToStringOff))
	defer idToStringHandle.Release()

	symHandle := h.NewHandle(sym)
	defer symHandle.Release()

	v, ok, err := h.MapLookup(idToStringHandle, symHandle)
	if err != nil {
		return primitive.Primitive{}, err
	}
	if !ok {
		return primitive.Nil(), nil
	}
	return v, nil
}

// mapLookupByBytes is Intern's fast path: compare by the string's raw
// bytes rather than requiring a pre-existing String object when one side
// of the comparison is a freshly-built handle holding a String reference.
// It simply defers to MapLookup, which already does shallow-equals over
// heap Strings by content (see mapops.go).
func (h *Heap) mapLookupByBytes(mapHandle, keyHandle *Handle) (primitive.Primitive, bool, error) {
	return h.MapLookup(mapHandle, keyHandle)
}
