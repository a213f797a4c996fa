package heap

import "github.com/flisp-vm/flisp/primitive"

// keyEquals implements the Map's key comparison: shallow
// (structural-per-primitive) equality. For scalar keys and object identity
// this is exactly Primitive.ShallowEquals. The one deliberate extension:
// when both sides are References to String objects, content is compared
// instead of pointer identity — otherwise SymbolTable.Intern could never
// recognize a previously-interned string built as a fresh heap object,
// which would break intern idempotence. This is documented as a resolved
// ambiguity in DESIGN.md rather than invented silently.
func (h *Heap) keyEquals(a, b primitive.Primitive) bool {
	if a.Type() == primitive.TypeReference && b.Type() == primitive.TypeReference {
		aOff, _ := a.AsReference()
		bOff, _ := b.AsReference()
		if h.TypeOf(aOff) == TagString && h.TypeOf(bOff) == TagString {
			return string(h.StringBytes(aOff)) == string(h.StringBytes(bOff))
		}
	}
	return a.ShallowEquals(b)
}

// MapLookup returns the value associated with key, or (_, false, nil) if
// absent.
func (h *Heap) MapLookup(mapHandle, keyHandle *Handle) (primitive.Primitive, bool, error) {
	mapOff, err := mapHandle.Get().AsReference()
	if err != nil {
		return primitive.Primitive{}, false, err
	}
	cur := h.MapHead(mapOff)
	for !cur.IsNil() {
		pairOff, err := cur.AsReference()
		if err != nil {
			return primitive.Primitive{}, false, err
		}
		entry := h.PairFirst(pairOff) // Pair(key, value)
		entryOff, err := entry.AsReference()
		if err != nil {
			return primitive.Primitive{}, false, err
		}
		key := h.PairFirst(entryOff)
		if h.keyEquals(key, keyHandle.Get()) {
			return h.PairSecond(entryOff), true, nil
		}
		cur = h.PairSecond(pairOff)
	}
	return primitive.Primitive{}, false, nil
}

// MapInsert inserts key/value, updating an existing entry in place (size
// unchanged) or prepending a new entry (size incremented).
func (h *Heap) MapInsert(mapHandle, keyHandle, valueHandle *Handle) error {
	mapOff, err := mapHandle.Get().AsReference()
	if err != nil {
		return err
	}
	cur := h.MapHead(mapOff)
	for !cur.IsNil() {
		pairOff, err := cur.AsReference()
		if err != nil {
			return err
		}
		entry := h.PairFirst(pairOff)
		entryOff, err := entry.AsReference()
		if err != nil {
			return err
		}
		if h.keyEquals(h.PairFirst(entryOff), keyHandle.Get()) {
			h.SetPairSecond(entryOff, valueHandle.Get())
			return nil
		}
		cur = h.PairSecond(pairOff)
	}

	entryOff, err := h.NewPair(keyHandle, valueHandle)
	if err != nil {
		return err
	}
	entryHandle := h.NewHandle(primitive.MustReference(entryOff))
	defer entryHandle.Release()

	mapOff, _ = mapHandle.Get().AsReference()
	oldHeadHandle := h.NewHandle(h.MapHead(mapOff))
	defer oldHeadHandle.Release()

	nodeOff, err := h.NewPair(entryHandle, oldHeadHandle)
	if err != nil {
		return err
	}
	mapOff, _ = mapHandle.Get().AsReference()
	h.setMapHead(mapOff, primitive.MustReference(nodeOff))
	h.setMapSize(mapOff, h.MapSize(mapOff)+1)
	return nil
}
