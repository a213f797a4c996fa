package heap

import (
	"github.com/flisp-vm/flisp/primitive"
	"github.com/flisp-vm/flisp/vmerr"
)

// Lookup walks self -> outer -> outer -> ... querying each environment's
// local Map by symbol, returning the first non-Nil result, or Nil if the
// chain is exhausted.
func (h *Heap) Lookup(envHandle *Handle, symbol primitive.Primitive) (primitive.Primitive, error) {
	if symbol.Type() != primitive.TypeSymbol {
		return primitive.Primitive{}, vmerr.New(vmerr.TypeMismatch, "Environment.Lookup requires a Symbol, got %s", symbol.Type())
	}
	symHandle := h.NewHandle(symbol)
	defer symHandle.Release()

	cur := envHandle.Get()
	for !cur.IsNil() {
		envOff, err := cur.AsReference()
		if err != nil {
			return primitive.Primitive{}, err
		}
		lookupMapHandle := h.NewHandle(h.EnvLookupMap(envOff))
		v, ok, err := h.MapLookup(lookupMapHandle, symHandle)
		lookupMapHandle.Release()
		if err != nil {
			return primitive.Primitive{}, err
		}
		if ok && !v.IsNil() {
			return v, nil
		}
		cur = h.EnvOuter(envOff)
	}
	return primitive.Nil(), nil
}

// Define inserts symbol -> value into self's own lookup Map.
func (h *Heap) Define(envHandle *Handle, symbol, value primitive.Primitive) error {
	if symbol.Type() != primitive.TypeSymbol {
		return vmerr.New(vmerr.TypeMismatch, "Environment.Define requires a Symbol, got %s", symbol.Type())
	}
	envOff, err := envHandle.Get().AsReference()
	if err != nil {
		return err
	}
	lookupMapHandle := h.NewHandle(h.EnvLookupMap(envOff))
	defer lookupMapHandle.Release()

	symHandle := h.NewHandle(symbol)
	defer symHandle.Release()
	valHandle := h.NewHandle(value)
	defer valHandle.Release()

	return h.MapInsert(lookupMapHandle, symHandle, valHandle)
}
