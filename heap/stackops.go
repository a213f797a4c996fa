package heap

import "github.com/flisp-vm/flisp/primitive"

// StackPush prepends value to the head list and increments size — the
// Stack's insert/remove operate only at the head.
func (h *Heap) StackPush(stackHandle, valueHandle *Handle) error {
	stackOff, err := stackHandle.Get().AsReference()
	if err != nil {
		return err
	}
	oldHeadHandle := h.NewHandle(h.StackHead(stackOff))
	defer oldHeadHandle.Release()

	nodeOff, err := h.NewPair(valueHandle, oldHeadHandle)
	if err != nil {
		return err
	}
	stackOff, _ = stackHandle.Get().AsReference()
	h.setStackHead(stackOff, primitive.MustReference(nodeOff))
	h.setStackSize(stackOff, h.StackSize(stackOff)+1)
	return nil
}

// StackPop removes and returns the head value. ok is false on an empty
// stack (callers that require LIFO to never underflow should check size
// first and raise a StackUnderflow fault themselves, matching interp's
// convention for its own operand stack).
func (h *Heap) StackPop(stackHandle *Handle) (primitive.Primitive, bool, error) {
	stackOff, err := stackHandle.Get().AsReference()
	if err != nil {
		return primitive.Primitive{}, false, err
	}
	head := h.StackHead(stackOff)
	if head.IsNil() {
		return primitive.Primitive{}, false, nil
	}
	nodeOff, err := head.AsReference()
	if err != nil {
		return primitive.Primitive{}, false, err
	}
	value := h.PairFirst(nodeOff)
	rest := h.PairSecond(nodeOff)

	stackOff, _ = stackHandle.Get().AsReference()
	h.setStackHead(stackOff, rest)
	h.setStackSize(stackOff, h.StackSize(stackOff)-1)
	return value, true, nil
}
