package heap

import (
	"github.com/dustin/go-humanize"
	"github.com/flisp-vm/flisp/primitive"
	"go.uber.org/zap"
)

// Collect runs one Cheney-style copying collection:
//  1. swap active/passive,
//  2. evacuate every Handle and RootProvider root,
//  3. trace grey objects in the new active space, evacuating every
//     Reference slot reached,
//  4. reset the now-dead passive space.
func (h *Heap) Collect() {
	before := h.active.firstFree
	h.active, h.passive = h.passive, h.active
	h.active.reset()

	h.handles.forEach(func(hdl *Handle) {
		hdl.val = h.evacuateIfReference(hdl.val)
	})
	for _, rp := range h.roots {
		rp.ForEachRoot(func(p *primitive.Primitive) {
			*p = h.evacuateIfReference(*p)
		})
	}

	cursor := reservedOffset
	for cursor < h.active.firstFree {
		tag, size := readHeader(h.active.bytes, cursor)
		if tag != TagGcForward {
			h.forEachSlotIn(h.active, cursor, func(v primitive.Primitive, set func(primitive.Primitive)) {
				set(h.evacuateIfReference(v))
			})
		}
		cursor += uint64(size)
	}

	h.passive.reset()
	h.collections++

	h.logger.Debug("gc collection",
		zap.Int64("collections", h.collections),
		zap.String("live", humanize.Bytes(h.active.firstFree-reservedOffset)),
		zap.String("before", humanize.Bytes(before-reservedOffset)),
		zap.String("capacity", humanize.Bytes(h.active.capacity())),
		zap.Int("roots", h.handles.count()),
	)
}

// evacuateIfReference copies the object a Reference points to (in the
// current passive space, the evacuation source) into active, leaving a
// GcForward marker behind, and returns a Reference to the new location. Any
// other primitive is returned unchanged; an already-forwarded source just
// yields its recorded destination.
func (h *Heap) evacuateIfReference(p primitive.Primitive) primitive.Primitive {
	if p.Type() != primitive.TypeReference {
		return p
	}
	offset, err := p.AsReference()
	if err != nil {
		return p
	}
	return primitive.MustReference(h.evacuate(offset))
}

// evacuate copies the object at the given offset in passive into active
// (unless already forwarded) and returns its new offset.
func (h *Heap) evacuate(offset uint64) uint64 {
	tag, size := readHeader(h.passive.bytes, offset)
	if tag == TagGcForward {
		// The forwarding slot stores a Reference primitive; since Reference's
		// tag bits are 0, its raw word equals the destination offset directly.
		return readWord(h.passive.bytes, offset+headerSize)
	}
	dest := h.active.firstFree
	h.active.firstFree += uint64(size)
	copy(h.active.bytes[dest:dest+uint64(size)], h.passive.bytes[offset:offset+uint64(size)])

	writeHeader(h.passive.bytes, offset, TagGcForward, size)
	writeWord(h.passive.bytes, offset+headerSize, primitive.MustReference(dest).Raw())
	return dest
}
