// Package heap implements the tagged heap object model together with the
// copying semi-space collector that backs it.
package heap

import (
	"github.com/dustin/go-humanize"
	"github.com/flisp-vm/flisp/primitive"
	"github.com/flisp-vm/flisp/vmerr"
	"go.uber.org/zap"
)

// RootProvider lets other subsystems (chiefly the interpreter's call stack)
// expose additional GC roots beyond the Handle set: a frame's locals and
// operand stack must be scanned too.
type RootProvider interface {
	// ForEachRoot invokes fn once per live root Primitive slot it owns. fn
	// may rewrite the slot in place (the collector uses this to install
	// forwarded references).
	ForEachRoot(fn func(*primitive.Primitive))
}

// Heap owns the two semi-spaces and drives allocation and collection.
type Heap struct {
	active  *space
	passive *space
	size    uint64
	handles *handleManager
	roots   []RootProvider

	logger *zap.Logger

	collections int64
	stressMode  bool
}

// New constructs a Heap with two semi-spaces of the given size each; total
// footprint is 2x that.
func New(spaceSize uint64, logger *zap.Logger) *Heap {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Heap{
		active:  newSpace(spaceSize),
		passive: newSpace(spaceSize),
		size:    spaceSize,
		handles: newHandleManager(),
		logger:  logger,
	}
}

// AddRootProvider registers an additional root source. The interpreter's
// CallStack calls this once at VM construction so live frames are scanned
// as roots.
func (h *Heap) AddRootProvider(p RootProvider) {
	h.roots = append(h.roots, p)
}

// FreeCapacity reports the active space's remaining bump-allocation room.
func (h *Heap) FreeCapacity() uint64 { return h.active.freeCapacity() }

// Capacity reports one semi-space's total size.
func (h *Heap) Capacity() uint64 { return h.active.capacity() }

// HandleCount reports the number of currently live handles (diagnostics).
func (h *Heap) HandleCount() int { return h.handles.count() }

// Collections reports how many collections have run (diagnostics).
func (h *Heap) Collections() int64 { return h.collections }

// SetStressMode, when enabled, forces a collection before every single
// allocation regardless of free space. It exists to exercise root
// scanning and forwarding far more often than allocation pressure alone
// would, for tests that must catch a stale-reference bug deterministically
// rather than waiting on the right allocation pattern to trigger one.
func (h *Heap) SetStressMode(stress bool) { h.stressMode = stress }

// Allocate reserves bytes in the active space, returning the offset of the
// new object's header. bytes must already be 8-byte aligned. If the active
// space lacks room, Allocate triggers one collection and retries once.
func (h *Heap) Allocate(bytes uint64) (uint64, error) {
	if bytes%8 != 0 {
		return 0, vmerr.New(vmerr.AlignmentError, "allocation size %d is not 8-byte aligned", bytes)
	}
	if h.stressMode {
		h.Collect()
	}
	if h.active.freeCapacity() >= bytes {
		return h.bump(bytes), nil
	}
	h.Collect()
	if h.active.freeCapacity() >= bytes {
		return h.bump(bytes), nil
	}
	return 0, vmerr.New(vmerr.OutOfMemory, "cannot allocate %d bytes: %s free of %s",
		bytes, humanize.Bytes(h.active.freeCapacity()), humanize.Bytes(h.active.capacity()))
}

func (h *Heap) bump(bytes uint64) uint64 {
	off := h.active.firstFree
	h.active.firstFree += bytes
	return off
}

// allocObject allocates space for a header plus n Primitive slots, all
// initialized to Nil, and returns the object's offset.
func (h *Heap) allocObject(tag TypeTag, slotCount int, extraBytes uint64) (uint64, error) {
	size := headerSize + uint64(slotCount)*wordSize + extraBytes
	size = alignUp8(size)
	off, err := h.Allocate(size)
	if err != nil {
		return 0, err
	}
	writeHeader(h.active.bytes, off, tag, uint32(size))
	for i := 0; i < slotCount; i++ {
		writeWord(h.active.bytes, off+headerSize+uint64(i)*wordSize, primitive.Nil().Raw())
	}
	return off, nil
}

// TypeOf reports the type tag of the object at offset in the active space.
func (h *Heap) TypeOf(offset uint64) TypeTag {
	tag, _ := readHeader(h.active.bytes, offset)
	return tag
}

// AllocationSize reports the allocation size recorded at construction.
func (h *Heap) AllocationSize(offset uint64) uint32 {
	_, size := readHeader(h.active.bytes, offset)
	return size
}

// Slot reads Primitive slot i (0-indexed) of the object at offset.
func (h *Heap) Slot(offset uint64, i int) primitive.Primitive {
	return primitive.FromRaw(readWord(h.active.bytes, offset+headerSize+uint64(i)*wordSize))
}

// SetSlot writes Primitive slot i of the object at offset.
func (h *Heap) SetSlot(offset uint64, i int, v primitive.Primitive) {
	writeWord(h.active.bytes, offset+headerSize+uint64(i)*wordSize, v.Raw())
}

// referenceSlotCount returns how many Primitive slots of an object are
// subject to GC slot iteration. Vector's count is variable and derived from
// its recorded allocation size, not a fixed constant. String publishes zero
// reference slots even though it carries a length field, so it is excluded
// here (see StringLength for reading that field directly).
func referenceSlotCount(h *Heap, sp *space, t TypeTag, offset uint64) int {
	switch t {
	case TagPair, TagMap, TagStack, TagEnvironment, TagClosure, TagNativeFunction, TagSymbolTable:
		return 2
	case TagVector:
		_, size := readHeader(sp.bytes, offset)
		return int((uint64(size) - headerSize) / wordSize)
	default: // TagString, TagGcForward
		return 0
	}
}

// HasSlot and NextSlot implement the public slot-iteration contract against
// the active space.
func (h *Heap) HasSlot(offset uint64, i int) bool {
	t := h.TypeOf(offset)
	return i < referenceSlotCount(h, h.active, t, offset)
}

func (h *Heap) NextSlot(offset uint64, i int) primitive.Primitive {
	return h.Slot(offset, i)
}

// VectorLength derives a Vector's element count from its allocation size.
func (h *Heap) VectorLength(offset uint64) uint64 {
	_, size := readHeader(h.active.bytes, offset)
	return (uint64(size) - headerSize) / wordSize
}

// forEachSlotIn walks every GC-relevant Primitive slot of the object at
// offset within the given space, allowing the collector to rewrite each
// slot in place during tracing/evacuation.
func (h *Heap) forEachSlotIn(sp *space, offset uint64, fn func(v primitive.Primitive, set func(primitive.Primitive))) {
	tag, _ := readHeader(sp.bytes, offset)
	n := referenceSlotCount(h, sp, tag, offset)
	for i := 0; i < n; i++ {
		slotOff := offset + headerSize + uint64(i)*wordSize
		v := primitive.FromRaw(readWord(sp.bytes, slotOff))
		fn(v, func(nv primitive.Primitive) { writeWord(sp.bytes, slotOff, nv.Raw()) })
	}
}
