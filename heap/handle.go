package heap

import "github.com/flisp-vm/flisp/primitive"

// Handle is a mutator-side GC root: it holds exactly one Primitive by value
// and is the only thing the collector consults when scanning roots beyond
// the registered RootProviders. Construction registers the handle with its
// owning Heap; Release unregisters it. A Handle must never be copied by
// value once registered — always hold and pass it as *Handle (see
// SPEC_FULL.md's note on move-only handle discipline, which Go has no
// equivalent compile-time check for).
type Handle struct {
	heap *Heap
	id   int
	val  primitive.Primitive
}

// NewHandle registers a new root holding p and returns it. Callers must
// call Release (typically via defer) on every exit path.
func (h *Heap) NewHandle(p primitive.Primitive) *Handle {
	hdl := &Handle{heap: h, val: p}
	hdl.id = h.handles.register(hdl)
	return hdl
}

// Get returns the handle's current Primitive.
func (hdl *Handle) Get() primitive.Primitive { return hdl.val }

// Set updates the handle's Primitive.
func (hdl *Handle) Set(p primitive.Primitive) { hdl.val = p }

// Release unregisters the handle from its heap's root set.
func (hdl *Handle) Release() {
	if hdl.heap == nil {
		return
	}
	hdl.heap.handles.unregister(hdl.id)
	hdl.heap = nil
}

// handleManager is the exclusive root set consulted by the collector.
type handleManager struct {
	next    int
	entries map[int]*Handle
}

func newHandleManager() *handleManager {
	return &handleManager{entries: make(map[int]*Handle)}
}

func (m *handleManager) register(h *Handle) int {
	id := m.next
	m.next++
	m.entries[id] = h
	return id
}

func (m *handleManager) unregister(id int) {
	delete(m.entries, id)
}

// forEach visits every live handle. Order is not significant to the
// collector; Go map iteration order is fine here.
func (m *handleManager) forEach(fn func(*Handle)) {
	for _, h := range m.entries {
		fn(h)
	}
}

func (m *handleManager) count() int { return len(m.entries) }
