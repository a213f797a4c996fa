package heap

// space is one semi-space: a flat byte arena bump-allocated from offset
// reserved (never 0 — offset 0 is the permanent Nil sentinel) up to
// len(bytes).
type space struct {
	bytes     []byte
	firstFree uint64
}

// reservedOffset is the first allocatable offset. Offset 0 is never handed
// out so that a zero Reference always means Nil.
const reservedOffset = 8

func newSpace(size uint64) *space {
	return &space{bytes: make([]byte, size), firstFree: reservedOffset}
}

func (s *space) capacity() uint64 { return uint64(len(s.bytes)) }

func (s *space) freeCapacity() uint64 { return s.capacity() - s.firstFree }

func (s *space) reset() { s.firstFree = reservedOffset }
