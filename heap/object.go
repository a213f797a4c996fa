package heap

import "encoding/binary"

// TypeTag identifies the concrete shape of a heap object. It occupies the
// first byte of every object header.
type TypeTag uint8

const (
	TagPair TypeTag = iota + 1
	TagVector
	TagString
	TagMap
	TagStack
	TagEnvironment
	TagClosure
	TagNativeFunction
	TagSymbolTable
	// TagGcForward marks an evacuated object's old location; it is never
	// observed by slot iteration during tracing of the active space, only
	// consulted transiently by the collector.
	TagGcForward TypeTag = 0xFF
)

func (t TypeTag) String() string {
	switch t {
	case TagPair:
		return "Pair"
	case TagVector:
		return "Vector"
	case TagString:
		return "String"
	case TagMap:
		return "Map"
	case TagStack:
		return "Stack"
	case TagEnvironment:
		return "Environment"
	case TagClosure:
		return "Closure"
	case TagNativeFunction:
		return "NativeFunction"
	case TagSymbolTable:
		return "SymbolTable"
	case TagGcForward:
		return "GcForward"
	default:
		return "Unknown"
	}
}

// headerSize is the fixed 8-byte object header: {type_tag byte, padding
// [3]byte, allocation_size uint32}.
const headerSize = 8

// wordSize is the width of one Primitive slot.
const wordSize = 8

func readHeader(bytes []byte, offset uint64) (TypeTag, uint32) {
	tag := TypeTag(bytes[offset])
	size := binary.LittleEndian.Uint32(bytes[offset+4 : offset+8])
	return tag, size
}

func writeHeader(bytes []byte, offset uint64, t TypeTag, size uint32) {
	bytes[offset] = byte(t)
	bytes[offset+1] = 0
	bytes[offset+2] = 0
	bytes[offset+3] = 0
	binary.LittleEndian.PutUint32(bytes[offset+4:offset+8], size)
}

func readWord(bytes []byte, offset uint64) uint64 {
	return binary.LittleEndian.Uint64(bytes[offset : offset+8])
}

func writeWord(bytes []byte, offset uint64, v uint64) {
	binary.LittleEndian.PutUint64(bytes[offset:offset+8], v)
}

// alignUp8 rounds n up to the next multiple of 8.
func alignUp8(n uint64) uint64 {
	return (n + 7) &^ 7
}
