// Package primitive implements the one-word tagged value.
// A Primitive is a plain 64-bit word: trivially copyable, never owning the
// heap object it may reference.
package primitive

import (
	"math"

	"github.com/flisp-vm/flisp/vmerr"
)

// Type enumerates the Primitive variants.
type Type uint8

const (
	TypeNil Type = iota
	TypeReference
	TypeNativeReference
	TypeInteger
	TypeSymbol
	TypeBoolean
	TypeCharacter
	TypeReal
)

func (t Type) String() string {
	switch t {
	case TypeNil:
		return "Nil"
	case TypeReference:
		return "Reference"
	case TypeNativeReference:
		return "NativeReference"
	case TypeInteger:
		return "Integer"
	case TypeSymbol:
		return "Symbol"
	case TypeBoolean:
		return "Boolean"
	case TypeCharacter:
		return "Character"
	case TypeReal:
		return "Real"
	default:
		return "Unknown"
	}
}

// tag occupies the low 3 bits of the word.
type tag uint64

const (
	tagReference       tag = 0
	tagNativeReference tag = 1
	tagInteger         tag = 2
	tagSymbol          tag = 3
	tagBoolean         tag = 4
	tagCharacter       tag = 5
	tagReal            tag = 6

	tagMask  uint64 = 0x7
	tagBits         = 3
)

// MaxInteger / MinInteger are the signed 61-bit bounds: ±2^60.
const (
	MaxInteger int64 = 1<<60 - 1
	MinInteger int64 = -(1 << 60)
)

// MaxSymbol is the largest representable Symbol id (unsigned 61-bit).
const MaxSymbol uint64 = 1<<61 - 1

// Primitive is the one-word tagged value.
type Primitive struct {
	word uint64
}

// Nil returns the Nil primitive. It is encoded identically to a null
// Reference, but Type() still reports TypeNil for it.
func Nil() Primitive { return Primitive{word: 0} }

// Reference constructs a Primitive pointing at the given 8-byte-aligned
// heap offset. Offset 0 is reserved and always observed as Nil.
func Reference(offset uint64) (Primitive, error) {
	if offset%8 != 0 {
		return Primitive{}, vmerr.New(vmerr.AlignmentError, "reference offset %d is not 8-byte aligned", offset)
	}
	return Primitive{word: offset | uint64(tagReference)}, nil
}

// MustReference panics on alignment failure; used internally where the
// offset is known-good (e.g. freshly returned by the allocator).
func MustReference(offset uint64) Primitive {
	p, err := Reference(offset)
	if err != nil {
		panic(err)
	}
	return p
}

// NativeReference constructs a Primitive wrapping an opaque host-assigned
// id (the Go runtime gives us no safe way to stash an arbitrary pointer in
// 61 bits, so native references are small integer handles managed by the
// natives package).
func NativeReference(id uint64) (Primitive, error) {
	if id > (1<<61 - 1) {
		return Primitive{}, vmerr.New(vmerr.ValueOverflow, "native reference id %d exceeds 61 bits", id)
	}
	return Primitive{word: (id << tagBits) | uint64(tagNativeReference)}, nil
}

// Integer constructs a signed 61-bit Integer primitive.
func Integer(v int64) (Primitive, error) {
	if v > MaxInteger || v < MinInteger {
		return Primitive{}, vmerr.New(vmerr.ValueOverflow, "integer %d exceeds 61-bit signed range", v)
	}
	return Primitive{word: (uint64(v) << tagBits) | uint64(tagInteger)}, nil
}

// MustInteger panics on overflow; for constants already validated at
// compile/decode time.
func MustInteger(v int64) Primitive {
	p, err := Integer(v)
	if err != nil {
		panic(err)
	}
	return p
}

// Symbol constructs a Symbol primitive from an unsigned 61-bit id.
func Symbol(id uint64) (Primitive, error) {
	if id > MaxSymbol {
		return Primitive{}, vmerr.New(vmerr.ValueOverflow, "symbol id %d exceeds 61-bit range", id)
	}
	return Primitive{word: (id << tagBits) | uint64(tagSymbol)}, nil
}

// Boolean constructs a Boolean primitive.
func Boolean(v bool) Primitive {
	var bit uint64
	if v {
		bit = 1
	}
	return Primitive{word: (bit << tagBits) | uint64(tagBoolean)}
}

// Character constructs a Character primitive from a single byte.
func Character(b byte) Primitive {
	return Primitive{word: (uint64(b) << tagBits) | uint64(tagCharacter)}
}

// Real constructs a Real primitive from a 32-bit float stored in the high
// half of the word.
func Real(f float32) Primitive {
	bits := uint64(math.Float32bits(f))
	return Primitive{word: (bits << 32) | uint64(tagReal)}
}

func (p Primitive) rawTag() tag {
	return tag(p.word & tagMask)
}

// Type reports the dynamic variant, treating a null Reference as Nil.
func (p Primitive) Type() Type {
	switch p.rawTag() {
	case tagReference:
		if p.word == 0 {
			return TypeNil
		}
		return TypeReference
	case tagNativeReference:
		return TypeNativeReference
	case tagInteger:
		return TypeInteger
	case tagSymbol:
		return TypeSymbol
	case tagBoolean:
		return TypeBoolean
	case tagCharacter:
		return TypeCharacter
	case tagReal:
		return TypeReal
	default:
		return TypeNil
	}
}

func mismatch(p Primitive, want Type) error {
	return vmerr.New(vmerr.TypeMismatch, "expected %s, got %s", want, p.Type())
}

// AsReference returns the heap offset referenced, failing with TypeMismatch
// if p is not a Reference (Nil included — callers distinguish Nil first).
func (p Primitive) AsReference() (uint64, error) {
	if p.Type() != TypeReference {
		return 0, mismatch(p, TypeReference)
	}
	return p.word &^ tagMask, nil
}

// AsNativeReference returns the opaque id carried by a NativeReference.
func (p Primitive) AsNativeReference() (uint64, error) {
	if p.rawTag() != tagNativeReference {
		return 0, mismatch(p, TypeNativeReference)
	}
	return p.word >> tagBits, nil
}

// AsInteger returns the signed value, sign-extended from 61 bits.
func (p Primitive) AsInteger() (int64, error) {
	if p.rawTag() != tagInteger {
		return 0, mismatch(p, TypeInteger)
	}
	return int64(p.word) >> tagBits, nil
}

// AsSymbol returns the unsigned symbol id.
func (p Primitive) AsSymbol() (uint64, error) {
	if p.rawTag() != tagSymbol {
		return 0, mismatch(p, TypeSymbol)
	}
	return p.word >> tagBits, nil
}

// AsBoolean returns the boolean value.
func (p Primitive) AsBoolean() (bool, error) {
	if p.rawTag() != tagBoolean {
		return false, mismatch(p, TypeBoolean)
	}
	return (p.word >> tagBits) != 0, nil
}

// AsCharacter returns the raw byte value.
func (p Primitive) AsCharacter() (byte, error) {
	if p.rawTag() != tagCharacter {
		return 0, mismatch(p, TypeCharacter)
	}
	return byte(p.word >> tagBits), nil
}

// AsReal returns the 32-bit float value.
func (p Primitive) AsReal() (float32, error) {
	if p.rawTag() != tagReal {
		return 0, mismatch(p, TypeReal)
	}
	return math.Float32frombits(uint32(p.word >> 32)), nil
}

// IsNil reports whether p is the Nil primitive.
func (p Primitive) IsNil() bool { return p.Type() == TypeNil }

// Raw exposes the underlying word, used only by heap slot storage and
// module I/O — never by language-level code.
func (p Primitive) Raw() uint64 { return p.word }

// FromRaw reconstructs a Primitive from a previously-obtained raw word
// (heap slot storage round-trip).
func FromRaw(word uint64) Primitive { return Primitive{word: word} }

// ShallowEquals compares two primitives without traversing heap objects:
// same type, and for References/NativeReferences pointer (offset/id)
// equality, for scalars value equality.
func (p Primitive) ShallowEquals(other Primitive) bool {
	if p.Type() != other.Type() {
		return false
	}
	switch p.Type() {
	case TypeReal:
		// compare bit patterns, not float equality, to match word-equality semantics
		return p.word == other.word
	default:
		return p.word == other.word
	}
}
