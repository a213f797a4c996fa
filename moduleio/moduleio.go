// Package moduleio implements the module binary format's encode/decode.
// Fields are little-endian, a fixed byte order chosen without reordering
// any field.
package moduleio

import (
	"encoding/binary"
	"io"

	"github.com/flisp-vm/flisp/bytecode"
	"github.com/flisp-vm/flisp/vmerr"
)

// CompatibleVersion is the only module version this reader accepts.
const CompatibleVersion uint64 = 1

var byteOrder = binary.LittleEndian

type writer struct {
	w   io.Writer
	err error
}

func (wr *writer) u64(v uint64) {
	if wr.err != nil {
		return
	}
	var buf [8]byte
	byteOrder.PutUint64(buf[:], v)
	_, wr.err = wr.w.Write(buf[:])
}

func (wr *writer) i64(v int64) { wr.u64(uint64(v)) }

func (wr *writer) raw(b []byte) {
	if wr.err != nil {
		return
	}
	_, wr.err = wr.w.Write(b)
}

func (wr *writer) str(s string) { wr.bytesField([]byte(s)) }

func (wr *writer) bytesField(b []byte) {
	wr.u64(uint64(len(b)))
	wr.raw(b)
}

// Encode writes m to w in the binary module format.
func Encode(w io.Writer, m *bytecode.Module) error {
	wr := &writer{w: w}
	wr.u64(m.Version)
	wr.str(m.Name)

	wr.u64(uint64(len(m.Imports)))
	for _, s := range m.Imports {
		wr.str(s)
	}
	wr.u64(uint64(len(m.Exports)))
	for _, s := range m.Exports {
		wr.str(s)
	}

	wr.u64(uint64(len(m.Functions)))
	for _, fn := range m.Functions {
		wr.str(fn.Name)
		wr.u64(fn.Arity)
		wr.u64(fn.Locals)
		wr.u64(uint64(len(fn.Bytecode)))
		for _, bc := range fn.Bytecode {
			wr.raw([]byte{byte(bc.Opcode)})
			if bc.Opcode.HasArgument() {
				wr.u64(bc.Arg)
			}
		}
	}

	wr.u64(uint64(len(m.Constants)))
	for _, c := range m.Constants {
		wr.raw([]byte{byte(c.Kind)})
		switch c.Kind {
		case bytecode.ConstInteger:
			wr.i64(c.Integer)
		case bytecode.ConstString:
			wr.bytesField(c.String)
		case bytecode.ConstInvocation:
			wr.u64(c.Invocation.ModuleNameIndex)
			wr.u64(c.Invocation.FunctionNameIndex)
			wr.u64(c.Invocation.ArgCount)
		}
	}

	if wr.err != nil {
		return vmerr.New(vmerr.IoError, "encode module: %v", wr.err)
	}
	return nil
}

type reader struct {
	r   io.Reader
	err error
}

func (rd *reader) u64() uint64 {
	if rd.err != nil {
		return 0
	}
	var buf [8]byte
	if _, err := io.ReadFull(rd.r, buf[:]); err != nil {
		rd.err = err
		return 0
	}
	return byteOrder.Uint64(buf[:])
}

func (rd *reader) i64() int64 { return int64(rd.u64()) }

func (rd *reader) raw(n uint64) []byte {
	if rd.err != nil {
		return nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		rd.err = err
		return nil
	}
	return buf
}

func (rd *reader) byte() byte {
	b := rd.raw(1)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

func (rd *reader) str() string { return string(rd.bytesField()) }

func (rd *reader) bytesField() []byte {
	n := rd.u64()
	return rd.raw(n)
}

func (rd *reader) strList() []string {
	n := rd.u64()
	out := make([]string, 0, n)
	for i := uint64(0); i < n && rd.err == nil; i++ {
		out = append(out, rd.str())
	}
	return out
}

// Decode reads a Module from r. A module declaring a version other than
// CompatibleVersion fails with IncompatibleVersion before any further
// parsing.
func Decode(r io.Reader) (*bytecode.Module, error) {
	rd := &reader{r: r}
	m := &bytecode.Module{}
	m.Version = rd.u64()
	if rd.err != nil {
		return nil, vmerr.New(vmerr.IoError, "decode module header: %v", rd.err)
	}
	if m.Version != CompatibleVersion {
		return nil, vmerr.New(vmerr.IncompatibleVersion, "module version %d, reader accepts %d", m.Version, CompatibleVersion)
	}
	m.Name = rd.str()
	m.Imports = rd.strList()
	m.Exports = rd.strList()

	fnCount := rd.u64()
	m.Functions = make([]bytecode.Function, 0, fnCount)
	for i := uint64(0); i < fnCount && rd.err == nil; i++ {
		var fn bytecode.Function
		fn.Name = rd.str()
		fn.Arity = rd.u64()
		fn.Locals = rd.u64()
		bcCount := rd.u64()
		fn.Bytecode = make([]bytecode.Bytecode, 0, bcCount)
		for j := uint64(0); j < bcCount && rd.err == nil; j++ {
			op := bytecode.Opcode(rd.byte())
			bc := bytecode.Bytecode{Opcode: op}
			if op.HasArgument() {
				bc.Arg = rd.u64()
			}
			fn.Bytecode = append(fn.Bytecode, bc)
		}
		m.Functions = append(m.Functions, fn)
	}

	constCount := rd.u64()
	m.Constants = make([]bytecode.Constant, 0, constCount)
	for i := uint64(0); i < constCount && rd.err == nil; i++ {
		kind := bytecode.ConstantKind(rd.byte())
		c := bytecode.Constant{Kind: kind}
		switch kind {
		case bytecode.ConstInteger:
			c.Integer = rd.i64()
		case bytecode.ConstString:
			c.String = rd.bytesField()
		case bytecode.ConstInvocation:
			c.Invocation.ModuleNameIndex = rd.u64()
			c.Invocation.FunctionNameIndex = rd.u64()
			c.Invocation.ArgCount = rd.u64()
		default:
			return nil, vmerr.New(vmerr.BadBytecodeEncoding, "unknown constant kind %d", kind)
		}
		m.Constants = append(m.Constants, c)
	}

	if rd.err != nil {
		return nil, vmerr.New(vmerr.IoError, "decode module body: %v", rd.err)
	}
	return m, nil
}
