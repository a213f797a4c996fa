// Package asmtext implements the line-oriented textual assembler: a
// producer of bytecode.Module from human-written source, treated as an
// external-format boundary contract — the CLI's assemble subcommand is
// its only consumer.
package asmtext

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/flisp-vm/flisp/bytecode"
	"github.com/flisp-vm/flisp/vmerr"
)

// Assemble parses r's directive-based source into a Module.
func Assemble(r io.Reader) (*bytecode.Module, error) {
	p := &parser{scanner: bufio.NewScanner(r)}
	p.scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return p.run()
}

type parser struct {
	scanner *bufio.Scanner
	lineNo  int
	module  bytecode.Module
	fn      *bytecode.Function // non-nil while inside @function..@endfunction
}

func (p *parser) fault(format string, args ...any) error {
	return vmerr.New(vmerr.BadBytecodeEncoding, "line %d: "+format, append([]any{p.lineNo}, args...)...)
}

func (p *parser) run() (*bytecode.Module, error) {
	for p.scanner.Scan() {
		p.lineNo++
		line := p.scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, ";") {
			continue
		}
		// Only leading whitespace is dropped: an @string payload may end in spaces.
		if err := p.directive(strings.TrimLeft(line, " \t")); err != nil {
			return nil, err
		}
	}
	if err := p.scanner.Err(); err != nil {
		return nil, vmerr.New(vmerr.IoError, "reading assembly source: %v", err)
	}
	if p.fn != nil {
		return nil, p.fault("missing @endfunction for %q", p.fn.Name)
	}
	return &p.module, nil
}

func (p *parser) directive(line string) error {
	if !strings.HasPrefix(line, "@") {
		return p.instruction(line)
	}
	if strings.HasPrefix(line, "@string ") {
		return p.stringConstant(line)
	}

	fields := strings.Fields(line)
	name := fields[0]
	args := fields[1:]

	switch name {
	case "@version":
		return p.u64Field(args, func(v uint64) { p.module.Version = v })
	case "@module":
		return p.nameField(args, func(s string) { p.module.Name = s })
	case "@import":
		return p.nameField(args, func(s string) { p.module.Imports = append(p.module.Imports, s) })
	case "@export":
		return p.nameField(args, func(s string) { p.module.Exports = append(p.module.Exports, s) })
	case "@function":
		return p.beginFunction(args)
	case "@arity":
		return p.requireInFunction("@arity", func() error {
			return p.u64Field(args, func(v uint64) { p.fn.Arity = v })
		})
	case "@locals":
		return p.requireInFunction("@locals", func() error {
			return p.u64Field(args, func(v uint64) { p.fn.Locals = v })
		})
	case "@integer":
		return p.integerConstant(args)
	case "@invocation":
		return p.invocationConstant(args)
	case "@endfunction":
		return p.endFunction(args)
	default:
		return p.fault("unknown directive %q", name)
	}
}

func (p *parser) requireInFunction(directive string, fn func() error) error {
	if p.fn == nil {
		return p.fault("%s outside @function block", directive)
	}
	return fn()
}

func (p *parser) u64Field(args []string, set func(uint64)) error {
	if len(args) != 1 {
		return p.fault("expected exactly one integer argument")
	}
	v, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return p.fault("invalid integer %q: %v", args[0], err)
	}
	set(v)
	return nil
}

func (p *parser) nameField(args []string, set func(string)) error {
	if len(args) != 1 {
		return p.fault("expected exactly one name argument")
	}
	set(args[0])
	return nil
}

func (p *parser) beginFunction(args []string) error {
	if p.fn != nil {
		return p.fault("@function nested inside %q", p.fn.Name)
	}
	if len(args) != 1 {
		return p.fault("@function expects exactly one name")
	}
	p.fn = &bytecode.Function{Name: args[0]}
	return nil
}

func (p *parser) endFunction(args []string) error {
	if p.fn == nil {
		return p.fault("@endfunction without matching @function")
	}
	if len(args) != 0 {
		return p.fault("@endfunction takes no arguments")
	}
	p.module.Functions = append(p.module.Functions, *p.fn)
	p.fn = nil
	return nil
}

func (p *parser) integerConstant(args []string) error {
	if len(args) != 1 {
		return p.fault("@integer expects exactly one value")
	}
	v, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return p.fault("invalid integer %q: %v", args[0], err)
	}
	p.module.Constants = append(p.module.Constants, bytecode.Constant{Kind: bytecode.ConstInteger, Integer: v})
	return nil
}

// stringConstant handles "@string <length> <raw bytes>" specially because
// the raw bytes may contain arbitrary characters, including spaces and
// semicolons, and must be taken verbatim for exactly length characters.
func (p *parser) stringConstant(line string) error {
	rest := strings.TrimPrefix(line, "@string ")
	sp := strings.IndexByte(rest, ' ')
	if sp < 0 {
		return p.fault("@string requires a length followed by its bytes")
	}
	lengthField, payload := rest[:sp], rest[sp+1:]
	length, err := strconv.Atoi(lengthField)
	if err != nil {
		return p.fault("invalid @string length %q: %v", lengthField, err)
	}
	if len(payload) < length {
		return p.fault("@string declares length %d but only %d bytes follow", length, len(payload))
	}
	p.module.Constants = append(p.module.Constants, bytecode.Constant{Kind: bytecode.ConstString, String: []byte(payload[:length])})
	return nil
}

func (p *parser) invocationConstant(args []string) error {
	if len(args) != 3 {
		return p.fault("@invocation expects module_idx function_idx argc")
	}
	vals := make([]uint64, 3)
	for i, a := range args {
		v, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			return p.fault("invalid @invocation argument %q: %v", a, err)
		}
		vals[i] = v
	}
	p.module.Constants = append(p.module.Constants, bytecode.Constant{
		Kind: bytecode.ConstInvocation,
		Invocation: bytecode.Invocation{
			ModuleNameIndex:   vals[0],
			FunctionNameIndex: vals[1],
			ArgCount:          vals[2],
		},
	})
	return nil
}

func (p *parser) instruction(line string) error {
	if p.fn == nil {
		return p.fault("instruction %q outside @function block", line)
	}
	fields := strings.Fields(line)
	op, ok := bytecode.ParseOpcode(fields[0])
	if !ok {
		return vmerr.New(vmerr.UnknownOpcode, "line %d: unknown opcode mnemonic %q", p.lineNo, fields[0])
	}
	bc := bytecode.Bytecode{Opcode: op}
	if op.HasArgument() {
		if len(fields) != 2 {
			return p.fault("%s requires exactly one argument", fields[0])
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return p.fault("invalid argument %q for %s: %v", fields[1], fields[0], err)
		}
		bc.Arg = v
	} else if len(fields) != 1 {
		return p.fault("%s takes no argument", fields[0])
	}
	p.fn.Bytecode = append(p.fn.Bytecode, bc)
	return nil
}
