package bytecode

import (
	"fmt"
	"io"
)

// Decompile writes a human-readable dump of m: its name/imports/exports,
// each function's bytecode with operand-resolved constants inlined as a
// trailing comment, and the constant pool itself. Mirrors the original
// implementation's decompile command, which exists to let a developer
// inspect a compiled module without re-reading its source.
func Decompile(w io.Writer, m *Module) error {
	if _, err := fmt.Fprintf(w, "module %s (version %d)\n", m.Name, m.Version); err != nil {
		return err
	}
	if len(m.Imports) > 0 {
		fmt.Fprintf(w, "imports: %v\n", m.Imports)
	}
	if len(m.Exports) > 0 {
		fmt.Fprintf(w, "exports: %v\n", m.Exports)
	}

	fmt.Fprintf(w, "\nconstants (%d):\n", len(m.Constants))
	for i, c := range m.Constants {
		fmt.Fprintf(w, "  [%d] %s\n", i, describeConstant(c))
	}

	for _, fn := range m.Functions {
		fmt.Fprintf(w, "\nfunction %s  (arity=%d locals=%d)\n", fn.Name, fn.Arity, fn.Locals)
		for pc, bc := range fn.Bytecode {
			line := fmt.Sprintf("  %4d  %-12s", pc, bc.Opcode)
			if bc.Opcode.HasArgument() {
				line += fmt.Sprintf(" %d", bc.Arg)
			}
			if comment := operandComment(m, bc); comment != "" {
				line += "  ; " + comment
			}
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

func describeConstant(c Constant) string {
	switch c.Kind {
	case ConstInteger:
		return fmt.Sprintf("Integer %d", c.Integer)
	case ConstString:
		return fmt.Sprintf("String %q", string(c.String))
	case ConstInvocation:
		return fmt.Sprintf("Invocation module=#%d function=#%d argc=%d",
			c.Invocation.ModuleNameIndex, c.Invocation.FunctionNameIndex, c.Invocation.ArgCount)
	default:
		return "unknown constant"
	}
}

// operandComment resolves the constant-pool operand of opcodes that index
// into it, so a reader sees the literal value inline instead of a bare
// index.
func operandComment(m *Module, bc Bytecode) string {
	switch bc.Opcode {
	case LoadInteger, LoadString, Invoke:
		if bc.Arg >= uint64(len(m.Constants)) {
			return "out of range"
		}
		return describeConstant(m.Constants[bc.Arg])
	default:
		return ""
	}
}
