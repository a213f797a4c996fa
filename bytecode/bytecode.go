// Package bytecode defines the in-memory Module/Function/Constant/Bytecode
// model shared by the module loader, the textual assembler, and
// the interpreter.
package bytecode

// Opcode enumerates the complete, fixed opcode set. No opcode may be added
// without updating moduleio, asmtext, and interp together.
type Opcode uint8

const (
	Halt Opcode = iota
	LoadNil
	LoadTrue
	LoadFalse
	LoadInteger
	LoadString
	LoadUnsigned
	LoadLocal
	StoreLocal
	Pop
	Jump
	JumpIfFalse
	Invoke
	Return
)

var opcodeNames = map[Opcode]string{
	Halt:         "Halt",
	LoadNil:      "LoadNil",
	LoadTrue:     "LoadTrue",
	LoadFalse:    "LoadFalse",
	LoadInteger:  "LoadInteger",
	LoadString:   "LoadString",
	LoadUnsigned: "LoadUnsigned",
	LoadLocal:    "LoadLocal",
	StoreLocal:   "StoreLocal",
	Pop:          "Pop",
	Jump:         "Jump",
	JumpIfFalse:  "JumpIfFalse",
	Invoke:       "Invoke",
	Return:       "Return",
}

var namesToOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		m[name] = op
	}
	return m
}()

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "Unknown"
}

// ParseOpcode resolves a mnemonic to its Opcode; ok is false for an unknown
// mnemonic (the assembler turns that into an UnknownOpcode fault).
func ParseOpcode(name string) (Opcode, bool) {
	op, ok := namesToOpcode[name]
	return op, ok
}

// HasArgument reports whether the opcode carries an optional u64 argument.
func (op Opcode) HasArgument() bool {
	switch op {
	case LoadInteger, LoadString, LoadUnsigned, LoadLocal, StoreLocal, Jump, JumpIfFalse, Invoke:
		return true
	default:
		return false
	}
}

// Bytecode is one instruction: an opcode plus an optional u64 argument.
type Bytecode struct {
	Opcode Opcode
	Arg    uint64 // meaningful only when Opcode.HasArgument()
}

// ConstantKind tags a Constant's variant.
type ConstantKind uint8

const (
	ConstInteger ConstantKind = iota
	ConstString
	ConstInvocation
)

// Invocation names a callee by (module-name-index, function-name-index,
// argument count), where the two indices point at String constants earlier
// in the same pool.
type Invocation struct {
	ModuleNameIndex   uint64
	FunctionNameIndex uint64
	ArgCount          uint64
}

// Constant is a tagged union: Integer(i64) | String(bytes) | Invocation.
type Constant struct {
	Kind       ConstantKind
	Integer    int64
	String     []byte
	Invocation Invocation
}

// Function is one compiled function: its bytecode body, declared arity,
// and local-slot count.
type Function struct {
	Name      string
	Arity     uint64
	Locals    uint64
	Bytecode  []Bytecode
}

// Module is the unit of compilation and loading.
type Module struct {
	Version   uint64
	Name      string
	Imports   []string
	Exports   []string
	Functions []Function
	Constants []Constant
}

// FunctionByName returns the function with the given name, or (nil, false).
func (m *Module) FunctionByName(name string) (*Function, bool) {
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return &m.Functions[i], true
		}
	}
	return nil, false
}
