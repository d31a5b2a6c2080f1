package vm

import "fmt"

// Instruction is a single opcode byte. Values match the reference
// bytecode format one-for-one.
type Instruction byte

const (
	PushInt  Instruction = 0xaa
	PushBool Instruction = 0xab
	PushByte Instruction = 0xac
	Add      Instruction = 0xad
	Sub      Instruction = 0xae
	Get      Instruction = 0xaf
	Mul      Instruction = 0xba
	Div      Instruction = 0xbb
	Store    Instruction = 0xbc
)

// decodeInstruction reports whether b is a recognized opcode. A byte that
// isn't one of the known opcodes is not an error here: the bytecode format
// interleaves opcode bytes with raw operand bytes the push instructions
// read by looking one position back, so the decode loop must be able to
// silently step over operand bytes.
func decodeInstruction(b byte) (Instruction, bool) {
	switch Instruction(b) {
	case PushInt, PushBool, PushByte, Add, Sub, Get, Mul, Div, Store:
		return Instruction(b), true
	default:
		return 0, false
	}
}

func (i Instruction) String() string {
	switch i {
	case PushInt:
		return "PushInt"
	case PushBool:
		return "PushBool"
	case PushByte:
		return "PushByte"
	case Add:
		return "Add"
	case Sub:
		return "Sub"
	case Get:
		return "Get"
	case Mul:
		return "Mul"
	case Div:
		return "Div"
	case Store:
		return "Store"
	default:
		return fmt.Sprintf("Instruction(0x%02x)", byte(i))
	}
}
