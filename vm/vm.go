package vm

import (
	"fmt"

	"github.com/coreledger/poachain/core"
)

// DefaultStackCapacity is the stack depth a fresh VM is given.
const DefaultStackCapacity = 256

// VM is a stack-machine bytecode interpreter. It implements core.Executor,
// the interface the chain keeper calls once per transaction during block
// admission.
type VM struct {
	capacity int
}

// New returns a VM with the default stack capacity.
func New() *VM {
	return &VM{capacity: DefaultStackCapacity}
}

// NewWithCapacity returns a VM whose stack can hold at most capacity items.
func NewWithCapacity(capacity int) *VM {
	return &VM{capacity: capacity}
}

// Execute runs code against state. Each transaction gets a fresh
// instruction pointer and stack; nothing survives between calls except
// whatever Get/Store wrote to state.
//
// The bytecode format interleaves operand bytes with opcode bytes: a
// Push* instruction reads its operand from the byte immediately
// preceding it, not the one following. This mirrors the reference
// interpreter's instruction-pointer walk exactly.
func (vm *VM) Execute(state core.State, code []byte) error {
	stack := NewStack(vm.capacity)
	ip := 0

	for {
		if instr, ok := decodeInstruction(code[ip]); ok {
			if err := vm.step(stack, state, instr, code, ip); err != nil {
				return fmt.Errorf("vm: %s at ip %d: %w", instr, ip, err)
			}
		}
		ip++
		if ip >= len(code) {
			break
		}
	}
	return nil
}

func (vm *VM) step(stack *Stack, state core.State, instr Instruction, code []byte, ip int) error {
	switch instr {
	case PushBool:
		b, err := operandAt(code, ip)
		if err != nil {
			return err
		}
		return stack.Push(BoolItem(b != 0))
	case PushInt:
		b, err := operandAt(code, ip)
		if err != nil {
			return err
		}
		return stack.Push(IntItem(int32(b)))
	case PushByte:
		b, err := operandAt(code, ip)
		if err != nil {
			return err
		}
		return stack.Push(ByteItem(b))
	case Add:
		return arithmetic(stack, func(a, b int32) int32 { return a + b })
	case Sub:
		return arithmetic(stack, func(a, b int32) int32 { return a - b })
	case Mul:
		return arithmetic(stack, func(a, b int32) int32 { return a * b })
	case Div:
		return arithmetic(stack, func(a, b int32) int32 { return a / b })
	case Get:
		key, err := stack.Pop()
		if err != nil {
			return err
		}
		val, err := state.Get(key.Encode())
		if err != nil {
			return err
		}
		item, err := DecodeItem(val)
		if err != nil {
			return err
		}
		return stack.Push(item)
	case Store:
		key, err := stack.Pop()
		if err != nil {
			return err
		}
		val, err := stack.Pop()
		if err != nil {
			return err
		}
		return state.Set(key.Encode(), val.Encode())
	}
	return nil
}

func operandAt(code []byte, ip int) (byte, error) {
	i := ip - 1
	if i < 0 {
		return 0, fmt.Errorf("no operand byte before ip %d", ip)
	}
	return code[i], nil
}

func arithmetic(stack *Stack, f func(a, b int32) int32) error {
	a, err := stack.Pop()
	if err != nil {
		return err
	}
	b, err := stack.Pop()
	if err != nil {
		return err
	}
	if a.Kind != KindInt || b.Kind != KindInt {
		return fmt.Errorf("arithmetic requires two Int operands")
	}
	return stack.Push(IntItem(f(a.Int, b.Int)))
}

var _ core.Executor = (*VM)(nil)
