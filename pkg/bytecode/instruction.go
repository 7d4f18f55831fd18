package bytecode

import "fmt"

// Instruction is one tape-machine operation.
//
// For OpMoveCell and OpMoveCursor, Arg is the signed delta. For the loop
// instructions Arg is the index of the matching bracket; it is filled in by
// the VM's bracket-matching pass and is otherwise -1. Comment is only
// meaningful on OpNop.
type Instruction struct {
	Op      Opcode `cbor:"1,keyasint"`
	Arg     int    `cbor:"2,keyasint,omitempty"`
	Comment string `cbor:"3,keyasint,omitempty"`
}

// MoveCell adds delta to the current cell.
func MoveCell(delta int) Instruction {
	return Instruction{Op: OpMoveCell, Arg: delta}
}

// MoveCursor adds delta to the cursor.
func MoveCursor(delta int) Instruction {
	return Instruction{Op: OpMoveCursor, Arg: delta}
}

// Print writes the current cell.
func Print() Instruction { return Instruction{Op: OpPrint} }

// Read reads one input byte into the current cell.
func Read() Instruction { return Instruction{Op: OpRead} }

// LoopEnter opens a loop with an unresolved target.
func LoopEnter() Instruction { return Instruction{Op: OpLoopEnter, Arg: -1} }

// LoopExit closes a loop with an unresolved target.
func LoopExit() Instruction { return Instruction{Op: OpLoopExit, Arg: -1} }

// Nop carries a diagnostic comment and has no effect.
func Nop(comment string) Instruction {
	return Instruction{Op: OpNop, Comment: comment}
}

// String renders the instruction in the form used by disassembly and debug
// dumps, e.g. `BC(+, 3)` or `BC(NOP, "reg x")`.
func (in Instruction) String() string {
	switch in.Op {
	case OpMoveCell:
		return fmt.Sprintf("BC(+, %d)", in.Arg)
	case OpMoveCursor:
		return fmt.Sprintf("BC(>, %d)", in.Arg)
	case OpPrint, OpRead:
		return fmt.Sprintf("BC(%c)", GetOpcodeInfo(in.Op).Symbol)
	case OpLoopEnter, OpLoopExit:
		if in.Arg < 0 {
			return fmt.Sprintf("BC(%c)", GetOpcodeInfo(in.Op).Symbol)
		}
		return fmt.Sprintf("BC(%c, %d)", GetOpcodeInfo(in.Op).Symbol, in.Arg)
	case OpNop:
		return fmt.Sprintf("BC(NOP, %q)", in.Comment)
	}
	return fmt.Sprintf("BC(%s, %d)", in.Op, in.Arg)
}

// Program is an ordered instruction stream.
type Program []Instruction

// Clone returns a copy of the program that can be mutated independently.
func (p Program) Clone() Program {
	out := make(Program, len(p))
	copy(out, p)
	return out
}

// Effective returns the number of instructions that are not OpNop.
func (p Program) Effective() int {
	n := 0
	for _, in := range p {
		if in.Op != OpNop {
			n++
		}
	}
	return n
}
