package bytecode

import (
	"fmt"
	"strings"
)

// Location is the source position an instruction was generated from.
type Location struct {
	File   string `cbor:"1,keyasint,omitempty"`
	Line   int    `cbor:"2,keyasint"`
	Column int    `cbor:"3,keyasint"`
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// SourceMap holds one Location per instruction, parallel to the program.
type SourceMap []Location

// At returns the location of the instruction at index i. ok is false when
// the map does not cover i or the instruction is synthetic.
func (m SourceMap) At(i int) (Location, bool) {
	if i < 0 || i >= len(m) || m[i].Line <= 0 {
		return Location{}, false
	}
	return m[i], true
}

// Disassemble returns a human-readable listing of the program.
func Disassemble(prog []Instruction) string {
	return DisassembleWithName("", prog, nil)
}

// DisassembleWithName returns a human-readable listing with a name header.
// When sm is non-nil each line is annotated with its source location.
func DisassembleWithName(name string, prog []Instruction, sm SourceMap) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Brain Bytecode v%d\n", ImageVersion))
	sb.WriteString(fmt.Sprintf("; Instructions: %d (%d effective)\n", len(prog), Program(prog).Effective()))
	sb.WriteString("\n")

	// Code section
	sb.WriteString("; Code:\n")
	depth := 0
	for i, in := range prog {
		if in.Op == OpLoopExit && depth > 0 {
			depth--
		}
		line := strings.Repeat("  ", depth) + disassembleInstruction(in)
		if loc, ok := sm.At(i); ok {
			sb.WriteString(fmt.Sprintf("%04X  %-30s ; line %s\n", i, line, loc))
		} else {
			sb.WriteString(fmt.Sprintf("%04X  %s\n", i, line))
		}
		if in.Op == OpLoopEnter {
			depth++
		}
	}

	return sb.String()
}

// disassembleInstruction formats a single instruction.
func disassembleInstruction(in Instruction) string {
	info := GetOpcodeInfo(in.Op)

	switch in.Op {
	case OpMoveCell, OpMoveCursor:
		return fmt.Sprintf("%s %+d ; %s", info.Name, in.Arg, in.Text())
	case OpLoopEnter, OpLoopExit:
		if in.Arg >= 0 {
			return fmt.Sprintf("%s -> %04X", info.Name, in.Arg)
		}
		return info.Name
	case OpNop:
		if in.Comment != "" {
			return fmt.Sprintf("NOP ; %s", in.Comment)
		}
		return "NOP"
	}
	return info.Name
}
