package bytecode

import (
	"strings"
)

// Text returns the eight-symbol textual form of the program. Moves are
// written as their symbol repeated |delta| times and Nop writes nothing.
func Text(prog []Instruction) string {
	var sb strings.Builder
	for _, in := range prog {
		writeText(&sb, in)
	}
	return sb.String()
}

// Text returns the textual form of a single instruction.
func (in Instruction) Text() string {
	var sb strings.Builder
	writeText(&sb, in)
	return sb.String()
}

func writeText(sb *strings.Builder, in Instruction) {
	info := GetOpcodeInfo(in.Op)
	if info.Symbol == 0 {
		return
	}
	if !info.Counted {
		sb.WriteByte(info.Symbol)
		return
	}
	sym, n := info.Symbol, in.Arg
	if n < 0 {
		sym, n = info.Negative, -n
	}
	for i := 0; i < n; i++ {
		sb.WriteByte(sym)
	}
}

// ParseText reads the textual form back into instructions. Consecutive
// symbols of the same kind collapse into a single move, so
// ParseText(">>>+++++<<<") yields three instructions. Characters outside the
// eight symbols are ignored, which lets commented programs load unchanged.
func ParseText(text string) []Instruction {
	var prog []Instruction
	for i := 0; i < len(text); i++ {
		so, ok := symbolOps[text[i]]
		if !ok {
			continue
		}
		if !GetOpcodeInfo(so.op).Counted {
			switch so.op {
			case OpLoopEnter:
				prog = append(prog, LoopEnter())
			case OpLoopExit:
				prog = append(prog, LoopExit())
			default:
				prog = append(prog, Instruction{Op: so.op})
			}
			continue
		}
		run := 1
		for i+1 < len(text) && text[i+1] == text[i] {
			run++
			i++
		}
		prog = append(prog, Instruction{Op: so.op, Arg: so.sign * run})
	}
	return prog
}
