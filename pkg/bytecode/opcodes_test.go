package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	// Ensure every defined opcode has metadata
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", byte(op))
		}
	}
	if OpcodeCount() != len(AllOpcodes()) {
		t.Errorf("OpcodeCount() = %d, AllOpcodes() has %d", OpcodeCount(), len(AllOpcodes()))
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpNop, "NOP"},
		{OpMoveCell, "MOVE_CELL"},
		{OpMoveCursor, "MOVE_CURSOR"},
		{OpPrint, "PRINT"},
		{OpRead, "READ"},
		{OpLoopEnter, "LOOP_ENTER"},
		{OpLoopExit, "LOOP_EXIT"},
	}

	for _, tt := range tests {
		got := tt.op.String()
		if got != tt.want {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", byte(tt.op), got, tt.want)
		}
	}
}

func TestUnknownOpcodeString(t *testing.T) {
	op := Opcode(0xEE) // Not defined
	got := op.String()
	if !strings.HasPrefix(got, "UNKNOWN") {
		t.Errorf("Unknown opcode should return UNKNOWN, got %q", got)
	}
}

func TestSymbolsAreUnique(t *testing.T) {
	seen := make(map[byte]Opcode)
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		for _, sym := range []byte{info.Symbol, info.Negative} {
			if sym == 0 {
				continue
			}
			if other, dup := seen[sym]; dup {
				t.Errorf("symbol %q used by both %s and %s", sym, other, op)
			}
			seen[sym] = op
		}
	}
	if len(seen) != 8 {
		t.Errorf("expected 8 text symbols, got %d", len(seen))
	}
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		in   Instruction
		want string
	}{
		{MoveCell(3), "BC(+, 3)"},
		{MoveCell(-2), "BC(+, -2)"},
		{MoveCursor(-1), "BC(>, -1)"},
		{Print(), "BC(.)"},
		{Read(), "BC(,)"},
		{LoopEnter(), "BC([)"},
		{Instruction{Op: OpLoopExit, Arg: 4}, "BC(], 4)"},
		{Nop("reg x"), `BC(NOP, "reg x")`},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestProgramCloneIsIndependent(t *testing.T) {
	p := Program{LoopEnter(), LoopExit()}
	c := p.Clone()
	c[0].Arg = 1
	if p[0].Arg != -1 {
		t.Errorf("clone shares storage with original")
	}
}
