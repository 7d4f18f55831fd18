package bytecode

import (
	"strings"
	"testing"
)

func TestDisassembleEmpty(t *testing.T) {
	output := Disassemble(nil)

	if !strings.Contains(output, "Brain Bytecode") {
		t.Error("Disassembly missing header")
	}
	if !strings.Contains(output, "; Code:") {
		t.Error("Disassembly missing code section")
	}
}

func TestDisassembleSimple(t *testing.T) {
	prog := []Instruction{Nop("reg x"), MoveCursor(2), LoopEnter(), MoveCell(-1), LoopExit(), Print()}

	output := Disassemble(prog)

	for _, want := range []string{"NOP ; reg x", "MOVE_CURSOR +2", "LOOP_ENTER", "  MOVE_CELL -1", "LOOP_EXIT", "PRINT"} {
		if !strings.Contains(output, want) {
			t.Errorf("Missing %q in:\n%s", want, output)
		}
	}
}

func TestDisassembleWithSourceMap(t *testing.T) {
	prog := []Instruction{MoveCell(1), Print()}
	sm := SourceMap{{File: "main.br", Line: 3, Column: 1}, {}}

	output := DisassembleWithName("main", prog, sm)

	if !strings.Contains(output, "; === main ===") {
		t.Error("Missing name header")
	}
	if !strings.Contains(output, "; line main.br:3:1") {
		t.Errorf("Missing source location in:\n%s", output)
	}
	if strings.Count(output, "; line") != 1 {
		t.Errorf("synthetic instruction should not carry a location:\n%s", output)
	}
}
