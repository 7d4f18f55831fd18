package bytecode

import "fmt"

// Opcode identifies a tape-machine instruction.
type Opcode byte

const (
	OpNop        Opcode = 0x00 // No effect; carries a diagnostic comment
	OpMoveCell   Opcode = 0x01 // Add Arg to the current cell (mod 256)
	OpMoveCursor Opcode = 0x02 // Add Arg to the cursor
	OpPrint      Opcode = 0x03 // Write the current cell to output
	OpRead       Opcode = 0x04 // Read one byte of input into the current cell
	OpLoopEnter  Opcode = 0x05 // Jump past the matching exit if the cell is zero
	OpLoopExit   Opcode = 0x06 // Jump back to the matching enter if the cell is non-zero
)

// OpcodeInfo provides metadata about each opcode for debugging and
// serialization.
type OpcodeInfo struct {
	Name     string // Human-readable name
	Symbol   byte   // Text symbol for a positive (or unsigned) instruction, 0 if none
	Negative byte   // Text symbol for a negative Arg, 0 if the op is unsigned
	Counted  bool   // Arg is a repeat count rather than a jump target
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop:        {"NOP", 0, 0, false},
	OpMoveCell:   {"MOVE_CELL", '+', '-', true},
	OpMoveCursor: {"MOVE_CURSOR", '>', '<', true},
	OpPrint:      {"PRINT", '.', 0, false},
	OpRead:       {"READ", ',', 0, false},
	OpLoopEnter:  {"LOOP_ENTER", '[', 0, false},
	OpLoopExit:   {"LOOP_EXIT", ']', 0, false},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsLoop returns true for the two bracket instructions.
func (op Opcode) IsLoop() bool {
	return op == OpLoopEnter || op == OpLoopExit
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}

// symbolOp is the decoded meaning of one text symbol.
type symbolOp struct {
	op   Opcode
	sign int
}

// symbolOps maps each text symbol back to its opcode and sign.
var symbolOps = func() map[byte]symbolOp {
	m := make(map[byte]symbolOp)
	for op, info := range opcodeInfoTable {
		if info.Symbol != 0 {
			m[info.Symbol] = symbolOp{op, 1}
		}
		if info.Negative != 0 {
			m[info.Negative] = symbolOp{op, -1}
		}
	}
	return m
}()

// AllOpcodes returns every defined opcode in numeric order.
func AllOpcodes() []Opcode {
	return []Opcode{OpNop, OpMoveCell, OpMoveCursor, OpPrint, OpRead, OpLoopEnter, OpLoopExit}
}
