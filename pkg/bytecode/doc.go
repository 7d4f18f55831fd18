// Package bytecode defines the instruction set of the brain tape machine and
// the forms a compiled program takes outside the compiler.
//
// The machine has one byte-wide tape, one cursor and one program counter.
// Seven opcodes cover it:
//
//   - OpMoveCell: add a signed delta to the current cell (mod 256)
//   - OpMoveCursor: add a signed delta to the cursor
//   - OpPrint, OpRead: one byte of output or input
//   - OpLoopEnter, OpLoopExit: bracketed loop, targets resolved by the VM
//   - OpNop: a diagnostic comment with no effect
//
// # Serialized forms
//
// Text renders a program in the eight-symbol alphabet `+-<>.,[]`. Moves
// repeat their symbol |delta| times and Nop renders as nothing, so
//
//	{MoveCursor(+3), MoveCell(+5), MoveCursor(-3)}
//
// becomes `>>>+++++<<<`. The text form has no header, version or framing.
// ParseText reads it back, collapsing runs of one symbol into one move.
//
// Image is the richer on-disk form: the instructions with comments intact, a
// SourceMap and a build id, encoded as canonical CBOR. Images are what the
// build cache (package store) keeps.
//
// Disassemble produces an annotated listing for debugging.
package bytecode
