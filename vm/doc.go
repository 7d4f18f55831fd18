// Package vm runs brain bytecode.
//
// The machine is a single step loop over a flat instruction stream with one
// cursor into a growable byte tape (Memory). Loop brackets are matched once
// when the VM is constructed, so an unbalanced program never starts.
//
// Termination is signalled by ErrHalted from Step; Run converts it into a nil
// return. Cursors may go negative: those cells live on a separate tape half
// and behave like any other cell.
package vm
