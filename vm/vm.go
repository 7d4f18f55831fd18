package vm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/brain/pkg/bytecode"
)

var log = commonlog.GetLogger("brain.vm")

var (
	// ErrHalted is returned by Step once the program counter has moved past
	// the last instruction. It is the normal termination signal.
	ErrHalted = errors.New("vm: halted")
	// ErrUnbalanced is returned by New for programs whose loop brackets do
	// not pair up.
	ErrUnbalanced = errors.New("vm: unbalanced loop brackets")
	// ErrStepLimit is returned when a configured step limit is exceeded.
	ErrStepLimit = errors.New("vm: step limit exceeded")
)

// ---------------------------------------------------------------------------
// EOF policy
// ---------------------------------------------------------------------------

// EOFPolicy selects what a Read does once the input is exhausted.
type EOFPolicy int

const (
	// EOFHalt stops the machine as if it had run off the end of the program.
	EOFHalt EOFPolicy = iota
	// EOFZero stores 0 in the current cell and continues.
	EOFZero
	// EOFKeep leaves the current cell unchanged and continues.
	EOFKeep
)

var eofPolicyNames = map[EOFPolicy]string{
	EOFHalt: "halt",
	EOFZero: "zero",
	EOFKeep: "keep",
}

func (p EOFPolicy) String() string {
	if name, ok := eofPolicyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("EOFPolicy(%d)", p)
}

// ParseEOFPolicy reads a policy name as written in configuration.
func ParseEOFPolicy(s string) (EOFPolicy, error) {
	for p, name := range eofPolicyNames {
		if strings.EqualFold(name, s) {
			return p, nil
		}
	}
	return EOFHalt, fmt.Errorf("vm: unknown eof policy %q (want halt, zero or keep)", s)
}

// ---------------------------------------------------------------------------
// VM
// ---------------------------------------------------------------------------

// Option configures a VM.
type Option func(*VM)

// WithInput sets the stream Read consumes. Without it every Read sees EOF.
func WithInput(r io.Reader) Option {
	return func(v *VM) {
		if r == nil {
			v.in = nil
			return
		}
		if br, ok := r.(io.ByteReader); ok {
			v.in = br
		} else {
			v.in = bufio.NewReader(r)
		}
	}
}

// WithOutput sets the stream Print writes to. Without it output is discarded.
func WithOutput(w io.Writer) Option {
	return func(v *VM) {
		if w != nil {
			v.out = w
		}
	}
}

// WithEOFPolicy sets the behavior of Read on exhausted input.
func WithEOFPolicy(p EOFPolicy) Option {
	return func(v *VM) { v.eof = p }
}

// WithStepLimit stops Run with ErrStepLimit after n instructions. Zero means
// no limit.
func WithStepLimit(n int) Option {
	return func(v *VM) { v.maxSteps = n }
}

// WithMemory runs the program against an existing tape.
func WithMemory(m *Memory) Option {
	return func(v *VM) { v.mem = m }
}

// VM executes a flat instruction stream against a Memory tape.
type VM struct {
	code   []bytecode.Instruction // private copy with loop targets resolved
	pc     int
	cursor int
	mem    *Memory

	in       io.ByteReader
	out      io.Writer
	eof      EOFPolicy
	maxSteps int
	steps    int
	halted   bool
}

// New prepares a program for execution. The program is copied and its loop
// brackets matched once; an unbalanced program is rejected here.
func New(code []bytecode.Instruction, opts ...Option) (*VM, error) {
	v := &VM{
		code: bytecode.Program(code).Clone(),
		out:  io.Discard,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.mem == nil {
		v.mem = NewMemory()
	}
	if err := matchBrackets(v.code); err != nil {
		return nil, err
	}
	log.Debugf("loaded program: %d instructions", len(v.code))
	return v, nil
}

// matchBrackets cross-links every LoopEnter with its LoopExit.
func matchBrackets(code []bytecode.Instruction) error {
	var stack []int
	for i := range code {
		switch code[i].Op {
		case bytecode.OpLoopEnter:
			stack = append(stack, i)
		case bytecode.OpLoopExit:
			if len(stack) == 0 {
				return fmt.Errorf("%w: unmatched loop exit at %d", ErrUnbalanced, i)
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			code[open].Arg = i
			code[i].Arg = open
		}
	}
	if len(stack) > 0 {
		return fmt.Errorf("%w: unmatched loop enter at %d", ErrUnbalanced, stack[len(stack)-1])
	}
	return nil
}

// PC returns the index of the next instruction.
func (v *VM) PC() int { return v.pc }

// Cursor returns the current tape index.
func (v *VM) Cursor() int { return v.cursor }

// Memory returns the tape.
func (v *VM) Memory() *Memory { return v.mem }

// Steps returns the number of instructions executed so far.
func (v *VM) Steps() int { return v.steps }

// Halted reports whether the machine has terminated.
func (v *VM) Halted() bool { return v.halted || v.pc >= len(v.code) }

// Step executes one instruction. It returns ErrHalted when there is nothing
// left to execute; other errors come from the input or output stream.
func (v *VM) Step() error {
	if v.Halted() {
		v.halted = true
		return ErrHalted
	}
	if v.maxSteps > 0 && v.steps >= v.maxSteps {
		return fmt.Errorf("%w: %d", ErrStepLimit, v.maxSteps)
	}
	v.steps++

	in := v.code[v.pc]
	switch in.Op {
	case bytecode.OpMoveCell:
		v.mem.Add(v.cursor, in.Arg)
	case bytecode.OpMoveCursor:
		v.cursor += in.Arg
	case bytecode.OpPrint:
		if _, err := v.out.Write([]byte{v.mem.Get(v.cursor)}); err != nil {
			return fmt.Errorf("vm: write: %w", err)
		}
	case bytecode.OpRead:
		if err := v.read(); err != nil {
			if errors.Is(err, ErrHalted) {
				v.halted = true
			}
			return err
		}
	case bytecode.OpLoopEnter:
		if v.mem.Get(v.cursor) == 0 {
			v.pc = in.Arg
		}
	case bytecode.OpLoopExit:
		if v.mem.Get(v.cursor) != 0 {
			v.pc = in.Arg
		}
	case bytecode.OpNop:
	}
	v.pc++
	return nil
}

func (v *VM) read() error {
	var (
		b   byte
		err error
	)
	if v.in == nil {
		err = io.EOF
	} else {
		b, err = v.in.ReadByte()
	}
	switch {
	case err == nil:
		v.mem.Set(v.cursor, int(b))
		return nil
	case errors.Is(err, io.EOF):
		switch v.eof {
		case EOFZero:
			v.mem.Set(v.cursor, 0)
		case EOFKeep:
		default:
			log.Debugf("input exhausted at pc %d, halting", v.pc)
			return ErrHalted
		}
		return nil
	default:
		return fmt.Errorf("vm: read: %w", err)
	}
}

// Run steps until the program halts. Normal termination returns nil.
func (v *VM) Run() error {
	for {
		if err := v.Step(); err != nil {
			if errors.Is(err, ErrHalted) {
				log.Debugf("halted after %d steps", v.steps)
				return nil
			}
			return err
		}
	}
}

// Exec runs a program to completion with the given streams and returns the
// final tape.
func Exec(code []bytecode.Instruction, in io.Reader, out io.Writer, opts ...Option) (*Memory, error) {
	opts = append([]Option{WithInput(in), WithOutput(out)}, opts...)
	v, err := New(code, opts...)
	if err != nil {
		return nil, err
	}
	if err := v.Run(); err != nil {
		return v.Memory(), err
	}
	return v.Memory(), nil
}
