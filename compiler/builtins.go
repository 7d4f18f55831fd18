package compiler

import (
	"fmt"
	"sort"

	"github.com/chazu/brain/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Builtin table
// ---------------------------------------------------------------------------

// builtins is installed into the root namespace of every compilation.
// Functions are immutable, so the table is shared between compilations.
var builtins = []*Function{
	native("__plus", func(c *Context, a Bindings) ([]bytecode.Instruction, error) {
		return []bytecode.Instruction{bytecode.MoveCell(a.Int("value"))}, nil
	}, Argument{"value", KindInt}),
	native("__minus", func(c *Context, a Bindings) ([]bytecode.Instruction, error) {
		return []bytecode.Instruction{bytecode.MoveCell(-a.Int("value"))}, nil
	}, Argument{"value", KindInt}),
	native("__move", func(c *Context, a Bindings) ([]bytecode.Instruction, error) {
		return []bytecode.Instruction{bytecode.MoveCursor(a.Int("value"))}, nil
	}, Argument{"value", KindInt}),
	native("__move_abs", func(c *Context, a Bindings) ([]bytecode.Instruction, error) {
		return []bytecode.Instruction{bytecode.MoveCursor(a.Int("value"))}, nil
	}, Argument{"value", KindInt}),
	native("__move_abs_l", func(c *Context, a Bindings) ([]bytecode.Instruction, error) {
		return []bytecode.Instruction{bytecode.MoveCursor(-a.Int("value"))}, nil
	}, Argument{"value", KindInt}),
	native("__move_rel", func(c *Context, a Bindings) ([]bytecode.Instruction, error) {
		return []bytecode.Instruction{bytecode.MoveCursor(a.Addr("to") - a.Addr("from"))}, nil
	}, Argument{"from", KindAddress}, Argument{"to", KindAddress}),
	native("__print", single(bytecode.Print)),
	native("__read", single(bytecode.Read)),
	native("__loop_enter", single(bytecode.LoopEnter)),
	native("__loop_exit", single(bytecode.LoopExit)),

	// Address helpers. Each assumes the cursor rests on cell 0 and returns
	// it there.
	native("_add", genAdd, Argument{"addr", KindAddress}, Argument{"value", KindInt}),
	native("_null", genNull, Argument{"addr", KindAddress}),
	native("_print", atAddr(bytecode.Print), Argument{"addr", KindAddress}),
	native("_read", atAddr(bytecode.Read), Argument{"addr", KindAddress}),
	native("_mov", genMov, Argument{"to", KindAddress}, Argument{"from", KindAddress}),
	native("_mov2", genMov2, Argument{"to1", KindAddress}, Argument{"to2", KindAddress}, Argument{"from", KindAddress}),

	native("reg", genReg, Argument{"name", KindIdentifier}),
	native("import", genImport, Argument{"path", KindStr}),

	{
		Name:     "macro",
		Lifetime: Global,
		Impl:     BuiltinBlock{Gen: genMacro(false)},
		Binder:   bindSignature,
	},
	{
		Name:     "macroblock",
		Lifetime: Global,
		Impl:     BuiltinBlock{Gen: genMacro(true)},
		Binder:   bindSignature,
	},
}

// Builtins returns the builtin functions in declaration order.
func Builtins() []*Function {
	out := make([]*Function, len(builtins))
	copy(out, builtins)
	return out
}

func native(name string, gen NativeFunc, args ...Argument) *Function {
	return &Function{Name: name, Args: args, Lifetime: Global, Impl: BuiltinNoBlock{Gen: gen}}
}

func single(mk func() bytecode.Instruction) NativeFunc {
	return func(*Context, Bindings) ([]bytecode.Instruction, error) {
		return []bytecode.Instruction{mk()}, nil
	}
}

// ---------------------------------------------------------------------------
// Address helpers
// ---------------------------------------------------------------------------

func atAddr(mk func() bytecode.Instruction) NativeFunc {
	return func(c *Context, a Bindings) ([]bytecode.Instruction, error) {
		addr := a.Addr("addr")
		return []bytecode.Instruction{
			bytecode.MoveCursor(addr),
			mk(),
			bytecode.MoveCursor(-addr),
		}, nil
	}
}

func genAdd(c *Context, a Bindings) ([]bytecode.Instruction, error) {
	addr := a.Addr("addr")
	return []bytecode.Instruction{
		bytecode.MoveCursor(addr),
		bytecode.MoveCell(a.Int("value")),
		bytecode.MoveCursor(-addr),
	}, nil
}

func genNull(c *Context, a Bindings) ([]bytecode.Instruction, error) {
	addr := a.Addr("addr")
	return []bytecode.Instruction{
		bytecode.MoveCursor(addr),
		bytecode.LoopEnter(),
		bytecode.MoveCell(-1),
		bytecode.LoopExit(),
		bytecode.MoveCursor(-addr),
	}, nil
}

// genMov drains from into to, leaving from at zero.
func genMov(c *Context, a Bindings) ([]bytecode.Instruction, error) {
	to, from := a.Addr("to"), a.Addr("from")
	return []bytecode.Instruction{
		bytecode.MoveCursor(from),
		bytecode.LoopEnter(),
		bytecode.MoveCell(-1),
		bytecode.MoveCursor(to - from),
		bytecode.MoveCell(1),
		bytecode.MoveCursor(from - to),
		bytecode.LoopExit(),
		bytecode.MoveCursor(-from),
	}, nil
}

// genMov2 drains from into both to1 and to2.
func genMov2(c *Context, a Bindings) ([]bytecode.Instruction, error) {
	to1, to2, from := a.Addr("to1"), a.Addr("to2"), a.Addr("from")
	return []bytecode.Instruction{
		bytecode.MoveCursor(from),
		bytecode.LoopEnter(),
		bytecode.MoveCell(-1),
		bytecode.MoveCursor(to1 - from),
		bytecode.MoveCell(1),
		bytecode.MoveCursor(to2 - to1),
		bytecode.MoveCell(1),
		bytecode.MoveCursor(from - to2),
		bytecode.LoopExit(),
		bytecode.MoveCursor(-from),
	}, nil
}

// ---------------------------------------------------------------------------
// reg
// ---------------------------------------------------------------------------

func genReg(c *Context, a Bindings) ([]bytecode.Instruction, error) {
	name := a.Ident("name")
	ns := c.Namespace()
	addr := allocateAddress(ns.Variables())
	v := NewVariable(name.Name, &AddressValue{Tok: name.Tok, Addr: addr})
	if err := ns.Push(v, Local); err != nil {
		if ce, ok := AsError(err); ok {
			ce.Token = name.Tok
		}
		return nil, err
	}
	log.Debugf("reg %s -> :%d", name.Name, addr)
	return []bytecode.Instruction{bytecode.Nop(fmt.Sprintf("reg %s :%d", name.Name, addr))}, nil
}

// allocateAddress returns the lowest non-negative address not held by any of
// the address variables in vars.
func allocateAddress(vars []*Variable) int {
	seen := make(map[int]bool)
	var used []int
	for _, v := range vars {
		addr, ok := v.Value.(*AddressValue)
		if !ok || !addr.Resolved() || addr.Addr < 0 || seen[addr.Addr] {
			continue
		}
		seen[addr.Addr] = true
		used = append(used, addr.Addr)
	}
	sort.Ints(used)
	for i, a := range used {
		if a != i {
			return i
		}
	}
	return len(used)
}

// ---------------------------------------------------------------------------
// import
// ---------------------------------------------------------------------------

func genImport(c *Context, a Bindings) ([]bytecode.Instruction, error) {
	return c.include(a.Str("path"))
}
