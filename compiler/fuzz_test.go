package compiler

import (
	"testing"
	"testing/fstest"
)

// ---------------------------------------------------------------------------
// FuzzParse: ensure the lexer and block builder never panic on arbitrary
// input. Structural errors are acceptable; panics are not.
// ---------------------------------------------------------------------------

func FuzzParse(f *testing.F) {
	seeds := []string{
		"",
		"__plus 1",
		"reg x\n_add x 5",
		"macro global inc int n\n    __plus n",
		"macroblock local twice\n    code\n    code\ntwice\n    __plus 1",
		"  bad indent",
		"a\n        too deep",
		"\tleading tab",
		"# comment only\n\n\n",
		"a b c # trailing comment",
		"    \n    \n",
		"a\n    b\n        c\n    d\ne",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("parse panicked on input %q: %v", data, r)
			}
		}()

		root, err := ParseString(data)
		if err != nil {
			return
		}
		checkLevels(t, root)
	})
}

// ---------------------------------------------------------------------------
// FuzzCompile: ensure compilation never panics. Any compile error is fine.
// ---------------------------------------------------------------------------

func FuzzCompile(f *testing.F) {
	seeds := []string{
		"__plus 3\n__print",
		"reg a\nreg b\n_mov b a",
		"macro global m address a\n    _add a 1\nreg x\nm x",
		"macroblock global loop address a\n    __move_rel :0 a\n    __loop_enter\n    __move_rel a :0\n    code\n    __move_rel :0 a\n    __loop_exit\n    __move_rel a :0\nreg c\nloop c\n    _add c -1",
		"macro global r\n    r\nr",
		"code",
		"import 'nowhere.br'",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("compile panicked on input %q: %v", data, r)
			}
		}()
		cm := New(WithMaxDepth(64), WithLoader(&FSLoader{FS: fstest.MapFS{}}))
		_, _ = cm.CompileString("fuzz.br", data)
	})
}
