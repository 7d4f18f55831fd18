package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const counterDoc = `reg total
macro global bump address a
    _add a 1
bump total
bump total
`

// ---------------------------------------------------------------------------
// Text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix_SimpleWord(t *testing.T) {
	text := "reg total"
	pos := protocol.Position{Line: 0, Character: 9}
	prefix := extractPrefix(text, pos)
	if prefix != "total" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "total")
	}
}

func TestExtractPrefix_AtStart(t *testing.T) {
	text := "mac"
	pos := protocol.Position{Line: 0, Character: 3}
	prefix := extractPrefix(text, pos)
	if prefix != "mac" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "mac")
	}
}

func TestExtractPrefix_EmptyLine(t *testing.T) {
	text := ""
	pos := protocol.Position{Line: 0, Character: 0}
	prefix := extractPrefix(text, pos)
	if prefix != "" {
		t.Errorf("extractPrefix = %q, want empty string", prefix)
	}
}

func TestExtractPrefix_MultiLine(t *testing.T) {
	text := "reg x\nreg y\n    _ad"
	pos := protocol.Position{Line: 2, Character: 7}
	prefix := extractPrefix(text, pos)
	if prefix != "_ad" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "_ad")
	}
}

func TestExtractPrefix_Underscores(t *testing.T) {
	text := "__move_re"
	pos := protocol.Position{Line: 0, Character: 9}
	prefix := extractPrefix(text, pos)
	if prefix != "__move_re" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "__move_re")
	}
}

func TestExtractPrefix_AfterSpace(t *testing.T) {
	text := "bump "
	pos := protocol.Position{Line: 0, Character: 5}
	prefix := extractPrefix(text, pos)
	if prefix != "" {
		t.Errorf("extractPrefix = %q, want empty string", prefix)
	}
}

func TestExtractPrefix_LineOutOfRange(t *testing.T) {
	pos := protocol.Position{Line: 5, Character: 0}
	if prefix := extractPrefix("reg x", pos); prefix != "" {
		t.Errorf("extractPrefix = %q, want empty string", prefix)
	}
}

func TestExtractWord_Middle(t *testing.T) {
	text := "bump total"
	pos := protocol.Position{Line: 0, Character: 7}
	word := extractWord(text, pos)
	if word != "total" {
		t.Errorf("extractWord = %q, want %q", word, "total")
	}
}

func TestExtractWord_Start(t *testing.T) {
	text := "bump total"
	pos := protocol.Position{Line: 0, Character: 0}
	word := extractWord(text, pos)
	if word != "bump" {
		t.Errorf("extractWord = %q, want %q", word, "bump")
	}
}

func TestExtractWord_StopsAtColon(t *testing.T) {
	text := "_add :3 5"
	pos := protocol.Position{Line: 0, Character: 6}
	word := extractWord(text, pos)
	if word != "3" {
		t.Errorf("extractWord = %q, want %q", word, "3")
	}
}

func TestExtractWord_Whitespace(t *testing.T) {
	text := "a    b"
	pos := protocol.Position{Line: 0, Character: 3}
	if word := extractWord(text, pos); word != "" {
		t.Errorf("extractWord = %q, want empty string", word)
	}
}

// ---------------------------------------------------------------------------
// Compile-backed features
// ---------------------------------------------------------------------------

func openDoc(t *testing.T, uri protocol.DocumentUri, text string) (*LspServer, []protocol.Diagnostic) {
	t.Helper()
	s := NewLSP()
	return s, s.update(uri, text)
}

func TestUpdateCleanDocument(t *testing.T) {
	s, diags := openDoc(t, "counter.br", counterDoc)
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %v, want none", diags)
	}
	if s.analysis("counter.br") == nil {
		t.Fatal("no analysis stored")
	}
	if text, ok := s.document("counter.br"); !ok || text != counterDoc {
		t.Errorf("document = %q, %v", text, ok)
	}
}

func TestDiagnosticRange(t *testing.T) {
	s, diags := openDoc(t, "bad.br", "reg x\nfrobnicate x\n")
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	d := diags[0]
	if !strings.Contains(d.Message, "frobnicate") {
		t.Errorf("message = %q", d.Message)
	}
	want := protocol.Range{
		Start: protocol.Position{Line: 1, Character: 0},
		End:   protocol.Position{Line: 1, Character: 10},
	}
	if d.Range != want {
		t.Errorf("range = %+v, want %+v", d.Range, want)
	}
	if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityError {
		t.Error("severity is not Error")
	}
	if s.analysis("bad.br") != nil {
		t.Error("failed compile stored an analysis")
	}
}

func TestDiagnosticInsideMacroIncludesTrace(t *testing.T) {
	doc := "macro global broken\n    missing\nbroken\n"
	_, diags := openDoc(t, "trace.br", doc)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	d := diags[0]
	if d.Range.Start.Line != 1 || d.Range.Start.Character != 4 {
		t.Errorf("range start = %+v, want 1:4", d.Range.Start)
	}
	if !strings.Contains(d.Message, "macro broken()") {
		t.Errorf("message has no trace: %q", d.Message)
	}
}

func TestFailedUpdateKeepsPreviousAnalysis(t *testing.T) {
	s, _ := openDoc(t, "counter.br", counterDoc)
	first := s.analysis("counter.br")
	if diags := s.update("counter.br", counterDoc+"nope\n"); len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	if s.analysis("counter.br") != first {
		t.Error("analysis replaced by a failed compile")
	}
	if text, _ := s.document("counter.br"); !strings.HasSuffix(text, "nope\n") {
		t.Error("document text not updated")
	}
}

func TestCompleteFromAnalysis(t *testing.T) {
	s, _ := openDoc(t, "counter.br", counterDoc)

	items := s.complete("counter.br", "bu")
	if len(items) != 1 || items[0].Label != "bump" {
		t.Fatalf("complete(bu) = %v", labels(items))
	}
	if *items[0].Detail != "macro bump(a address)" {
		t.Errorf("detail = %q", *items[0].Detail)
	}
	if *items[0].Kind != protocol.CompletionItemKindFunction {
		t.Errorf("kind = %v, want function", *items[0].Kind)
	}

	items = s.complete("counter.br", "to")
	if len(items) != 1 || items[0].Label != "total" {
		t.Fatalf("complete(to) = %v", labels(items))
	}
	if *items[0].Kind != protocol.CompletionItemKindVariable {
		t.Errorf("kind = %v, want variable", *items[0].Kind)
	}
}

func TestCompleteBuiltinsWithoutAnalysis(t *testing.T) {
	s := NewLSP()
	items := s.complete("unknown.br", "_m")
	got := labels(items)
	want := []string{"_mov", "_mov2"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("complete(_m) = %v, want %v", got, want)
	}
	for _, it := range items {
		if *it.Kind != protocol.CompletionItemKindKeyword {
			t.Errorf("%s kind = %v, want keyword", it.Label, *it.Kind)
		}
	}
}

func TestHover(t *testing.T) {
	s, _ := openDoc(t, "counter.br", counterDoc)

	h := s.hover("counter.br", "bump")
	if h == nil {
		t.Fatal("no hover for bump")
	}
	content := h.Contents.(protocol.MarkupContent)
	if !strings.Contains(content.Value, "macro bump(a address)") {
		t.Errorf("hover = %q", content.Value)
	}
	if !strings.Contains(content.Value, "counter.br:2") {
		t.Errorf("hover has no location: %q", content.Value)
	}

	h = s.hover("counter.br", "total")
	if h == nil {
		t.Fatal("no hover for total")
	}
	if content := h.Contents.(protocol.MarkupContent); !strings.Contains(content.Value, "total => address") {
		t.Errorf("hover = %q", content.Value)
	}

	if h := s.hover("counter.br", "missing"); h != nil {
		t.Errorf("hover(missing) = %v, want nil", h)
	}
}

func TestDefinition(t *testing.T) {
	s, _ := openDoc(t, "counter.br", counterDoc)

	loc := s.definition("counter.br", "bump")
	if loc == nil {
		t.Fatal("no definition for bump")
	}
	if loc.URI != "counter.br" {
		t.Errorf("uri = %q", loc.URI)
	}
	if loc.Range.Start != (protocol.Position{Line: 1, Character: 13}) {
		t.Errorf("start = %+v, want 1:13", loc.Range.Start)
	}

	loc = s.definition("counter.br", "total")
	if loc == nil {
		t.Fatal("no definition for total")
	}
	if loc.Range.Start != (protocol.Position{Line: 0, Character: 4}) {
		t.Errorf("start = %+v, want 0:4", loc.Range.Start)
	}

	if loc := s.definition("counter.br", "_add"); loc != nil {
		t.Errorf("builtin has definition %+v", loc)
	}
}

func TestReferences(t *testing.T) {
	s, _ := openDoc(t, "counter.br", counterDoc)

	refs := s.references("counter.br", "bump")
	if len(refs) != 2 {
		t.Fatalf("got %d references, want 2", len(refs))
	}
	for i, line := range []protocol.UInteger{3, 4} {
		if refs[i].Range.Start.Line != line {
			t.Errorf("ref %d on line %d, want %d", i, refs[i].Range.Start.Line, line)
		}
	}

	if refs := s.references("counter.br", "nothing"); refs != nil {
		t.Errorf("references(nothing) = %v", refs)
	}
}

func TestProjectSearchPaths(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib")
	if err := os.MkdirAll(lib, 0o755); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, filepath.Join(dir, "brain.toml"), "[source]\ndirs = [\"lib\"]\n")
	writeTestFile(t, filepath.Join(lib, "util.br"), "macro global zero address a\n    _null a\n")

	path := filepath.Join(dir, "main.br")
	uri := fileURI(path)
	s, diags := openDoc(t, uri, "import \"util.br\"\nreg x\nzero x\n")
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %v", diags)
	}
	loc := s.definition(uri, "zero")
	if loc == nil {
		t.Fatal("no definition for zero")
	}
	if uriPath(loc.URI) != filepath.Join(lib, "util.br") {
		t.Errorf("definition in %s", uriPath(loc.URI))
	}
}

func TestDiagnosticFromImportedUnit(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "util.br"), "macro global bad\n    nothing\n")

	uri := fileURI(filepath.Join(dir, "main.br"))
	_, diags := openDoc(t, uri, "import \"util.br\"\n\nbad\n")
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	want := protocol.Range{
		Start: protocol.Position{Line: 2, Character: 0},
		End:   protocol.Position{Line: 2, Character: 3},
	}
	if diags[0].Range != want {
		t.Errorf("range = %+v, want %+v", diags[0].Range, want)
	}
}

func TestURIRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a b.br")
	if got := uriPath(fileURI(path)); got != path {
		t.Errorf("uriPath(fileURI(%q)) = %q", path, got)
	}
	if got := uriPath("untitled:1"); got != "untitled:1" {
		t.Errorf("uriPath(untitled:1) = %q", got)
	}
}

func labels(items []protocol.CompletionItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
