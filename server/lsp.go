// Package server provides a language server for brain source files.
package server

import (
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/brain/compiler"
	"github.com/chazu/brain/manifest"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "brain-lsp"

var log = commonlog.GetLogger("brain.lsp")

// LspServer compiles open documents and answers editor queries from the
// resulting compile trees.
type LspServer struct {
	mu       sync.Mutex
	docs     map[string]string           // URI → full document content
	analyses map[string]*compiler.Result // URI → last successful compile

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP() *LspServer {
	s := &LspServer{
		docs:     make(map[string]string),
		analyses: make(map[string]*compiler.Result),
		version:  "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "brain LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	diagnostics := s.update(uri, params.TextDocument.Text)
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			diagnostics := s.update(uri, whole.Text)
			go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
				URI:         uri,
				Diagnostics: diagnostics,
			})
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	delete(s.analyses, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return s.complete(params.TextDocument.URI, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return s.hover(params.TextDocument.URI, word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	if loc := s.definition(params.TextDocument.URI, word); loc != nil {
		return []protocol.Location{*loc}, nil
	}
	return nil, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return s.references(params.TextDocument.URI, word), nil
}

// --- Compile-backed logic ---

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

func (s *LspServer) analysis(uri protocol.DocumentUri) *compiler.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyses[string(uri)]
}

// update stores new document content, compiles it and returns the
// diagnostics to publish. A failed compile keeps the previous analysis so
// completion keeps working while the user types.
func (s *LspServer) update(uri protocol.DocumentUri, text string) []protocol.Diagnostic {
	name := uriPath(uri)
	res, err := compiler.New(compileOptions(name)...).CompileString(name, text)

	s.mu.Lock()
	s.docs[string(uri)] = text
	if err == nil {
		s.analyses[string(uri)] = res
	}
	s.mu.Unlock()

	if err != nil {
		log.Debugf("%s: %v", name, err)
		return []protocol.Diagnostic{diagnostic(name, err)}
	}
	return []protocol.Diagnostic{}
}

// compileOptions picks up the search paths of the project the file belongs
// to.
func compileOptions(name string) []compiler.Option {
	if !filepath.IsAbs(name) {
		return nil
	}
	m, err := manifest.FindAndLoad(filepath.Dir(name))
	if err != nil || m == nil {
		return nil
	}
	return m.CompilerOptions()
}

// diagnostic converts a compile error into a diagnostic for the document
// named name. Errors raised inside an imported unit are reported on the
// statement of this document that led to them.
func diagnostic(name string, err error) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	source := lspName
	d := protocol.Diagnostic{
		Severity: &severity,
		Source:   &source,
		Message:  err.Error(),
	}

	ce, ok := compiler.AsError(err)
	if !ok {
		return d
	}
	d.Message = ce.Kind.Error()
	if ce.Msg != "" {
		d.Message += ": " + ce.Msg
	}

	tok := ce.Token
	if tok == nil && ce.Line != nil {
		tok = ce.Line.FuncToken()
	}
	for c := ce.Context; c != nil && c.Parent != nil; c = c.Parent {
		if c.File == name {
			if c != ce.Context {
				tok = c.Expr.FuncToken()
			}
			break
		}
	}
	if tok != nil {
		d.Range = tokenRange(tok)
	}

	if ce.Context != nil {
		if trace := ce.Context.Trace(); len(trace) > 1 {
			d.Message += "\n" + strings.Join(trace, "\n")
		}
	}
	return d
}

// scope returns the global namespace of the document's last analysis, or
// nil when the document never compiled.
func (s *LspServer) scope(uri protocol.DocumentUri) *compiler.Namespace {
	res := s.analysis(uri)
	if res == nil {
		return nil
	}
	return res.Root.Scope()
}

func (s *LspServer) complete(uri protocol.DocumentUri, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem

	fns := compiler.Builtins()
	var vars []*compiler.Variable
	if ns := s.scope(uri); ns != nil {
		fns = ns.Functions()
		vars = ns.Variables()
	}

	for _, fn := range fns {
		if !strings.HasPrefix(fn.Name, prefix) {
			continue
		}
		kind := protocol.CompletionItemKindFunction
		if fn.Builtin() {
			kind = protocol.CompletionItemKindKeyword
		}
		detail := fn.Signature()
		name := fn.Name
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &name,
		})
	}
	for _, v := range vars {
		if !strings.HasPrefix(v.Name, prefix) {
			continue
		}
		kind := protocol.CompletionItemKindVariable
		detail := v.String()
		name := v.Name
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &name,
		})
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func (s *LspServer) hover(uri protocol.DocumentUri, word string) *protocol.Hover {
	ns := s.scope(uri)
	if ns == nil {
		return nil
	}
	sym, ok := ns.Lookup(word)
	if !ok {
		return nil
	}

	var b strings.Builder
	switch sym := sym.(type) {
	case *compiler.Function:
		fmt.Fprintf(&b, "```\n%s\n```\n", sym.Signature())
		fmt.Fprintf(&b, "\n%s", sym.Lifetime)
		if sym.Source != nil {
			fmt.Fprintf(&b, ", defined at %s:%d", filepath.Base(sym.File), sym.Source.Line)
		}
	case *compiler.Variable:
		fmt.Fprintf(&b, "```\n%s\n```", sym)
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

func (s *LspServer) definition(uri protocol.DocumentUri, word string) *protocol.Location {
	ns := s.scope(uri)
	if ns == nil {
		return nil
	}
	sym, ok := ns.Lookup(word)
	if !ok {
		return nil
	}

	var tok *compiler.Token
	file := uriPath(uri)
	switch sym := sym.(type) {
	case *compiler.Function:
		if sym.Source == nil {
			return nil
		}
		tok, file = sym.Source, sym.File
	case *compiler.Variable:
		tok = sym.Value.Token()
	}
	if tok == nil {
		return nil
	}
	return &protocol.Location{URI: fileURI(file), Range: tokenRange(tok)}
}

// references finds every expansion of the named function in the document's
// compile tree.
func (s *LspServer) references(uri protocol.DocumentUri, word string) []protocol.Location {
	res := s.analysis(uri)
	if res == nil {
		return nil
	}
	fn, err := res.Root.Scope().LookupFunction(&compiler.Token{Text: word})
	if err != nil {
		return nil
	}

	var locations []protocol.Location
	seen := make(map[*compiler.Token]bool)
	res.Root.Walk(func(c *compiler.Context) {
		if c.Func != fn || c.Parent == nil {
			return
		}
		tok := c.Expr.FuncToken()
		if seen[tok] {
			return
		}
		seen[tok] = true
		locations = append(locations, protocol.Location{URI: fileURI(c.File), Range: tokenRange(tok)})
	})
	return locations
}

// --- Position helpers ---

func tokenRange(tok *compiler.Token) protocol.Range {
	line := protocol.UInteger(0)
	if tok.Line > 0 {
		line = protocol.UInteger(tok.Line - 1)
	}
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: protocol.UInteger(tok.Column)},
		End:   protocol.Position{Line: line, Character: protocol.UInteger(tok.Column + tok.Len())},
	}
}

// uriPath returns the file path of a file:// URI, or the URI itself.
func uriPath(uri protocol.DocumentUri) string {
	u, err := url.Parse(string(uri))
	if err != nil || u.Scheme != "file" {
		return string(uri)
	}
	return filepath.FromSlash(u.Path)
}

// fileURI is the inverse of uriPath.
func fileURI(path string) protocol.DocumentUri {
	if !filepath.IsAbs(path) {
		return protocol.DocumentUri(path)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return protocol.DocumentUri(u.String())
}

// --- Text extraction helpers ---

func isWordChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isWordChar(rune(line[start-1])) {
		start--
	}

	if start == col {
		return ""
	}

	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Find start
	start := col
	for start > 0 && isWordChar(rune(line[start-1])) {
		start--
	}

	// Find end
	end := col
	for end < len(line) && isWordChar(rune(line[end])) {
		end++
	}

	if start == end {
		return ""
	}

	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
