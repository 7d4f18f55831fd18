package compiler

import (
	"fmt"
	"regexp"
	"strconv"
)

// ---------------------------------------------------------------------------
// Type system
// ---------------------------------------------------------------------------

// Kind identifies a value variant.
type Kind int

const (
	KindInt Kind = iota
	KindIdentifier
	KindAddress
	KindStr
	KindType
	KindLifetime
)

var kindNames = map[Kind]string{
	KindInt:        "int",
	KindIdentifier: "identifier",
	KindAddress:    "address",
	KindStr:        "str",
	KindType:       "type",
	KindLifetime:   "lifetime",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Lifetime is the visibility policy of an installed symbol.
type Lifetime int

const (
	// Local installs into the namespace the installing statement runs in.
	Local Lifetime = iota
	// Global installs into the root namespace.
	Global
	// Parent installs one namespace above the one the statement runs in.
	Parent
)

var lifetimeNames = map[Lifetime]string{
	Local:  "local",
	Global: "global",
	Parent: "parent",
}

func (l Lifetime) String() string {
	if name, ok := lifetimeNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Lifetime(%d)", l)
}

// Value is a parsed, typed argument value. Every value remembers the token it
// was parsed from.
type Value interface {
	Kind() Kind
	Token() *Token
	String() string
}

// IntValue is a signed decimal integer.
type IntValue struct {
	Tok *Token
	V   int
}

func (v *IntValue) Kind() Kind     { return KindInt }
func (v *IntValue) Token() *Token  { return v.Tok }
func (v *IntValue) String() string { return strconv.Itoa(v.V) }

// IdentifierValue is a bare name.
type IdentifierValue struct {
	Tok  *Token
	Name string
}

func (v *IdentifierValue) Kind() Kind     { return KindIdentifier }
func (v *IdentifierValue) Token() *Token  { return v.Tok }
func (v *IdentifierValue) String() string { return v.Name }

// AddressValue is a tape address. Ref is set when the address was written as
// an identifier that still has to be resolved against an address variable;
// Addr is meaningful only when Ref is empty.
type AddressValue struct {
	Tok  *Token
	Addr int
	Ref  string
}

func (v *AddressValue) Kind() Kind    { return KindAddress }
func (v *AddressValue) Token() *Token { return v.Tok }

// Resolved reports whether the address holds a literal cell index.
func (v *AddressValue) Resolved() bool { return v.Ref == "" }

func (v *AddressValue) String() string {
	if !v.Resolved() {
		return "&" + v.Ref
	}
	return ":" + strconv.Itoa(v.Addr)
}

// StrValue is a quoted string with the quotes removed.
type StrValue struct {
	Tok *Token
	S   string
}

func (v *StrValue) Kind() Kind     { return KindStr }
func (v *StrValue) Token() *Token  { return v.Tok }
func (v *StrValue) String() string { return strconv.Quote(v.S) }

// TypeValue is a type literal such as `int` or `address`.
type TypeValue struct {
	Tok *Token
	T   Kind
}

func (v *TypeValue) Kind() Kind     { return KindType }
func (v *TypeValue) Token() *Token  { return v.Tok }
func (v *TypeValue) String() string { return v.T.String() }

// LifetimeValue is a lifetime literal such as `global`.
type LifetimeValue struct {
	Tok *Token
	L   Lifetime
}

func (v *LifetimeValue) Kind() Kind     { return KindLifetime }
func (v *LifetimeValue) Token() *Token  { return v.Tok }
func (v *LifetimeValue) String() string { return v.L.String() }

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

var (
	identifierRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	addressRe    = regexp.MustCompile(`^:([0-9]+)$`)
)

// ParseValue parses tok as a value of the given kind.
func ParseValue(kind Kind, tok *Token) (Value, error) {
	var (
		v   Value
		err error
	)
	switch kind {
	case KindInt:
		v, err = ParseInt(tok)
	case KindIdentifier:
		v, err = ParseIdentifier(tok)
	case KindAddress:
		v, err = ParseAddress(tok)
	case KindStr:
		v, err = ParseStr(tok)
	case KindType:
		v, err = ParseType(tok)
	case KindLifetime:
		v, err = ParseLifetime(tok)
	default:
		err = newError(ErrTypeName, tok, "no parser for %s", kind)
	}
	if err != nil {
		// v may hold a typed nil pointer here
		return nil, err
	}
	return v, nil
}

// ParseInt parses a decimal integer with an optional sign.
func ParseInt(tok *Token) (*IntValue, error) {
	n, err := strconv.Atoi(tok.Text)
	if err != nil {
		return nil, newError(ErrIntParse, tok, "cannot read `%s` as a number", tok.Text)
	}
	return &IntValue{Tok: tok, V: n}, nil
}

// ParseIdentifier accepts letters, digits and `_`, not starting with a digit
// or underscore.
func ParseIdentifier(tok *Token) (*IdentifierValue, error) {
	if !identifierRe.MatchString(tok.Text) {
		return nil, newError(ErrIdentifierName, tok,
			"`%s` is not a valid identifier", tok.Text)
	}
	return &IdentifierValue{Tok: tok, Name: tok.Text}, nil
}

// ParseAddress accepts `:<digits>` or an identifier naming an address
// variable.
func ParseAddress(tok *Token) (*AddressValue, error) {
	if m := addressRe.FindStringSubmatch(tok.Text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, newError(ErrAddress, tok, "address `%s` is out of range", tok.Text)
		}
		return &AddressValue{Tok: tok, Addr: n}, nil
	}
	if identifierRe.MatchString(tok.Text) {
		return &AddressValue{Tok: tok, Ref: tok.Text}, nil
	}
	return nil, newError(ErrAddress, tok,
		"expected `:<int>` or an address variable, found `%s`", tok.Text)
}

// ParseStr accepts text wrapped in a matching pair of `"` or `'`.
func ParseStr(tok *Token) (*StrValue, error) {
	text := tok.Text
	if len(text) < 2 || (text[0] != '"' && text[0] != '\'') || text[len(text)-1] != text[0] {
		return nil, newError(ErrStrParse, tok, "string must be wrapped in quotes, found `%s`", text)
	}
	return &StrValue{Tok: tok, S: text[1 : len(text)-1]}, nil
}

// ParseType accepts one of the type names.
func ParseType(tok *Token) (*TypeValue, error) {
	for k, name := range kindNames {
		if name == tok.Text {
			return &TypeValue{Tok: tok, T: k}, nil
		}
	}
	return nil, newError(ErrTypeName, tok, "unknown type `%s`", tok.Text)
}

// ParseLifetime accepts one of the lifetime names.
func ParseLifetime(tok *Token) (*LifetimeValue, error) {
	for l, name := range lifetimeNames {
		if name == tok.Text {
			return &LifetimeValue{Tok: tok, L: l}, nil
		}
	}
	return nil, newError(ErrFunctionLifeTime, tok,
		"unknown lifetime `%s` (want global, local or parent)", tok.Text)
}
