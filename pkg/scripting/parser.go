// Parser (C5): a hand-written recursive-descent parser for the minimal
// scripting surface of spec §4.4/§6:
//
//	var <name> = <operation>(<arg>, <arg>, …)
//
// one statement per line (or semicolon-separated), literals are quoted
// strings, decimal integers/reals, or true/false, and any other argument
// token is a previously bound variable name. This replaces the embedded
// chaiscript interpreter of original_source per spec §9's design notes.
package scripting

import (
	"strconv"
	"strings"

	"github.com/cvpg/imageproc/pkg/pperr"
)

// Parser accumulates the DAG of items produced by parsing one or more
// statements against a registry of operations.
type Parser struct {
	registry *Registry

	items  map[uint32]Item
	names  map[string]uint32
	nextID uint32
}

// NewParser creates an empty parser bound to registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{
		registry: registry,
		items:    make(map[uint32]Item),
		names:    make(map[string]uint32),
	}
}

// Items returns a copy of the id -> Item map accumulated so far.
func (p *Parser) Items() map[uint32]Item {
	out := make(map[uint32]Item, len(p.items))
	for k, v := range p.items {
		out[k] = v
	}
	return out
}

// Lookup resolves a bound variable name to its item id.
func (p *Parser) Lookup(name string) (uint32, bool) {
	id, ok := p.names[name]
	return id, ok
}

// ParseScript parses every statement in script. On the first failing
// statement, parsing aborts and the item map is left exactly as it was
// before that statement — no partial item is ever registered (spec §4.4:
// "any operation that fails validation throws and aborts the script").
func (p *Parser) ParseScript(script string) error {
	for _, stmt := range splitStatements(script) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := p.parseStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func splitStatements(script string) []string {
	script = strings.ReplaceAll(script, ";", "\n")
	return strings.Split(script, "\n")
}

func (p *Parser) parseStatement(stmt string) error {
	toks, err := tokenize(stmt)
	if err != nil {
		return err
	}

	ps := &tokenStream{toks: toks}

	if !ps.consumeKeyword("var") {
		return pperr.New(pperr.InvalidParameter, "expected 'var' at start of statement: %q", stmt)
	}

	name, ok := ps.consumeIdent()
	if !ok {
		return pperr.New(pperr.InvalidParameter, "expected identifier after 'var' in: %q", stmt)
	}

	if !ps.consumePunct("=") {
		return pperr.New(pperr.InvalidParameter, "expected '=' after variable name in: %q", stmt)
	}

	opName, ok := ps.consumeIdent()
	if !ok {
		return pperr.New(pperr.InvalidParameter, "expected operation name in: %q", stmt)
	}

	if !ps.consumePunct("(") {
		return pperr.New(pperr.InvalidParameter, "expected '(' after operation name in: %q", stmt)
	}

	var args []token
	if !ps.peekPunct(")") {
		for {
			t, ok := ps.consumeArg()
			if !ok {
				return pperr.New(pperr.InvalidParameter, "expected argument in: %q", stmt)
			}
			args = append(args, t)
			if ps.consumePunct(",") {
				continue
			}
			break
		}
	}

	if !ps.consumePunct(")") {
		return pperr.New(pperr.InvalidParameter, "expected ')' to close argument list in: %q", stmt)
	}

	if !ps.atEnd() {
		return pperr.New(pperr.InvalidParameter, "unexpected trailing tokens in: %q", stmt)
	}

	id, err := p.registerOperation(opName, args)
	if err != nil {
		return err
	}

	p.names[name] = id
	return nil
}

// registerOperation resolves args against the operation's parameter set,
// validates each one, calls ResultType (on_parse, spec §4.4), and on
// success registers the item. Graph edges are not stored here; Compile
// derives them from the item's reference arguments.
func (p *Parser) registerOperation(opName string, argToks []token) (uint32, error) {
	desc, err := p.registry.Get(opName)
	if err != nil {
		return 0, err
	}

	if err := validateArgCount(desc, len(argToks)); err != nil {
		return 0, err
	}

	args := make([]Arg, len(argToks))
	argTypes := make([]ItemType, len(argToks))

	for i, t := range argToks {
		arg, argType, err := p.resolveArg(desc, i, t)
		if err != nil {
			return 0, err
		}
		args[i] = arg
		argTypes[i] = argType
	}

	resultType, err := desc.ResultType(args, argTypes)
	if err != nil {
		return 0, err
	}

	id := p.nextID
	p.nextID++

	p.items[id] = Item{ID: id, Name: opName, Arguments: args, Result: resultType}

	return id, nil
}

func (p *Parser) resolveArg(desc *Descriptor, i int, t token) (Arg, ItemType, error) {
	var param *ParamDescriptor
	if i < len(desc.Parameters) {
		param = &desc.Parameters[i]
	}

	if t.kind == tokIdent {
		refID, ok := p.names[t.text]
		if !ok {
			return Arg{}, Invalid, pperr.New(pperr.InvalidParameter, "%s: undefined variable %q", desc.Name, t.text)
		}

		refType := p.items[refID].Result

		if param != nil && len(param.AdmissibleRef) > 0 {
			ok := false
			for _, at := range param.AdmissibleRef {
				if at == refType {
					ok = true
					break
				}
			}
			if !ok {
				return Arg{}, Invalid, pperr.New(pperr.InvalidParameter, "%s: argument %d (%q) has type %s, not admissible", desc.Name, i, t.text, refType)
			}
		} else if param != nil {
			return Arg{}, Invalid, pperr.New(pperr.InvalidParameter, "%s: argument %d expects a literal, got variable %q", desc.Name, i, t.text)
		}

		return Arg{IsRef: true, Ref: refID}, refType, nil
	}

	lit, err := literalValue(t)
	if err != nil {
		return Arg{}, Invalid, err
	}

	if param != nil {
		if len(param.AdmissibleRef) > 0 {
			return Arg{}, Invalid, pperr.New(pperr.InvalidParameter, "%s: argument %d expects a reference, got a literal", desc.Name, i)
		}
		if param.LiteralType != Invalid && lit.Type != param.LiteralType {
			return Arg{}, Invalid, pperr.New(pperr.InvalidParameter, "%s: argument %d expects %s, got %s", desc.Name, i, param.LiteralType, lit.Type)
		}
		if len(param.EnumValues) > 0 {
			ok := false
			for _, v := range param.EnumValues {
				if v == lit.Str {
					ok = true
					break
				}
			}
			if !ok {
				return Arg{}, Invalid, pperr.New(pperr.InvalidParameter, "%s: argument %d value %q is not one of %v", desc.Name, i, lit.Str, param.EnumValues)
			}
		}
		if param.MinInt != nil && lit.Int < *param.MinInt {
			return Arg{}, Invalid, pperr.New(pperr.InvalidParameter, "%s: argument %d value %d below minimum %d", desc.Name, i, lit.Int, *param.MinInt)
		}
		if param.MaxInt != nil && lit.Int > *param.MaxInt {
			return Arg{}, Invalid, pperr.New(pperr.InvalidParameter, "%s: argument %d value %d above maximum %d", desc.Name, i, lit.Int, *param.MaxInt)
		}
	}

	return Arg{Literal: lit}, lit.Type, nil
}

func literalValue(t token) (Value, error) {
	switch t.kind {
	case tokString:
		return Value{Type: StringType, Str: t.text}, nil
	case tokNumber:
		if strings.ContainsAny(t.text, ".eE") {
			f, err := strconv.ParseFloat(t.text, 64)
			if err != nil {
				return Value{}, pperr.New(pperr.InvalidParameter, "invalid real literal %q", t.text)
			}
			return Value{Type: RealType, Real: f}, nil
		}
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return Value{}, pperr.New(pperr.InvalidParameter, "invalid integer literal %q", t.text)
		}
		return Value{Type: IntType, Int: n}, nil
	case tokIdent:
		if t.text == "true" || t.text == "false" {
			return Value{Type: BoolType, Bool: t.text == "true"}, nil
		}
	}
	return Value{}, pperr.New(pperr.InvalidParameter, "invalid literal %q", t.text)
}

// --- tokenizer ---

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokPunct
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(s string) ([]token, error) {
	var toks []token
	i := 0
	n := len(s)

	for i < n {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '(' || c == ')' || c == ',' || c == '=':
			toks = append(toks, token{kind: tokPunct, text: string(c)})
			i++
		case c == '"':
			j := i + 1
			for j < n && s[j] != '"' {
				j++
			}
			if j >= n {
				return nil, pperr.New(pperr.InvalidParameter, "unterminated string literal in: %q", s)
			}
			toks = append(toks, token{kind: tokString, text: s[i+1 : j]})
			i = j + 1
		case isDigit(c) || (c == '-' && i+1 < n && isDigit(s[i+1])):
			j := i + 1
			for j < n && (isDigit(s[j]) || s[j] == '.' || s[j] == 'e' || s[j] == 'E' || s[j] == '-' || s[j] == '+') {
				j++
			}
			toks = append(toks, token{kind: tokNumber, text: s[i:j]})
			i = j
		case isIdentStart(c):
			j := i + 1
			for j < n && isIdentPart(s[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: s[i:j]})
			i = j
		default:
			return nil, pperr.New(pperr.InvalidParameter, "unexpected character %q in: %q", string(c), s)
		}
	}

	return toks, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

type tokenStream struct {
	toks []token
	pos  int
}

func (ts *tokenStream) atEnd() bool { return ts.pos >= len(ts.toks) }

func (ts *tokenStream) consumeKeyword(kw string) bool {
	if ts.atEnd() || ts.toks[ts.pos].kind != tokIdent || ts.toks[ts.pos].text != kw {
		return false
	}
	ts.pos++
	return true
}

func (ts *tokenStream) consumeIdent() (string, bool) {
	if ts.atEnd() || ts.toks[ts.pos].kind != tokIdent {
		return "", false
	}
	text := ts.toks[ts.pos].text
	ts.pos++
	return text, true
}

func (ts *tokenStream) consumePunct(p string) bool {
	if ts.atEnd() || ts.toks[ts.pos].kind != tokPunct || ts.toks[ts.pos].text != p {
		return false
	}
	ts.pos++
	return true
}

func (ts *tokenStream) peekPunct(p string) bool {
	return !ts.atEnd() && ts.toks[ts.pos].kind == tokPunct && ts.toks[ts.pos].text == p
}

func (ts *tokenStream) consumeArg() (token, bool) {
	if ts.atEnd() {
		return token{}, false
	}
	t := ts.toks[ts.pos]
	if t.kind == tokPunct {
		return token{}, false
	}
	ts.pos++
	return t, true
}
