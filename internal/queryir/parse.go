package queryir

import (
	"strings"

	"github.com/roach88/trackstore/internal/errs"
	"github.com/roach88/trackstore/internal/schema"
)

// maxNesting bounds parenthesis and NOT nesting in a selection.
const maxNesting = 32

// Selection is a parsed selection predicate.
type Selection struct {
	// Predicate is the parsed condition, nil for an empty selection.
	Predicate Predicate

	// Params is the number of placeholders, numbered 0..Params-1 in
	// textual order.
	Params int
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokParam
	tokLParen
	tokRParen
	tokComma
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// ParseSelection parses selection against table's allow-list.
// An empty or blank selection yields a nil predicate.
func ParseSelection(table *schema.Table, selection string) (Selection, error) {
	if strings.TrimSpace(selection) == "" {
		return Selection{}, nil
	}
	if err := rejectForbidden(selection); err != nil {
		return Selection{}, err
	}

	toks, err := lex(selection)
	if err != nil {
		return Selection{}, err
	}

	p := &parser{table: table, toks: toks}
	pred, err := p.parseOr()
	if err != nil {
		return Selection{}, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return Selection{}, errs.Invalid("parse selection", "unexpected %q at offset %d", tok.text, tok.pos)
	}
	return Selection{Predicate: pred, Params: p.params}, nil
}

// rejectForbidden fails fast on characters that can only mean an attempt to
// smuggle literals, comments or extra statements into the predicate.
func rejectForbidden(s string) error {
	if strings.ContainsAny(s, "'\"`") {
		return errs.Invalid("parse selection", "quote characters are not allowed")
	}
	if strings.Contains(s, ";") {
		return errs.Invalid("parse selection", "statement separators are not allowed")
	}
	if strings.Contains(s, "--") || strings.Contains(s, "/*") {
		return errs.Invalid("parse selection", "comments are not allowed")
	}
	return nil
}

func lex(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isIdentStart(c):
			start := i
			for i < len(s) && isIdentPart(s[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: s[start:i], pos: start})
		case c == '?':
			if i+1 < len(s) && (isIdentPart(s[i+1]) || s[i+1] == ':' || s[i+1] == '$') {
				return nil, errs.Invalid("parse selection", "numbered or named parameters are not allowed at offset %d", i)
			}
			toks = append(toks, token{kind: tokParam, text: "?", pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		case c == '=' || c == '!' || c == '<' || c == '>':
			op, n := lexOp(s[i:])
			if n == 0 {
				return nil, errs.Invalid("parse selection", "unexpected %q at offset %d", string(c), i)
			}
			toks = append(toks, token{kind: tokOp, text: op, pos: i})
			i += n
		case c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+':
			return nil, errs.Invalid("parse selection", "literal values are not allowed at offset %d; use ? placeholders", i)
		default:
			return nil, errs.Invalid("parse selection", "unexpected %q at offset %d", string(c), i)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(s)}), nil
}

// lexOp returns the canonical operator at the start of s and its length.
func lexOp(s string) (string, int) {
	two := ""
	if len(s) >= 2 {
		two = s[:2]
	}
	switch two {
	case "==":
		return string(OpEq), 2
	case "!=", "<>":
		return string(OpNe), 2
	case "<=":
		return string(OpLe), 2
	case ">=":
		return string(OpGe), 2
	}
	switch s[0] {
	case '=':
		return string(OpEq), 1
	case '<':
		return string(OpLt), 1
	case '>':
		return string(OpGt), 1
	}
	return "", 0
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

type parser struct {
	table  *schema.Table
	toks   []token
	i      int
	depth  int
	params int
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) keyword(tok token, kw string) bool {
	return tok.kind == tokIdent && strings.EqualFold(tok.text, kw)
}

func (p *parser) unexpected(tok token) error {
	if tok.kind == tokEOF {
		return errs.Invalid("parse selection", "unexpected end of selection")
	}
	return errs.Invalid("parse selection", "unexpected %q at offset %d", tok.text, tok.pos)
}

func (p *parser) parseOr() (Predicate, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	preds := []Predicate{left}
	for p.keyword(p.peek(), "OR") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		preds = append(preds, right)
	}
	if len(preds) == 1 {
		return left, nil
	}
	return Or{Predicates: preds}, nil
}

func (p *parser) parseAnd() (Predicate, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	preds := []Predicate{left}
	for p.keyword(p.peek(), "AND") {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		preds = append(preds, right)
	}
	if len(preds) == 1 {
		return left, nil
	}
	return And{Predicates: preds}, nil
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxNesting {
		return errs.Invalid("parse selection", "selection nested deeper than %d levels", maxNesting)
	}
	return nil
}

func (p *parser) parseUnary() (Predicate, error) {
	if p.keyword(p.peek(), "NOT") {
		p.next()
		if err := p.enter(); err != nil {
			return nil, err
		}
		inner, err := p.parseUnary()
		p.depth--
		if err != nil {
			return nil, err
		}
		return Not{Predicate: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Predicate, error) {
	tok := p.next()
	switch tok.kind {
	case tokLParen:
		if err := p.enter(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		p.depth--
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, p.unexpected(closing)
		}
		return inner, nil
	case tokIdent:
		column, err := p.column(tok)
		if err != nil {
			return nil, err
		}
		return p.parseCondition(column)
	}
	return nil, p.unexpected(tok)
}

// column resolves an identifier against the allow-list.
func (p *parser) column(tok token) (string, error) {
	if isKeyword(tok.text) {
		return "", errs.Invalid("parse selection", "unexpected keyword %q at offset %d", tok.text, tok.pos)
	}
	if !p.table.Allows(tok.text) {
		return "", errs.Invalid("parse selection", "unknown column %q for table %s", tok.text, p.table.Name)
	}
	return tok.text, nil
}

func (p *parser) parseCondition(column string) (Predicate, error) {
	tok := p.next()
	switch {
	case tok.kind == tokOp:
		if err := p.param(); err != nil {
			return nil, err
		}
		return Compare{Column: column, Op: Op(tok.text), Operand: Placeholder{Index: p.params - 1}}, nil

	case p.keyword(tok, "IN"):
		if lp := p.next(); lp.kind != tokLParen {
			return nil, p.unexpected(lp)
		}
		var ops []Operand
		for {
			if err := p.param(); err != nil {
				return nil, err
			}
			ops = append(ops, Placeholder{Index: p.params - 1})
			sep := p.next()
			if sep.kind == tokRParen {
				break
			}
			if sep.kind != tokComma {
				return nil, p.unexpected(sep)
			}
		}
		return In{Column: column, Operands: ops}, nil

	case p.keyword(tok, "IS"):
		negated := false
		if p.keyword(p.peek(), "NOT") {
			p.next()
			negated = true
		}
		if n := p.next(); !p.keyword(n, "NULL") {
			return nil, p.unexpected(n)
		}
		return IsNull{Column: column, Negated: negated}, nil
	}
	return nil, p.unexpected(tok)
}

// param consumes a "?" placeholder.
func (p *parser) param() error {
	tok := p.next()
	if tok.kind != tokParam {
		if tok.kind == tokIdent && !isKeyword(tok.text) {
			return errs.Invalid("parse selection", "column-to-column comparisons are not allowed at offset %d", tok.pos)
		}
		return p.unexpected(tok)
	}
	p.params++
	return nil
}

func isKeyword(s string) bool {
	switch strings.ToUpper(s) {
	case "AND", "OR", "NOT", "IN", "IS", "NULL":
		return true
	}
	return false
}
