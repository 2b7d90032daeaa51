package condition

import (
	"strings"
)

// Parse turns a condition string into a Condition.
//
// Grammar (keywords are case-insensitive):
//
//	condition  = [ ("show" | "hide") "if" ] or
//	or         = and { ("or" | "||") and }
//	and        = unary { ("and" | "&&") unary }
//	unary      = ("not" | "!") unary | "(" or ")" | comparison
//	comparison = field ( ("=" | "==") values
//	                   | "!=" values
//	                   | ["not"] "in" "(" value { "," value } ")" )
//	values     = value { "," value | "or" value }
//	field      = "{" text "}" | word
//	value      = quoted | word
//
// A list of values after "=" means any-of. An empty or whitespace-only input
// parses to Always. Field ids and values are stored untrimmed; comparison
// trims them.
func Parse(src string) (Condition, error) {
	if strings.TrimSpace(src) == "" {
		return Condition{source: src, root: Always{}}, nil
	}

	tokens, err := tokenize(src)
	if err != nil {
		return Condition{}, err
	}

	p := &parser{src: src, tokens: tokens}
	negate := false
	switch {
	case p.match(tokenShow):
		if !p.match(tokenIf) {
			return Condition{}, p.errorf("expected 'if' after 'show'")
		}
	case p.match(tokenHide):
		if !p.match(tokenIf) {
			return Condition{}, p.errorf("expected 'if' after 'hide'")
		}
		negate = true
	}
	if p.done() {
		return Condition{}, p.errorf("empty condition")
	}

	root, err := p.parseOr()
	if err != nil {
		return Condition{}, err
	}
	if !p.done() {
		return Condition{}, p.errorf("unexpected %s %q", p.peek().kind, p.peek().raw)
	}
	if negate {
		root = Not{Inner: root}
	}
	return Condition{source: src, root: root}, nil
}

// MustParse is Parse for literals in tests and fixtures.
func MustParse(src string) Condition {
	c, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return c
}

type parser struct {
	src    string
	tokens []token
	pos    int
}

func (p *parser) done() bool { return p.pos >= len(p.tokens) }

func (p *parser) peek() token {
	if p.done() {
		return token{}
	}
	return p.tokens[p.pos]
}

func (p *parser) peekKind(offset int) (tokenKind, bool) {
	idx := p.pos + offset
	if idx < 0 || idx >= len(p.tokens) {
		return 0, false
	}
	return p.tokens[idx].kind, true
}

func (p *parser) match(kind tokenKind) bool {
	if k, ok := p.peekKind(0); ok && k == kind {
		p.pos++
		return true
	}
	return false
}

func (p *parser) offset() int {
	if p.done() {
		return len(p.src)
	}
	return p.tokens[p.pos].pos
}

func (p *parser) errorf(format string, args ...any) error {
	return newParseErrorf(p.src, p.offset(), format, args...)
}

func (p *parser) parseOr() (Node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []Node{first}
	for p.match(tokenOr) {
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return Or{Terms: terms}, nil
}

func (p *parser) parseAnd() (Node, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	terms := []Node{first}
	for p.match(tokenAnd) {
		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return And{Terms: terms}, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.match(tokenNot) {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not{Inner: inner}, nil
	}
	if p.match(tokenLParen) {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.match(tokenRParen) {
			return nil, p.errorf("missing closing ')'")
		}
		return inner, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Node, error) {
	if p.done() {
		return nil, p.errorf("expected field reference, got end of input")
	}
	tok := p.peek()
	if tok.kind != tokenField && tok.kind != tokenWord {
		return nil, p.errorf("expected field reference, got %s %q", tok.kind, tok.raw)
	}
	if strings.TrimSpace(tok.raw) == "" {
		return nil, p.errorf("empty field reference")
	}
	p.pos++
	field := tok.raw

	switch {
	case p.match(tokenEq):
		values, err := p.parseValues(true)
		if err != nil {
			return nil, err
		}
		if len(values) == 1 {
			return Equals{Field: field, Value: values[0]}, nil
		}
		return AnyOf{Field: field, Values: values}, nil
	case p.match(tokenNeq):
		values, err := p.parseValues(true)
		if err != nil {
			return nil, err
		}
		if len(values) == 1 {
			return NotEquals{Field: field, Value: values[0]}, nil
		}
		return Not{Inner: AnyOf{Field: field, Values: values}}, nil
	case p.match(tokenIn):
		values, err := p.parseInList()
		if err != nil {
			return nil, err
		}
		return AnyOf{Field: field, Values: values}, nil
	}

	if k, ok := p.peekKind(0); ok && k == tokenNot {
		if next, ok := p.peekKind(1); ok && next == tokenIn {
			p.pos += 2
			values, err := p.parseInList()
			if err != nil {
				return nil, err
			}
			return Not{Inner: AnyOf{Field: field, Values: values}}, nil
		}
	}
	return nil, p.errorf("expected '=', '!=' or 'in' after field %q", field)
}

func (p *parser) parseInList() ([]string, error) {
	if !p.match(tokenLParen) {
		return nil, p.errorf("expected '(' after 'in'")
	}
	values, err := p.parseValues(false)
	if err != nil {
		return nil, err
	}
	if !p.match(tokenRParen) {
		return nil, p.errorf("missing closing ')' for value list")
	}
	return values, nil
}

// parseValues reads one value followed by comma-separated values. When
// allowOr is set, `"a" or "b"` also continues the list as long as the word
// after "or" is a value rather than the start of a new comparison.
func (p *parser) parseValues(allowOr bool) ([]string, error) {
	first, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	values := []string{first}
	for {
		if p.match(tokenComma) {
			next, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			values = append(values, next)
			continue
		}
		if allowOr && p.orContinuesValues() {
			p.pos++
			next, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			values = append(values, next)
			continue
		}
		return values, nil
	}
}

func (p *parser) orContinuesValues() bool {
	if k, ok := p.peekKind(0); !ok || k != tokenOr {
		return false
	}
	next, ok := p.peekKind(1)
	if !ok {
		return false
	}
	switch next {
	case tokenString:
		return true
	case tokenWord:
		after, ok := p.peekKind(2)
		if !ok {
			return true
		}
		switch after {
		case tokenEq, tokenNeq, tokenIn, tokenNot:
			return false
		}
		return true
	default:
		return false
	}
}

func (p *parser) parseValue() (string, error) {
	if p.done() {
		return "", p.errorf("expected value, got end of input")
	}
	tok := p.peek()
	switch tok.kind {
	case tokenString, tokenWord:
		p.pos++
		return tok.raw, nil
	default:
		return "", p.errorf("expected value, got %s %q", tok.kind, tok.raw)
	}
}
