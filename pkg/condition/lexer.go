package condition

import (
	"strings"
)

type tokenKind int

const (
	tokenField tokenKind = iota
	tokenString
	tokenWord
	tokenEq
	tokenNeq
	tokenAnd
	tokenOr
	tokenNot
	tokenIn
	tokenShow
	tokenHide
	tokenIf
	tokenComma
	tokenLParen
	tokenRParen
)

func (k tokenKind) String() string {
	switch k {
	case tokenField:
		return "field reference"
	case tokenString:
		return "quoted value"
	case tokenWord:
		return "word"
	case tokenEq:
		return "'='"
	case tokenNeq:
		return "'!='"
	case tokenAnd:
		return "'and'"
	case tokenOr:
		return "'or'"
	case tokenNot:
		return "'not'"
	case tokenIn:
		return "'in'"
	case tokenShow:
		return "'show'"
	case tokenHide:
		return "'hide'"
	case tokenIf:
		return "'if'"
	case tokenComma:
		return "','"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	default:
		return "token"
	}
}

type token struct {
	kind tokenKind
	// raw is the literal payload: the text between braces for field
	// references, the unescaped text for quoted values. Never trimmed.
	raw string
	pos int
}

var keywords = map[string]tokenKind{
	"and":  tokenAnd,
	"or":   tokenOr,
	"not":  tokenNot,
	"in":   tokenIn,
	"show": tokenShow,
	"hide": tokenHide,
	"if":   tokenIf,
}

// Curly quotes show up when operators paste expressions from documents.
var quotePairs = []struct{ open, close string }{
	{`"`, `"`},
	{`'`, `'`},
	{"“", "”"},
	{"‘", "’"},
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isWordBreak(input string, i int) bool {
	ch := input[i]
	if isSpace(ch) {
		return true
	}
	switch ch {
	case '(', ')', '{', '}', ',', '!', '=', '&', '|', '"', '\'':
		return true
	}
	for _, pair := range quotePairs {
		if strings.HasPrefix(input[i:], pair.open) {
			return true
		}
	}
	return false
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	for i < len(input) {
		ch := input[i]
		if isSpace(ch) {
			i++
			continue
		}
		start := i

		switch ch {
		case '(':
			i++
			tokens = append(tokens, token{kind: tokenLParen, raw: "(", pos: start})
			continue
		case ')':
			i++
			tokens = append(tokens, token{kind: tokenRParen, raw: ")", pos: start})
			continue
		case ',':
			i++
			tokens = append(tokens, token{kind: tokenComma, raw: ",", pos: start})
			continue
		case '{':
			end := strings.IndexByte(input[i+1:], '}')
			if end < 0 {
				return nil, newParseError(input, start, "unterminated field reference, missing '}'")
			}
			body := input[i+1 : i+1+end]
			if strings.ContainsAny(body, "{\"") {
				return nil, newParseError(input, start, "malformed field reference")
			}
			tokens = append(tokens, token{kind: tokenField, raw: body, pos: start})
			i += end + 2
			continue
		case '}':
			return nil, newParseError(input, start, "unexpected '}'")
		case '!':
			i++
			if i < len(input) && input[i] == '=' {
				i++
				tokens = append(tokens, token{kind: tokenNeq, raw: "!=", pos: start})
				continue
			}
			tokens = append(tokens, token{kind: tokenNot, raw: "!", pos: start})
			continue
		case '=':
			i++
			if i < len(input) && input[i] == '=' {
				i++
			}
			tokens = append(tokens, token{kind: tokenEq, raw: "=", pos: start})
			continue
		case '&':
			if i+1 >= len(input) || input[i+1] != '&' {
				return nil, newParseError(input, start, "unexpected '&'; use '&&' or 'and'")
			}
			i += 2
			tokens = append(tokens, token{kind: tokenAnd, raw: "&&", pos: start})
			continue
		case '|':
			if i+1 >= len(input) || input[i+1] != '|' {
				return nil, newParseError(input, start, "unexpected '|'; use '||' or 'or'")
			}
			i += 2
			tokens = append(tokens, token{kind: tokenOr, raw: "||", pos: start})
			continue
		}

		if tok, next, ok, err := lexQuoted(input, i); ok {
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
			continue
		}

		for i < len(input) && !isWordBreak(input, i) {
			i++
		}
		word := input[start:i]
		if kind, ok := keywords[strings.ToLower(word)]; ok {
			tokens = append(tokens, token{kind: kind, raw: word, pos: start})
			continue
		}
		tokens = append(tokens, token{kind: tokenWord, raw: word, pos: start})
	}

	return tokens, nil
}

// lexQuoted scans a quoted value starting at i. Backslash escapes the next
// character, so `\"` yields a literal quote.
func lexQuoted(input string, i int) (token, int, bool, error) {
	for _, pair := range quotePairs {
		if !strings.HasPrefix(input[i:], pair.open) {
			continue
		}
		start := i
		i += len(pair.open)
		var b strings.Builder
		for i < len(input) {
			if input[i] == '\\' && i+1 < len(input) {
				b.WriteByte(input[i+1])
				i += 2
				continue
			}
			if strings.HasPrefix(input[i:], pair.close) {
				return token{kind: tokenString, raw: b.String(), pos: start}, i + len(pair.close), true, nil
			}
			b.WriteByte(input[i])
			i++
		}
		return token{}, 0, true, newParseError(input, start, "unterminated quoted value")
	}
	return token{}, i, false, nil
}
