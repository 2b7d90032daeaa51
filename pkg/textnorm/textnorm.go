// Package textnorm holds the comparison rules shared by label lookup and
// condition evaluation.
//
// Order is fixed: Unicode NFC composition, then whitespace trim, then full
// case folding. Composing first keeps decomposed Vietnamese input (e.g. a
// base letter followed by combining marks) equal to its precomposed form, and
// folding last means the trim never sees case-dependent characters.
package textnorm

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Key returns the comparison key for s.
func Key(s string) string {
	if s == "" {
		return ""
	}
	composed := norm.NFC.String(s)
	trimmed := strings.TrimSpace(composed)
	if trimmed == "" {
		return ""
	}
	// cases.Caser is stateful, so a fresh one per call.
	return cases.Fold().String(trimmed)
}

// Equal reports whether a and b compare equal under Key.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}

// Lang canonicalizes a language code ("EN" -> "en", "vi_vn" -> "vi-VN").
// Unparseable codes are lower-cased and trimmed.
func Lang(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return ""
	}
	tag, err := language.Parse(strings.ReplaceAll(trimmed, "_", "-"))
	if err != nil {
		return strings.ToLower(trimmed)
	}
	return tag.String()
}

// SameLang reports whether two language codes name the same base language.
func SameLang(a, b string) bool {
	la, lb := Lang(a), Lang(b)
	if la == "" || lb == "" {
		return false
	}
	if la == lb {
		return true
	}
	ta, errA := language.Parse(la)
	tb, errB := language.Parse(lb)
	if errA != nil || errB != nil {
		return false
	}
	baseA, _ := ta.Base()
	baseB, _ := tb.Base()
	return baseA == baseB
}
