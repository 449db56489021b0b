// Package analyze defines the text analysis collaborator: tokenization
// of source text into word units with optional Hiragana readings.
package analyze

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// ErrMisaligned is returned when analyzer output cannot be reconciled
// with the source text. Callers degrade to an empty token list.
var ErrMisaligned = errors.New("analyzer tokens do not align with source text")

// Token is an analyzer-produced word unit. Reading is a Hiragana
// pronunciation, set only when Surface contains at least one Kanji.
type Token struct {
	Surface string `json:"surface"`
	Reading string `json:"reading,omitempty"`
}

// Analyzer tokenizes source text. The concatenation of the returned
// surfaces must exactly equal the input, whitespace and punctuation
// included.
type Analyzer interface {
	Analyze(ctx context.Context, text string) ([]Token, error)
	Name() string
}

// Align reconciles raw analyzer tokens with the source text so that the
// surface-concatenation invariant holds. Characters the analyzer skipped
// (typically whitespace) become reading-less filler tokens. Returns
// ErrMisaligned when a token's surface cannot be found in order.
func Align(text string, tokens []Token) ([]Token, error) {
	out := make([]Token, 0, len(tokens)+1)
	rest := text

	for _, tok := range tokens {
		if tok.Surface == "" {
			continue
		}
		idx := strings.Index(rest, tok.Surface)
		if idx < 0 {
			return nil, ErrMisaligned
		}
		if idx > 0 {
			out = append(out, Token{Surface: rest[:idx]})
		}
		out = append(out, tok)
		rest = rest[idx+len(tok.Surface):]
	}

	if rest != "" {
		out = append(out, Token{Surface: rest})
	}

	return out, nil
}

// Concat joins token surfaces in order.
func Concat(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Surface)
	}
	return b.String()
}

// ContainsHan reports whether s contains at least one Kanji rune.
func ContainsHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// KatakanaToHiragana converts Katakana runes to their Hiragana
// counterparts, leaving everything else (including the long vowel
// mark) untouched.
func KatakanaToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 'ァ' && r <= 'ヶ' {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}
