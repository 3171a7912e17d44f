// Package chat implements the conversational intelligence core: the
// bounded memory store, slot-filling extraction, confirmation
// detection, and the orchestrator that composes them per turn.
package chat

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalizer strips combining marks after NFKD decomposition. This
// removes Arabic harakat and Latin accents in one pass, and folds
// hamza-carrying alef forms onto the bare alef.
var normalizer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize produces the canonical matching form of a message:
// lowercased, diacritic-free, with Arabic letter variants folded.
func Normalize(s string) string {
	out, _, err := transform.String(normalizer, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)

	var b strings.Builder
	b.Grow(len(out))
	for _, r := range out {
		switch r {
		case 'ة': // ta marbuta
			b.WriteRune('ه')
		case 'ى': // alef maqsura
			b.WriteRune('ي')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokens splits a normalized string into word tokens, stripping the
// Arabic definite article so "الكوتشي" matches the vocabulary entry
// "كوتشي".
func Tokens(s string) []string {
	fields := strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, stripArticle(f))
	}
	return tokens
}

func stripArticle(tok string) string {
	if rest, ok := strings.CutPrefix(tok, "ال"); ok && len([]rune(rest)) >= 2 {
		return rest
	}
	return tok
}

// containsToken reports whether the normalized term appears among the
// message tokens. Multi-word terms match as a normalized substring
// with token boundaries.
func containsToken(tokens []string, joined string, term string) bool {
	normTerm := stripArticle(Normalize(term))
	if normTerm == "" {
		return false
	}
	if strings.ContainsRune(normTerm, ' ') {
		return strings.Contains(" "+joined+" ", " "+normTerm+" ")
	}
	for _, t := range tokens {
		if t == normTerm {
			return true
		}
	}
	return false
}
