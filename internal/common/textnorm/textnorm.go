// Package textnorm folds free text for accent- and case-insensitive matching.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripAccents decomposes s and drops combining marks: "Sofía" → "Sofia".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold trims, strips accents and lowercases s.
func Fold(s string) string {
	return strings.ToLower(StripAccents(strings.TrimSpace(s)))
}

// IndexWord returns the byte offset of the first occurrence of word in text
// that is bounded by non-alphanumeric runes (or the string edges), or -1.
// Both arguments are expected to be folded already.
func IndexWord(text, word string) int {
	if word == "" {
		return -1
	}
	offset := 0
	for {
		i := strings.Index(text[offset:], word)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(word)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return start
		}
		offset = start + 1
		if offset >= len(text) {
			return -1
		}
	}
}

// ContainsWord reports whether word occurs in text on word boundaries.
func ContainsWord(text, word string) bool {
	return IndexWord(text, word) >= 0
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r := lastRune(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	for _, r := range text[i:] {
		return !isWordRune(r)
	}
	return true
}

func lastRune(s string) rune {
	var last rune
	for _, r := range s {
		last = r
	}
	return last
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// SnakeCase folds s and joins its alphanumeric runs with underscores,
// truncating the result to max runes (max <= 0 disables truncation).
func SnakeCase(s string, max int) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range Fold(s) {
		if isWordRune(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	out := b.String()
	if max > 0 {
		if rs := []rune(out); len(rs) > max {
			out = strings.TrimRight(string(rs[:max]), "_")
		}
	}
	return out
}
