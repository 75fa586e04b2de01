package match

import (
	"strings"
	"unicode"
)

// Normalize lowercases s and strips the characters that commonly separate
// words in field names and JSON keys: '_', '-', '.', whitespace and
// parentheses. "sender_name", "senderName" and "Sender-Name" all normalize
// to "sendername".
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		if isSeparator(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

// Tokenize splits s into lowercase word tokens on separators and camel-case
// boundaries.
// Examples:
//   - "senderFullName" -> ["sender", "full", "name"]
//   - "weight_kg"      -> ["weight", "kg"]
//   - "AWBNumber"      -> ["awb", "number"]
//   - "Weight (kg)"    -> ["weight", "kg"]
func Tokenize(s string) []string {
	var (
		tokens  []string
		current strings.Builder
	)

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, strings.ToLower(current.String()))
			current.Reset()
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if isSeparator(r) {
			flush()
			continue
		}

		if i > 0 && startsWord(runes, i) {
			flush()
		}

		current.WriteRune(r)
	}
	flush()

	return tokens
}

// isSeparator reports whether r separates words in an identifier.
func isSeparator(r rune) bool {
	switch r {
	case '_', '-', '.', '(', ')':
		return true
	}
	return unicode.IsSpace(r)
}

// startsWord reports whether a new camel-case word begins at runes[i].
func startsWord(runes []rune, i int) bool {
	r, prev := runes[i], runes[i-1]
	if !unicode.IsUpper(r) {
		return false
	}

	// "senderName": lower -> upper.
	if !unicode.IsUpper(prev) && !isSeparator(prev) {
		return true
	}

	// "AWBNumber": the last capital of an acronym starts the next word.
	return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
