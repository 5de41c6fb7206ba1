package tokenize

import (
	"strings"
	"unicode"
)

// SplitIdentifier breaks a camelCase or snake_case identifier into its
// constituent words, lowercased. Runs of uppercase letters are kept together
// until a lowercase letter follows, so "parseHTTPResponse" yields
// ["parse", "http", "response"].
func SplitIdentifier(ident string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, strings.ToLower(current.String()))
			current.Reset()
		}
	}

	runes := []rune(ident)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r):
			// Start a new word at lower->Upper and at the last capital of an
			// acronym run (HTTPResponse -> HTTP | Response).
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					flush()
				}
			}
			current.WriteRune(r)
		case unicode.IsDigit(r):
			if i > 0 && !unicode.IsDigit(runes[i-1]) {
				flush()
			}
			current.WriteRune(r)
		default:
			if i > 0 && unicode.IsDigit(runes[i-1]) {
				flush()
			}
			current.WriteRune(r)
		}
	}
	flush()

	return words
}

// ExpandQuery produces the lexical search terms for a query: every
// whitespace-separated term in its literal form, plus the sub-words of any
// term that splits into more than one. Identifier sub-tokens rarely occur as
// free text, so searching only the literal form would starve recall.
func ExpandQuery(query string) []string {
	seen := make(map[string]bool)
	var terms []string

	add := func(t string) {
		t = strings.ToLower(t)
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		terms = append(terms, t)
	}

	for _, field := range strings.Fields(query) {
		field = strings.Trim(field, "\"'`()[]{},;:")
		if field == "" {
			continue
		}
		add(field)
		if parts := SplitIdentifier(field); len(parts) > 1 {
			for _, p := range parts {
				add(p)
			}
		}
	}

	return terms
}

// IdentifierShaped reports whether the query text looks like a code
// identifier rather than prose: it contains an underscore, internal
// capitalization, or an internal digit.
func IdentifierShaped(query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return false
	}

	if strings.Contains(query, "_") {
		return true
	}

	runes := []rune(query)
	for i := 1; i < len(runes); i++ {
		if unicode.IsSpace(runes[i-1]) {
			continue // position after a space is word-initial, not internal
		}
		if unicode.IsUpper(runes[i]) || unicode.IsDigit(runes[i]) {
			return true
		}
	}
	return false
}
