package router

import "unicode"

// token is one word of the query as typed.
type token struct {
	Text    string
	Cashtag bool
}

// tokenize splits on whitespace and punctuation. A '$' directly before a
// word marks it as a cashtag and is not part of the token text.
func tokenize(query string) []token {
	var (
		tokens  []token
		current []rune
		cashtag bool
	)
	flush := func() {
		if len(current) > 0 {
			tokens = append(tokens, token{Text: string(current), Cashtag: cashtag})
		}
		current = current[:0]
		cashtag = false
	}

	for _, r := range query {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current = append(current, r)
		case r == '$' && len(current) == 0:
			cashtag = true
		default:
			flush()
		}
	}
	flush()
	return tokens
}

func isASCIILetters(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

func isUpperASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return s != ""
}
