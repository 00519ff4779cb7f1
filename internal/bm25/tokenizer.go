//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package bm25

import (
	"strings"
	"unicode"
)

// Tokenizer turns questions and SQL identifiers into comparable terms.
// Identifiers are split at underscores and camelCase boundaries, and
// plurals are folded so "customers" matches a customer table.
type Tokenizer struct {
	stopWords map[string]bool
}

// DefaultStopWords contains common English words and the phrasing
// typical of questions put to a database.
var DefaultStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "for": true, "from": true,
	"has": true, "he": true, "in": true, "is": true, "it": true,
	"its": true, "of": true, "on": true, "or": true, "that": true,
	"the": true, "to": true, "was": true, "were": true, "will": true,
	"with": true, "this": true, "but": true, "they": true, "have": true,
	"had": true, "what": true, "when": true, "where": true, "who": true,
	"which": true, "why": true, "how": true, "all": true, "each": true,
	"every": true, "both": true, "few": true, "more": true, "most": true,
	"other": true, "some": true, "such": true, "no": true, "not": true,
	"only": true, "same": true, "so": true, "than": true, "too": true,
	"very": true, "can": true, "just": true, "should": true, "now": true,
	"i": true, "you": true, "we": true, "me": true, "my": true,
	"your": true, "our": true, "their": true, "him": true, "her": true,
	"do": true, "does": true, "did": true, "there": true, "many": true,
	"much": true, "list": true, "show": true, "give": true, "find": true,
	"get": true, "tell": true, "please": true, "whose": true,
}

// NewTokenizer creates a tokenizer with the default stop words.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{stopWords: DefaultStopWords}
}

// NewTokenizerWithStopWords creates a tokenizer with custom stop words.
func NewTokenizerWithStopWords(stopWords map[string]bool) *Tokenizer {
	return &Tokenizer{stopWords: stopWords}
}

// Tokenize splits text into normalized terms.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder
	var prev rune

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if token := t.normalize(current.String()); token != "" {
			tokens = append(tokens, token)
		}
		current.Reset()
	}

	for _, r := range text {
		switch {
		case unicode.IsUpper(r):
			// camelCase boundary
			if unicode.IsLower(prev) {
				flush()
			}
			current.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r):
			current.WriteRune(r)
		default:
			flush()
		}
		prev = r
	}
	flush()

	return tokens
}

// normalize folds a lowercase word to its term, or returns "" when the
// word carries no meaning for ranking.
func (t *Tokenizer) normalize(word string) string {
	if len(word) < 2 || t.stopWords[word] {
		return ""
	}
	return singular(word)
}

// singular strips common English plural endings.
func singular(word string) string {
	switch {
	case len(word) > 4 && strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y"
	case len(word) > 4 && (strings.HasSuffix(word, "sses") ||
		strings.HasSuffix(word, "xes") || strings.HasSuffix(word, "ches") ||
		strings.HasSuffix(word, "shes")):
		return word[:len(word)-2]
	case len(word) > 3 && strings.HasSuffix(word, "s") &&
		!strings.HasSuffix(word, "ss") && !strings.HasSuffix(word, "us") &&
		!strings.HasSuffix(word, "is"):
		return word[:len(word)-1]
	}
	return word
}

// TokenFrequencies returns a map of token to frequency count.
func (t *Tokenizer) TokenFrequencies(text string) map[string]int {
	freqs := make(map[string]int)
	for _, token := range t.Tokenize(text) {
		freqs[token]++
	}
	return freqs
}
