// Package tokenizer normalises document and query text into index tokens.
// Words are split on whitespace, trimmed of a fixed punctuation set at both
// ends, and lower-cased. There is no stemming and no stop-word removal.
package tokenizer

import "strings"

// Punctuation is trimmed from both ends of every word. Inner characters are
// kept, so "don't" stays "don't".
const Punctuation = " ,.\n;:'\"\t!@#$%^&*()_-=+[]?<>"

// Normalize trims punctuation from word and lower-cases it. The result may
// be empty.
func Normalize(word string) string {
	return strings.ToLower(strings.Trim(word, Punctuation))
}

// Tokenize splits text on whitespace and normalises each word, dropping
// empties. Order is preserved and duplicates are kept.
func Tokenize(text string) []string {
	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if t := Normalize(w); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// NormalizeAll normalises already-split tokens, dropping empties.
func NormalizeAll(words []string) []string {
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if t := Normalize(w); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
