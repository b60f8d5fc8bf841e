// Package parser turns raw query text into a QueryPlan.
package parser

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/errors"
)

type QueryMode int

const (
	// ModeKeyword matches documents containing any query term.
	ModeKeyword QueryMode = iota
	// ModePhrase matches documents containing every term, in order and
	// adjacent.
	ModePhrase
)

func (m QueryMode) String() string {
	switch m {
	case ModeKeyword:
		return "keyword"
	case ModePhrase:
		return "phrase"
	default:
		return fmt.Sprintf("QueryMode(%d)", int(m))
	}
}

func (m QueryMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *QueryMode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode accepts "keyword", "phrase" or "" (keyword), case-insensitively.
func ParseMode(s string) (QueryMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keyword":
		return ModeKeyword, nil
	case "phrase":
		return ModePhrase, nil
	default:
		return ModeKeyword, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown query mode %q", s)
	}
}

type QueryPlan struct {
	Terms    []string  `json:"terms"`
	Mode     QueryMode `json:"mode"`
	RawQuery string    `json:"raw_query"`
}

// Parse tokenizes query the same way documents are indexed. Term order is
// kept, as is any repetition.
func Parse(query string, mode QueryMode) *QueryPlan {
	return &QueryPlan{
		Terms:    tokenizer.Tokenize(query),
		Mode:     mode,
		RawQuery: query,
	}
}

// Phrase is the text a phrase query must find in a document's joined content.
func (p *QueryPlan) Phrase() string {
	return strings.Join(p.Terms, " ")
}
