package types

import (
	"errors"
	"fmt"
	"strings"
)

// User-input errors. These are surfaced synchronously with enough detail for
// the caller to self-correct; they are never retried internally.
var (
	ErrEmptyQuery    = errors.New("query cannot be empty")
	ErrUnknownIndex  = errors.New("unknown index")
	ErrInvalidLimit  = errors.New("limit must be positive")
	ErrInvalidHybrid = errors.New("invalid hybrid mode")
)

// UnknownLanguageError reports a language filter name that is neither a
// canonical language nor a known alias, along with the closest valid names.
type UnknownLanguageError struct {
	Name        string
	Suggestions []string
}

func (e *UnknownLanguageError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("unknown language %q", e.Name)
	}
	return fmt.Sprintf("unknown language %q (did you mean: %s)", e.Name, strings.Join(e.Suggestions, ", "))
}

// SymbolFilterError reports a symbol filter applied to an index whose schema
// has no symbol columns. The remedy is always re-indexing with a current
// indexer, so the message names it.
type SymbolFilterError struct {
	IndexName string
}

func (e *SymbolFilterError) Error() string {
	return fmt.Sprintf("index %q has no symbol columns; re-index it with a current indexer to enable symbol filters", e.IndexName)
}
