// Package tokenize normalizes query text for lexical retrieval. It splits
// camelCase and snake_case identifiers into constituent words and classifies
// queries as identifier-shaped or prose, which drives automatic hybrid-mode
// selection.
package tokenize
