// Package retriever implements the two retrieval paths feeding rank fusion:
// nearest-neighbor search over chunk embeddings and lexical relevance search
// over chunk text. The vector path is mandatory and fails hard; the keyword
// path is optional and degrades to empty on any fault.
package retriever
