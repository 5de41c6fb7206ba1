// Package embedder generates vector embeddings for code text.
//
// Three providers are supported: any OpenAI-compatible /embeddings endpoint,
// a local Ollama server via its native embed API, and a deterministic offline
// provider for tests and air-gapped setups.
//
// # Provider Selection
//
// The factory selects a provider from the environment:
//
//  1. QUARRY_EMBEDDING_PROVIDER set → use that provider (openai, ollama, local)
//  2. OPENAI_API_KEY set → OpenAI-compatible provider
//  3. QUARRY_OLLAMA_URL set → Ollama
//  4. Otherwise → local offline provider
//
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "func ParseFile(path string) error { ... }",
//	})
//
// # Batching and Caching
//
// GenerateBatch sends up to MaxBatchSize texts per API call, which is the
// right shape for indexing runs. Results are cached in-process by content
// hash with LRU eviction, so re-embedding unchanged chunks and repeated
// queries never hit the network twice.
//
// # Error Handling
//
// Remote calls retry transient failures with exponential backoff; after the
// final attempt the error wraps ErrProviderFailed:
//
//	resp, err := emb.GenerateBatch(ctx, req)
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // provider unavailable, surface to the caller
//	}
package embedder
