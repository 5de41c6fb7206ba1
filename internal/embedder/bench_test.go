package embedder

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkLocalEmbedding(b *testing.B) {
	provider, err := NewLocalProvider(nil)
	if err != nil {
		b.Fatal(err)
	}
	defer provider.Close()

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{
			Text: fmt.Sprintf("func Handler%d(w http.ResponseWriter, r *http.Request) {}", i),
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkLocalEmbeddingCached(b *testing.B) {
	provider, err := NewLocalProvider(NewCache(100))
	if err != nil {
		b.Fatal(err)
	}
	defer provider.Close()

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "stable query text"})
		if err != nil {
			b.Fatal(err)
		}
	}
}
