package embedder

import (
	"errors"
	"testing"
)

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name      string
		provider  string
		openaiKey string
		ollamaURL string
		want      string
	}{
		{
			name:     "explicit openai provider",
			provider: "openai",
			want:     ProviderOpenAI,
		},
		{
			name:     "explicit ollama provider",
			provider: "ollama",
			want:     ProviderOllama,
		},
		{
			name:     "explicit local provider",
			provider: "local",
			want:     ProviderLocal,
		},
		{
			name:     "provider name is case-insensitive",
			provider: "OpenAI",
			want:     ProviderOpenAI,
		},
		{
			name:      "openai key present",
			openaiKey: "test-key",
			want:      ProviderOpenAI,
		},
		{
			name:      "ollama url present",
			ollamaURL: "http://localhost:11434",
			want:      ProviderOllama,
		},
		{
			name:      "openai key wins over ollama url",
			openaiKey: "test-key",
			ollamaURL: "http://localhost:11434",
			want:      ProviderOpenAI,
		},
		{
			name: "nothing configured falls back to local",
			want: ProviderLocal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvProvider, tt.provider)
			t.Setenv(EnvOpenAIAPIKey, tt.openaiKey)
			t.Setenv(EnvOllamaURL, tt.ollamaURL)

			got := DetectProvider()
			if got != tt.want {
				t.Errorf("DetectProvider() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Run("local fallback", func(t *testing.T) {
		t.Setenv(EnvProvider, "")
		t.Setenv(EnvOpenAIAPIKey, "")
		t.Setenv(EnvOllamaURL, "")

		emb, err := NewFromEnv()
		if err != nil {
			t.Fatalf("NewFromEnv() error = %v", err)
		}
		defer emb.Close()

		if emb.Provider() != ProviderLocal {
			t.Errorf("Provider() = %s, want %s", emb.Provider(), ProviderLocal)
		}
	})

	t.Run("explicit openai without key fails", func(t *testing.T) {
		t.Setenv(EnvProvider, "openai")
		t.Setenv(EnvOpenAIAPIKey, "")

		_, err := NewFromEnv()
		if !errors.Is(err, ErrNoProviderEnabled) {
			t.Errorf("NewFromEnv() error = %v, want ErrNoProviderEnabled", err)
		}
	})

	t.Run("unknown provider rejected", func(t *testing.T) {
		t.Setenv(EnvProvider, "quantum")

		_, err := NewFromEnv()
		if !errors.Is(err, ErrUnknownProvider) {
			t.Errorf("NewFromEnv() error = %v, want ErrUnknownProvider", err)
		}
	})

	t.Run("explicit ollama", func(t *testing.T) {
		t.Setenv(EnvProvider, "ollama")
		t.Setenv(EnvOllamaURL, "http://embed-host:11434")

		emb, err := NewFromEnv()
		if err != nil {
			t.Fatalf("NewFromEnv() error = %v", err)
		}
		defer emb.Close()

		if emb.Provider() != ProviderOllama {
			t.Errorf("Provider() = %s, want %s", emb.Provider(), ProviderOllama)
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("local with cache", func(t *testing.T) {
		emb, err := New(Config{Provider: "local", CacheSize: 100})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer emb.Close()

		if emb.Provider() != ProviderLocal {
			t.Errorf("Provider() = %s, want %s", emb.Provider(), ProviderLocal)
		}
	})

	t.Run("openai with explicit key", func(t *testing.T) {
		emb, err := New(Config{Provider: "openai", APIKey: "sk-test"})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer emb.Close()

		if emb.Provider() != ProviderOpenAI {
			t.Errorf("Provider() = %s, want %s", emb.Provider(), ProviderOpenAI)
		}
		if emb.Dimension() != OpenAIDimension {
			t.Errorf("Dimension() = %d, want %d", emb.Dimension(), OpenAIDimension)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(Config{Provider: "nope"})
		if !errors.Is(err, ErrUnknownProvider) {
			t.Errorf("New() error = %v, want ErrUnknownProvider", err)
		}
	})
}
