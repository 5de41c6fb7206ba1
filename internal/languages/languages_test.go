package languages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/quarry/pkg/types"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Canonical", "go", "go"},
		{"Alias", "golang", "go"},
		{"CaseInsensitive", "Python", "python"},
		{"AliasWithSymbol", "c++", "cpp"},
		{"Whitespace", " rust ", "rust"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUnknownSuggests(t *testing.T) {
	_, err := Resolve("pyton")
	require.Error(t, err)

	var unknownErr *types.UnknownLanguageError
	require.True(t, errors.As(err, &unknownErr))
	assert.Equal(t, "pyton", unknownErr.Name)
	assert.Contains(t, unknownErr.Suggestions, "python")
	assert.Contains(t, err.Error(), "python")
}

func TestResolveAll(t *testing.T) {
	resolved, err := ResolveAll([]string{"golang", "ts"})
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "typescript"}, resolved)

	_, err = ResolveAll([]string{"go", "cobol99"})
	assert.Error(t, err)

	resolved, err = ResolveAll(nil)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestFamily(t *testing.T) {
	assert.Equal(t, "go", Family("go"))
	assert.Equal(t, "ecmascript", Family("typescript"))
	assert.Equal(t, "clike", Family("java"))
	assert.Equal(t, "clike", Family("unknown-lang"))
}

func TestSuggestOrdering(t *testing.T) {
	got := Suggest("jav", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "java", got[0])
}
