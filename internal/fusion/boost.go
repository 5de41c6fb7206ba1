package fusion

import (
	"strings"

	"github.com/quarrylabs/quarry/internal/languages"
	"github.com/quarrylabs/quarry/pkg/types"
)

// DefinitionBoost is the score multiplier applied to chunks that define a
// named symbol. A chunk defining a symbol is more relevant to a query naming
// that symbol than one that merely references it, and plain RRF has no notion
// of the difference.
const DefinitionBoost = 2.0

// introducers lists the leading tokens that mark a definition per language
// family. A chunk whose first non-whitespace token is one of these defines
// whatever symbol it carries rather than referencing it.
var introducers = map[string]map[string]bool{
	"go": {
		"func": true, "type": true, "const": true, "var": true,
	},
	"python": {
		"def": true, "class": true, "async": true,
	},
	"ecmascript": {
		"function": true, "class": true, "interface": true, "type": true,
		"enum": true, "export": true, "const": true, "async": true,
	},
	"clike": {
		"class": true, "struct": true, "enum": true, "interface": true,
		"public": true, "private": true, "protected": true, "static": true,
		"void": true, "fun": true,
	},
	"rust": {
		"fn": true, "struct": true, "enum": true, "trait": true,
		"impl": true, "pub": true, "const": true, "static": true,
	},
	"ruby": {
		"def": true, "class": true, "module": true,
	},
	"shell": {
		"function": true,
	},
}

// BoostDefinitions multiplies the combined score of definition-like hits by
// DefinitionBoost and re-sorts with the fusion tie-break rule. A hit
// qualifies when its symbol type is set and its chunk text opens with a
// definition introducer for the chunk's language family.
//
// The input slice is not modified; identical input always produces identical
// output, and untouched hits keep their relative order.
func BoostDefinitions(hits []types.FusedHit) []types.FusedHit {
	boosted := make([]types.FusedHit, len(hits))
	copy(boosted, hits)

	for i := range boosted {
		if isDefinition(&boosted[i]) {
			boosted[i].CombinedScore *= DefinitionBoost
		}
	}
	SortHits(boosted)

	return boosted
}

func isDefinition(hit *types.FusedHit) bool {
	if hit.Symbol.Type == "" {
		return false
	}
	token := firstToken(hit.Content)
	if token == "" {
		return false
	}
	family := languages.Family(hit.Metadata.LanguageID)
	return introducers[family][token]
}

// firstToken returns the first non-whitespace token of the chunk text.
func firstToken(content string) string {
	for _, field := range strings.Fields(content) {
		return field
	}
	return ""
}
