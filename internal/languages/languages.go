package languages

import (
	"sort"
	"strings"

	"github.com/quarrylabs/quarry/pkg/types"
)

// canonical maps every canonical language name to its family. Families group
// languages that share definition syntax for the definition booster.
var canonical = map[string]string{
	"go":         "go",
	"python":     "python",
	"javascript": "ecmascript",
	"typescript": "ecmascript",
	"java":       "clike",
	"c":          "clike",
	"cpp":        "clike",
	"csharp":     "clike",
	"rust":       "rust",
	"ruby":       "ruby",
	"php":        "clike",
	"kotlin":     "clike",
	"swift":      "clike",
	"scala":      "clike",
	"bash":       "shell",
}

// aliases maps common alternative spellings to canonical names.
var aliases = map[string]string{
	"golang":  "go",
	"py":      "python",
	"python3": "python",
	"js":      "javascript",
	"node":    "javascript",
	"ts":      "typescript",
	"c++":     "cpp",
	"cxx":     "cpp",
	"c#":      "csharp",
	"cs":      "csharp",
	"rb":      "ruby",
	"rs":      "rust",
	"kt":      "kotlin",
	"sh":      "bash",
	"shell":   "bash",
	"zsh":     "bash",
}

// Resolve maps a language name or alias to its canonical name. Unknown names
// return a types.UnknownLanguageError carrying the closest valid names.
func Resolve(name string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if _, ok := canonical[lower]; ok {
		return lower, nil
	}
	if target, ok := aliases[lower]; ok {
		return target, nil
	}
	return "", &types.UnknownLanguageError{Name: name, Suggestions: Suggest(lower, 3)}
}

// ResolveAll resolves a list of names, failing on the first unknown one.
func ResolveAll(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	resolved := make([]string, 0, len(names))
	for _, n := range names {
		lang, err := Resolve(n)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, lang)
	}
	return resolved, nil
}

// Family returns the syntax family for a canonical language name. Unknown
// languages fall into the "clike" family, the most permissive one.
func Family(lang string) string {
	if fam, ok := canonical[strings.ToLower(lang)]; ok {
		return fam
	}
	return "clike"
}

// Names returns all canonical language names, sorted.
func Names() []string {
	names := make([]string, 0, len(canonical))
	for name := range canonical {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Suggest returns up to max canonical names closest to the given input by
// edit distance, nearest first. Ties break alphabetically.
func Suggest(input string, max int) []string {
	type scored struct {
		name string
		dist int
	}

	candidates := make([]scored, 0, len(canonical))
	for _, name := range Names() {
		candidates = append(candidates, scored{name: name, dist: editDistance(input, name)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	if max > len(candidates) {
		max = len(candidates)
	}
	suggestions := make([]string, 0, max)
	for _, c := range candidates[:max] {
		suggestions = append(suggestions, c.name)
	}
	return suggestions
}

// editDistance computes Levenshtein distance with two rolling rows.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
