package shadertpl

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// minSuggestionSimilarity is the lowest Levenshtein similarity that still reads as a typo
const minSuggestionSimilarity = 0.6

// Suggest returns the candidate most similar to name, or "" when nothing is close enough
func Suggest(name string, candidates []string) string {
	best, bestScore := "", minSuggestionSimilarity
	lev := metrics.NewLevenshtein()
	for _, c := range candidates {
		if c == name {
			continue
		}
		if s := strutil.Similarity(name, c, lev); s >= bestScore {
			best, bestScore = c, s
		}
	}
	return best
}

func didYouMean(name string, candidates []string) string {
	if s := Suggest(name, candidates); s != "" {
		return " (did you mean '" + s + "'?)"
	}
	return ""
}
