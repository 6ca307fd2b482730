package gallery

import (
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// minSearchSimilarity is the score below which a gif is excluded from
// search results entirely (unless it matched on a category label).
const minSearchSimilarity = 0.25

// RankBySearchTerm orders the gifs provided by their similarity to the
// search term, filtering out poor matches. Gifs whose category labels
// contain the term verbatim are always retained.
func RankBySearchTerm(gifs []*Gif, term string) []*Gif {
	metric := &metrics.JaroWinkler{CaseSensitive: false}
	term = strings.TrimSpace(term)
	if term == "" {
		return gifs
	}

	type scored struct {
		gif   *Gif
		score float64
	}

	matches := make([]scored, 0, len(gifs))
	for _, gif := range gifs {
		score := strutil.Similarity(searchableTitle(gif), term, metric)
		if categoryMatches(gif, term) {
			score = 1
		}

		if score >= minSearchSimilarity {
			matches = append(matches, scored{gif, score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	output := make([]*Gif, len(matches))
	for k, match := range matches {
		output[k] = match.gif
	}

	return output
}

func searchableTitle(gif *Gif) string {
	if gif.Title != "" {
		return gif.Title
	}

	return gif.OriginalName
}

func categoryMatches(gif *Gif, term string) bool {
	for _, label := range gif.Categories {
		if strings.Contains(strings.ToLower(label), strings.ToLower(term)) {
			return true
		}
	}

	return false
}
