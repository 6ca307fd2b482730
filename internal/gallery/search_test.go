package gallery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func namedGif(title string, categories ...string) *Gif {
	return &Gif{gifBase: gifBase{Title: title}, Categories: categories}
}

func Test_RankBySearchTerm_OrdersBySimilarity(t *testing.T) {
	t.Parallel()
	gifs := []*Gif{
		namedGif("dancing cat"),
		namedGif("dancing dog"),
		namedGif("quarterly report"),
	}

	results := RankBySearchTerm(gifs, "dancing cat")

	assert.GreaterOrEqual(t, len(results), 2)
	assert.Equal(t, "dancing cat", results[0].Title)
	assert.Equal(t, "dancing dog", results[1].Title)
	for _, gif := range results {
		assert.NotEqual(t, "quarterly report", gif.Title)
	}
}

func Test_RankBySearchTerm_CategoryLabelAlwaysMatches(t *testing.T) {
	t.Parallel()
	gifs := []*Gif{
		namedGif("zzzzzz", "reaction"),
		namedGif("unrelated"),
	}

	results := RankBySearchTerm(gifs, "reaction")

	assert.Len(t, results, 1)
	assert.Equal(t, "zzzzzz", results[0].Title)
}

func Test_RankBySearchTerm_EmptyTermReturnsAll(t *testing.T) {
	t.Parallel()
	gifs := []*Gif{namedGif("one"), namedGif("two")}

	assert.Equal(t, gifs, RankBySearchTerm(gifs, "  "))
}

func Test_RankBySearchTerm_FallsBackToOriginalName(t *testing.T) {
	t.Parallel()
	gif := &Gif{gifBase: gifBase{OriginalName: "party-parrot.webp"}, Categories: []string{}}

	results := RankBySearchTerm([]*Gif{gif}, "party-parrot.webp")
	assert.Len(t, results, 1)
}
