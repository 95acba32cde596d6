package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopgenie/shopgenie/internal/core"
)

func TestParseRanking(t *testing.T) {
	mode, err := ParseRanking("")
	require.NoError(t, err)
	require.Equal(t, RankingNone, mode)

	mode, err = ParseRanking("SCORE")
	require.NoError(t, err)
	require.Equal(t, RankingScore, mode)

	_, err = ParseRanking("popularity")
	require.Error(t, err)
}

func TestRankNoneKeepsOrder(t *testing.T) {
	results := core.ResultSet{{Title: "b", Price: "$900"}, {Title: "a", Price: "$1", Rating: "5"}}
	require.Equal(t, results, Rank(results, RankingNone))
}

func TestRankScore(t *testing.T) {
	results := core.ResultSet{
		{Title: "pricey", Price: "$900.00", Rating: core.NoRating},
		{Title: "popular", Price: "$12.50", Rating: "4.8", Orders: "10K+ sold"},
		{Title: "cheap", Price: "$2.00", Rating: "3.9"},
	}

	ranked := Rank(results, RankingScore)
	require.Len(t, ranked, 3)
	require.Equal(t, "popular", ranked[0].Title)
	require.Equal(t, "pricey", ranked[2].Title)
	require.Equal(t, "pricey", results[0].Title, "input must not be reordered")
}

func TestParseCount(t *testing.T) {
	require.Equal(t, 1234.0, parseCount("1,234 sold"))
	require.Equal(t, 1200.0, parseCount("1.2K sold"))
	require.Equal(t, 0.0, parseCount("no orders"))
}
