package engine

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopgenie/shopgenie/internal/core"
)

// Ranking modes.
const (
	RankingNone  = "none"
	RankingScore = "score"
)

// Score weights; a lower price scores higher.
const (
	priceWeight  = 0.3
	ratingWeight = 0.4
	ordersWeight = 0.3
)

var numberPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// ParseRanking validates and normalizes a ranking mode.
func ParseRanking(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", RankingNone:
		return RankingNone, nil
	case RankingScore:
		return RankingScore, nil
	default:
		return "", fmt.Errorf("unsupported ranking mode: %s", value)
	}
}

// Rank reorders results according to mode. RankingNone keeps extraction order.
func Rank(results core.ResultSet, mode string) core.ResultSet {
	if mode != RankingScore || len(results) < 2 {
		return results
	}

	ranked := make(core.ResultSet, len(results))
	copy(ranked, results)
	scores := make(map[int]float64, len(ranked))
	for i := range ranked {
		scores[i] = Score(ranked[i])
	}

	idx := make([]int, len(ranked))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	out := make(core.ResultSet, 0, len(ranked))
	for _, i := range idx {
		out = append(out, ranked[i])
	}
	return out
}

// Score computes the weighted composite score of a product in [0, 1].
func Score(p core.Product) float64 {
	ratingScore := 0.0
	if rating := parseNumber(p.Rating); rating > 0 {
		ratingScore = math.Min(rating/5.0, 1.0)
	}

	ordersScore := 0.0
	if orders := parseCount(p.Orders); orders > 0 {
		ordersScore = math.Min(math.Log10(orders+1)/6.0, 1.0)
	}

	priceScore := 0.5
	if price := parseNumber(p.Price); price > 0 {
		priceScore = math.Max(0, 1.0-math.Min(price/1000.0, 1.0))
	}

	return ratingScore*ratingWeight + ordersScore*ordersWeight + priceScore*priceWeight
}

func parseNumber(value string) float64 {
	match := numberPattern.FindString(value)
	if match == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0
	}
	return parsed
}

// parseCount understands "1,234 sold", "5000+ orders" and "1.2K sold".
func parseCount(value string) float64 {
	n := parseNumber(value)
	if n == 0 {
		return 0
	}
	upper := strings.ToUpper(value)
	switch {
	case strings.Contains(upper, "M"):
		return n * 1_000_000
	case strings.Contains(upper, "K"):
		return n * 1_000
	default:
		return n
	}
}
