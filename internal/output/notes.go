package output

import (
	"strings"

	"github.com/shopgenie/shopgenie/internal/core"
)

// ratingLabel renders a rating for display, or "-" when absent.
func ratingLabel(p core.Product) string {
	if !p.HasRating() {
		return "-"
	}
	return strings.TrimSpace(p.Rating) + "/5"
}

func ordersLabel(p core.Product) string {
	if strings.TrimSpace(p.Orders) == "" {
		return "-"
	}
	return strings.TrimSpace(p.Orders)
}

func sourceLabel(p core.Product) string {
	if strings.TrimSpace(p.Source) == "" {
		return core.DefaultSource
	}
	return p.Source
}

// truncate shortens value to limit runes, marking the cut with an ellipsis.
func truncate(value string, limit int) string {
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	if limit == 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}
