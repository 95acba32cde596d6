package output

import (
	"fmt"
	"strings"

	"github.com/shopgenie/shopgenie/internal/core"
)

// MarkdownFormatter renders results as a markdown table.
type MarkdownFormatter struct{}

// Format renders a result set as Markdown.
func (f *MarkdownFormatter) Format(query string, results core.ResultSet) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Results for %s\n\n", escapeMarkdownCell(query)))

	if len(results) == 0 {
		sb.WriteString("No results found.\n")
		return sb.String(), nil
	}

	sb.WriteString("| # | Title | Price | Rating | Orders |\n")
	sb.WriteString("|---|-------|-------|--------|--------|\n")

	for i, p := range results {
		title := escapeMarkdownCell(p.Title)
		if p.ProductURL != "" {
			title = fmt.Sprintf("[%s](%s)", title, p.ProductURL)
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1,
			title,
			escapeMarkdownCell(p.Price),
			escapeMarkdownCell(ratingLabel(p)),
			escapeMarkdownCell(ordersLabel(p)),
		))
	}

	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "|", "\\|")
	return strings.TrimSpace(value)
}
