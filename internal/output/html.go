package output

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopgenie/shopgenie/internal/core"
)

// NoResultsMarker starts the message rendered for an empty result set.
const NoResultsMarker = "No results found for"

const closingHint = "💡 Send another product name to search again."

// HTMLFormatter renders result sets as chat HTML. Render is a pure function
// of its inputs; every scraped or user-supplied value is escaped.
type HTMLFormatter struct{}

// Format implements Formatter.
func (f *HTMLFormatter) Format(query string, results core.ResultSet) (string, error) {
	return f.Render(results, query), nil
}

// Render builds the chat message for results. Each entry is kept on its own
// lines so chunking at line boundaries never splits a tag.
func (f *HTMLFormatter) Render(results core.ResultSet, query string) string {
	q := Escape(query)
	if len(results) == 0 {
		var sb strings.Builder
		fmt.Fprintf(&sb, "😔 %s \"%s\".\n\n", NoResultsMarker, q)
		sb.WriteString("<i>Try:</i>\n")
		sb.WriteString("• Using different keywords\n")
		sb.WriteString("• Being more specific\n")
		sb.WriteString("• Checking spelling")
		return sb.String()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔍 <b>Search results for:</b> %s\n", q)
	fmt.Fprintf(&sb, "📦 Found %d %s\n\n", len(results), plural(len(results), "product", "products"))

	for i, p := range results {
		writeEntry(&sb, i+1, p)
		sb.WriteString("\n")
	}

	sb.WriteString(closingHint)
	return sb.String()
}

func writeEntry(sb *strings.Builder, index int, p core.Product) {
	title := Escape(p.Title)
	if p.ProductURL != "" {
		fmt.Fprintf(sb, "<b>%d.</b> <a href=\"%s\">%s</a>\n", index, Escape(p.ProductURL), title)
	} else {
		fmt.Fprintf(sb, "<b>%d. %s</b>\n", index, title)
	}

	fmt.Fprintf(sb, "💰 Price: %s\n", Escape(p.Price))
	if p.HasRating() {
		fmt.Fprintf(sb, "⭐ Rating: %s\n", Escape(p.Rating))
	}
	if p.ImageURL != "" {
		fmt.Fprintf(sb, "🖼 <a href=\"%s\">Image</a>\n", Escape(p.ImageURL))
	}
}

// Escape replaces the five reserved markup characters & < > " '.
func Escape(value string) string {
	return html.EscapeString(value)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
