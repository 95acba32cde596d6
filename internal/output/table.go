package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/shopgenie/shopgenie/internal/core"
)

const tableTitleWidth = 48

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// Format renders a result set as a table.
func (f *TableFormatter) Format(query string, results core.ResultSet) (string, error) {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for %q", query), nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("Results for %q", query))
	t.AppendHeader(table.Row{"#", "Title", "Price", "Rating", "Orders", "Source"})

	for i, p := range results {
		t.AppendRow(table.Row{
			i + 1,
			truncate(p.Title, tableTitleWidth),
			p.Price,
			ratingLabel(p),
			ordersLabel(p),
			sourceLabel(p),
		})
	}

	t.AppendFooter(table.Row{"", fmt.Sprintf("%d products", len(results)), "", "", "", ""})
	return t.Render(), nil
}
