package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopgenie/shopgenie/internal/core"
)

func sampleProducts() core.ResultSet {
	return core.ResultSet{
		{
			Title:      "Braided USB-C Cable",
			Price:      "US $2.99",
			Rating:     "4.7",
			Orders:     "1,204 sold",
			ProductURL: "https://www.aliexpress.com/item/1001.html",
			ImageURL:   "https://ae01.alicdn.com/kf/1001.jpg",
			Source:     core.DefaultSource,
		},
		{
			Title:  "Magnetic | Charging Cable",
			Price:  "€4,10",
			Rating: core.NoRating,
			Source: core.DefaultSource,
		},
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("html")
	require.NoError(t, err)
	require.Equal(t, FormatHTML, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestJSONFormatter(t *testing.T) {
	rendered, err := NewFormatter(FormatJSON).Format("usb cable", sampleProducts())
	require.NoError(t, err)

	var decoded struct {
		Query   string         `json:"query"`
		Count   int            `json:"count"`
		Results []core.Product `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Equal(t, "usb cable", decoded.Query)
	require.Equal(t, 2, decoded.Count)
	require.Equal(t, "1,204 sold", decoded.Results[0].Orders)

	empty, err := (&JSONFormatter{}).Format("none", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"query":"none","count":0,"results":[]}`, empty)
}

func TestTableFormatter(t *testing.T) {
	rendered, err := NewFormatter(FormatTable).Format("usb cable", sampleProducts())
	require.NoError(t, err)
	require.Contains(t, rendered, "Braided USB-C Cable")
	require.Contains(t, rendered, "4.7/5")
	require.Contains(t, strings.ToUpper(rendered), "2 PRODUCTS")

	empty, err := NewFormatter(FormatTable).Format("xyz123", nil)
	require.NoError(t, err)
	require.Contains(t, empty, "xyz123")
}

func TestMarkdownFormatter(t *testing.T) {
	rendered, err := NewFormatter(FormatMarkdown).Format("usb cable", sampleProducts())
	require.NoError(t, err)
	require.Contains(t, rendered, "[Braided USB-C Cable](https://www.aliexpress.com/item/1001.html)")
	require.Contains(t, rendered, "Magnetic \\| Charging Cable")
	require.Contains(t, rendered, "| - |")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", truncate("abc", 3))
	require.Equal(t, "ab…", truncate("abcd", 3))
	require.Equal(t, "…", truncate("abcd", 1))
	require.Equal(t, "abcd", truncate("abcd", 0))
}
