package output

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopgenie/shopgenie/internal/core"
)

func TestSplitShortTextIsSingleTrimmedChunk(t *testing.T) {
	chunks := Split("  hello\nworld \n", DefaultMaxLength)
	require.Equal(t, []string{"hello\nworld"}, chunks)

	exact := strings.Repeat("a", 10)
	require.Equal(t, []string{exact}, Split(exact, 10))
}

func TestSplitManyLines(t *testing.T) {
	lines := make([]string, 100)
	for i := range lines {
		lines[i] = strings.Repeat(string(rune('a'+i%26)), 50)
	}
	text := strings.Join(lines, "\n")

	chunks := Split(text, DefaultMaxLength)
	require.Len(t, chunks, 2)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), DefaultMaxLength)
	}
	assert.Equal(t, strings.TrimSpace(text), strings.Join(chunks, "\n"))
}

func TestSplitOnLineBoundaries(t *testing.T) {
	text := "alpha\nbravo\ncharlie\ndelta"
	chunks := Split(text, 12)
	require.Equal(t, []string{"alpha\nbravo", "charlie", "delta"}, chunks)
}

func TestSplitLongLineByWords(t *testing.T) {
	text := "intro\none two three four five six\noutro"
	chunks := Split(text, 10)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 10)
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(chunks, " ")))
	assert.Equal(t, "intro", chunks[0])
	assert.Equal(t, "outro", chunks[len(chunks)-1])
}

func TestSplitOversizedWordStandsAlone(t *testing.T) {
	word := strings.Repeat("x", 25)
	text := "tiny words here " + word + " and after"
	chunks := Split(text, 10)

	require.Contains(t, chunks, word)
	for _, chunk := range chunks {
		if chunk == word {
			continue
		}
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 10)
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(chunks, " ")))
}

func TestSplitCountsRunes(t *testing.T) {
	text := strings.Repeat("é", 8) + "\n" + strings.Repeat("ü", 8)
	chunks := Split(text, 10)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("é", 8), chunks[0])
}

func TestSplitRenderedMessage(t *testing.T) {
	products := sampleProducts()
	for len(products) < 200 {
		products = append(products, sampleProducts()...)
	}
	message := (&HTMLFormatter{}).Render(products, "cable")

	chunks := Split(message, 1000)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 1000)
		assert.Equal(t, strings.Count(chunk, "<a "), strings.Count(chunk, "</a>"))
	}
	assert.Equal(t, strings.Fields(message), strings.Fields(strings.Join(chunks, "\n")))
}

func TestSplitDefaultsMaxLength(t *testing.T) {
	text := strings.Repeat("word ", 1000)
	chunks := Split(text, 0)
	require.Len(t, chunks, 2)
}

func TestSplitKeepsLongLinkElementWhole(t *testing.T) {
	product := core.Product{
		Title:      "Desk Lamp With Clamp",
		Price:      "$12.00",
		Rating:     core.NoRating,
		ProductURL: "https://www.aliexpress.com/item/1.html?" + strings.Repeat("x", 300),
		Source:     core.DefaultSource,
	}
	message := (&HTMLFormatter{}).Render(core.ResultSet{product}, "lamp")

	chunks := Split(message, 200)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.Equal(t, strings.Count(chunk, "<a "), strings.Count(chunk, "</a>"), chunk)
		assert.Equal(t, strings.Count(chunk, "<b>"), strings.Count(chunk, "</b>"), chunk)
		if !strings.Contains(chunk, "<a ") {
			assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 200)
		}
	}
	assert.Contains(t, strings.Join(chunks, "\n"), `<a href="`+product.ProductURL+`">Desk Lamp With Clamp</a>`)
}

func TestMarkupFields(t *testing.T) {
	cases := []struct {
		line string
		want []string
	}{
		{"one  two", []string{"one", "two"}},
		{`<b>1.</b> <a href="u">A B</a> tail`, []string{"<b>1.</b>", `<a href="u">A B</a>`, "tail"}},
		{`<i>Try:</i>`, []string{"<i>Try:</i>"}},
		{`open <a href="u" unclosed`, []string{"open", `<a href="u" unclosed`}},
		{`x <br/> y`, []string{"x", "<br/>", "y"}},
		{`5 &lt; 6`, []string{"5", "&lt;", "6"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, markupFields(tc.line), tc.line)
	}
}
