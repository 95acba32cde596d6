package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// BlockStrategy locates candidate product blocks in a parsed document.
type BlockStrategy struct {
	Name string
	Find func(doc *goquery.Selection) *goquery.Selection
}

// FieldStrategy pulls one raw field value out of a product block. An empty
// string means the strategy did not match.
type FieldStrategy func(block *goquery.Selection) string

// Blocks matches product blocks with a CSS selector.
func Blocks(selector string) BlockStrategy {
	return BlockStrategy{
		Name: selector,
		Find: func(doc *goquery.Selection) *goquery.Selection {
			return doc.Find(selector)
		},
	}
}

// Text returns the text of the first descendant matching selector.
func Text(selector string) FieldStrategy {
	return func(block *goquery.Selection) string {
		return strings.TrimSpace(block.Find(selector).First().Text())
	}
}

// Attr returns attr of the first descendant matching selector.
func Attr(selector, attr string) FieldStrategy {
	return func(block *goquery.Selection) string {
		value, _ := block.Find(selector).First().Attr(attr)
		return strings.TrimSpace(value)
	}
}

// AttrOrText prefers attr on the first match and falls back to its text.
func AttrOrText(selector, attr string) FieldStrategy {
	return func(block *goquery.Selection) string {
		node := block.Find(selector).First()
		if value, ok := node.Attr(attr); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		return strings.TrimSpace(node.Text())
	}
}

// SelfAttr reads attr from the block element itself.
func SelfAttr(attr string) FieldStrategy {
	return func(block *goquery.Selection) string {
		value, _ := block.Attr(attr)
		return strings.TrimSpace(value)
	}
}

// firstMatch runs strategies in order and returns the first value that is
// non-empty after normalize. A panicking strategy counts as a miss.
func firstMatch(block *goquery.Selection, strategies []FieldStrategy, normalize func(string) string) string {
	for _, strategy := range strategies {
		if value := applyStrategy(block, strategy, normalize); value != "" {
			return value
		}
	}
	return ""
}

func applyStrategy(block *goquery.Selection, strategy FieldStrategy, normalize func(string) string) (value string) {
	defer func() {
		if recover() != nil {
			value = ""
		}
	}()

	value = strategy(block)
	if normalize != nil {
		value = normalize(value)
	}
	return value
}

// findBlocks returns the matches of the first strategy yielding at least one block.
func findBlocks(doc *goquery.Selection, strategies []BlockStrategy) (*goquery.Selection, string) {
	for _, strategy := range strategies {
		if strategy.Find == nil {
			continue
		}
		if found := strategy.Find(doc); found != nil && found.Length() > 0 {
			return found, strategy.Name
		}
	}
	return nil, ""
}
