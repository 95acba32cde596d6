package core

import "strings"

// DefaultSource labels records extracted from the configured marketplace.
const DefaultSource = "AliExpress"

// NoRating marks a record whose rating could not be extracted.
const NoRating = "N/A"

// Product is one extracted marketplace listing. Title and Price are
// required; everything else is an optional display enrichment.
type Product struct {
	Title      string `json:"title" yaml:"title"`
	Price      string `json:"price" yaml:"price"`
	Rating     string `json:"rating" yaml:"rating"`
	Orders     string `json:"orders,omitempty" yaml:"orders"`
	ImageURL   string `json:"image_url,omitempty" yaml:"image_url"`
	ProductURL string `json:"product_url,omitempty" yaml:"product_url"`
	Source     string `json:"source" yaml:"source"`
}

// Valid reports whether the record carries both a title and a price.
func (p Product) Valid() bool {
	return strings.TrimSpace(p.Title) != "" && strings.TrimSpace(p.Price) != ""
}

// HasRating reports whether a displayable rating is present.
func (p Product) HasRating() bool {
	rating := strings.TrimSpace(p.Rating)
	return rating != "" && rating != NoRating
}

// ResultSet is the capped, ordered set of products for one query.
type ResultSet []Product

// Cap returns at most n records, preserving order.
func (rs ResultSet) Cap(n int) ResultSet {
	if n <= 0 || len(rs) <= n {
		return rs
	}
	return rs[:n]
}

// Render modes understood by the outbound delivery collaborator.
const (
	ParseModeHTML  = "HTML"
	ParseModePlain = ""
)

// OutboundPart is one message the caller must deliver, in order.
type OutboundPart struct {
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}
