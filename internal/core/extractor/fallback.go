package extractor

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shopgenie/shopgenie/internal/core"
)

// SampleSource labels records served by a fallback provider.
const SampleSource = "sample"

//go:embed sample_catalog.yaml
var defaultCatalog []byte

// FallbackProvider supplies placeholder results when the marketplace cannot
// be fetched or nothing could be extracted. It is only consulted when wired
// in explicitly.
type FallbackProvider interface {
	Results(query string) core.ResultSet
}

// StaticProvider returns the same products for every query.
type StaticProvider struct {
	Products core.ResultSet
}

// Results returns a copy of the configured products labelled as samples.
func (p *StaticProvider) Results(query string) core.ResultSet {
	if p == nil {
		return nil
	}
	return labelSamples(p.Products)
}

// CatalogEntry is one product in a YAML sample catalog.
type CatalogEntry struct {
	core.Product `yaml:",inline"`
	Keywords     []string `yaml:"keywords"`
}

// Catalog is a keyword-matched sample catalog.
type Catalog struct {
	Products []CatalogEntry `yaml:"products"`
}

// LoadCatalog reads a YAML catalog from path, or the embedded sample catalog
// when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		data = raw
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog and drops entries without title or price.
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	valid := catalog.Products[:0]
	for _, entry := range catalog.Products {
		if entry.Valid() {
			valid = append(valid, entry)
		}
	}
	catalog.Products = valid

	if len(catalog.Products) == 0 {
		return nil, fmt.Errorf("catalog has no valid products")
	}
	return &catalog, nil
}

// Results returns entries whose title or keywords share a word with query,
// or the whole catalog when nothing matches.
func (c *Catalog) Results(query string) core.ResultSet {
	if c == nil {
		return nil
	}

	terms := strings.Fields(strings.ToLower(query))
	matched := make(core.ResultSet, 0, len(c.Products))
	all := make(core.ResultSet, 0, len(c.Products))
	for _, entry := range c.Products {
		all = append(all, entry.Product)
		if entry.matches(terms) {
			matched = append(matched, entry.Product)
		}
	}

	if len(matched) == 0 {
		return labelSamples(all)
	}
	return labelSamples(matched)
}

func (e CatalogEntry) matches(terms []string) bool {
	title := strings.ToLower(e.Title)
	for _, term := range terms {
		if strings.Contains(title, term) {
			return true
		}
		for _, keyword := range e.Keywords {
			if strings.EqualFold(keyword, term) {
				return true
			}
		}
	}
	return false
}

func labelSamples(products core.ResultSet) core.ResultSet {
	if len(products) == 0 {
		return nil
	}
	out := make(core.ResultSet, len(products))
	for i, p := range products {
		if p.Rating == "" {
			p.Rating = core.NoRating
		}
		p.Source = SampleSource
		out[i] = p
	}
	return out
}
