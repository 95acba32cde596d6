package output

import (
	"encoding/json"

	"github.com/shopgenie/shopgenie/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

type jsonResult struct {
	Query   string         `json:"query"`
	Count   int            `json:"count"`
	Results core.ResultSet `json:"results"`
}

// Format renders a result set as JSON.
func (f *JSONFormatter) Format(query string, results core.ResultSet) (string, error) {
	if results == nil {
		results = core.ResultSet{}
	}
	payload := jsonResult{Query: query, Count: len(results), Results: results}

	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(payload, "", "  ")
	} else {
		data, err = json.Marshal(payload)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
