// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SearchRequest holds the parameters for one search call: the query the
// model chose plus the optional publication-date window it asked for.
type SearchRequest struct {
	// Query is the search query text.
	Query string `json:"query" yaml:"query"`

	// NumResults is the number of ranked results to request.
	NumResults int `json:"num_results" yaml:"num_results"`

	// DateFrom and DateTo bound the publication date filter. Zero values
	// leave the corresponding bound open.
	DateFrom time.Time `json:"date_from,omitempty" yaml:"date_from,omitempty"`
	DateTo   time.Time `json:"date_to,omitempty" yaml:"date_to,omitempty"`
}

// IsEmpty reports whether the request contains no query text.
func (r SearchRequest) IsEmpty() bool {
	return r.Query == ""
}
