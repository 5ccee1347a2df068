// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Directive is the model's planning decision for the next iteration:
// either a search to run or a signal that research is sufficient.
type Directive struct {
	// Query is the next search query. Empty when Done is set.
	Query string `json:"query,omitempty" yaml:"query,omitempty"`

	// DateFrom and DateTo bound the publication-date filter the model
	// requested. Zero values leave the bounds open.
	DateFrom time.Time `json:"date_from,omitempty" yaml:"date_from,omitempty"`
	DateTo   time.Time `json:"date_to,omitempty" yaml:"date_to,omitempty"`

	// Done signals that accumulated findings are sufficient and the
	// controller should proceed to synthesis.
	Done bool `json:"done,omitempty" yaml:"done,omitempty"`

	// Reason is the model's stated reason when Done is set.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}
