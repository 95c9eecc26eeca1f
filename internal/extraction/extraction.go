// Package extraction calls an external document-AI endpoint to prefill
// expense fields from a receipt image. Results are suggestions only; every
// field is nullable and the user's form wins.
package extraction

import (
	"context"
	"io"
)

// Result carries whatever the extractor could read. Nil means the field was
// not found; the server never fills gaps with guesses.
type Result struct {
	Amount     *int64  `json:"amount,omitempty"`
	Date       *string `json:"date,omitempty"`
	Vendor     *string `json:"vendor,omitempty"`
	TaxID      *string `json:"tax_id,omitempty"`
	Category   *string `json:"category,omitempty"`
	Confidence float64 `json:"confidence"`
}

type Extractor interface {
	Extract(ctx context.Context, filename string, contentType string, body io.Reader) (*Result, error)
}
