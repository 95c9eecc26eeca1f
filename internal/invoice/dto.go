package invoice

import (
	"strings"
	"time"

	"github.com/gestionviaticos/viaticos/internal"
)

// ExtraItemDTO is a free-standing invoice line not backed by an expense,
// such as a fee or a margin.
type ExtraItemDTO struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// GenerateInvoiceDTO creates a pre-bill from approved expenses. Number is
// assigned by the server when empty.
type GenerateInvoiceDTO struct {
	Number     string         `json:"number,omitempty"`
	ClientName string         `json:"client_name"`
	ProjectID  *int64         `json:"project_id,omitempty"`
	IssuedAt   time.Time      `json:"issued_at"`
	ExpenseIDs []int64        `json:"expense_ids"`
	ExtraItems []ExtraItemDTO `json:"extra_items,omitempty"`
}

func (dto GenerateInvoiceDTO) Validate() error {
	if strings.TrimSpace(dto.ClientName) == "" {
		return internal.NewValidationError("client name is required", internal.ErrCodeValidationFailed)
	}
	if len(dto.ExpenseIDs) == 0 && len(dto.ExtraItems) == 0 {
		return internal.NewValidationError("an invoice needs at least one line", internal.ErrCodeValidationFailed)
	}
	for _, item := range dto.ExtraItems {
		if item.Amount == 0 {
			return internal.NewValidationError("extra items need a non-zero amount", internal.ErrCodeInvalidAmount)
		}
		if strings.TrimSpace(item.Description) == "" {
			return internal.NewValidationError("extra items need a description", internal.ErrCodeValidationFailed)
		}
	}
	return nil
}

// ReconcileDTO tunes one reconciliation run.
type ReconcileDTO struct {
	// Tolerance is the maximum absolute difference, in minor units, between
	// an invoice total and a movement amount for the pair to match.
	Tolerance int64 `json:"tolerance"`
}
