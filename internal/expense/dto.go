package expense

import (
	"time"

	"github.com/gestionviaticos/viaticos/internal"
)

// CreateExpenseDTO is the request payload for a single expense submission.
// All AI-prefilled fields arrive here already merged with user overrides;
// the server never trusts the extraction output directly.
type CreateExpenseDTO struct {
	Amount           int64     `json:"amount"`
	ProjectID        *int64    `json:"project_id,omitempty"`
	EventName        string    `json:"event_name"`
	Category         string    `json:"category"`
	Vendor           string    `json:"vendor,omitempty"`
	TaxID            string    `json:"tax_id,omitempty"`
	Currency         string    `json:"currency,omitempty"`
	ExpenseDate      time.Time `json:"expense_date"`
	ReceiptURL       *string   `json:"receipt_url,omitempty"`
	IsCompanyExpense bool      `json:"is_company_expense"`
}

func (dto CreateExpenseDTO) Validate() error {
	if dto.Amount <= 0 {
		return internal.NewValidationError("amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if dto.Category == "" {
		return internal.NewValidationError("category is required", internal.ErrCodeValidationFailed)
	}
	if dto.ExpenseDate.IsZero() {
		return internal.NewValidationError("expense date is required", internal.ErrCodeInvalidDate)
	}
	if dto.ExpenseDate.After(time.Now().Add(24 * time.Hour)) {
		return internal.NewValidationError("expense date cannot be in the future", internal.ErrCodeInvalidDate)
	}
	if dto.IsCompanyExpense && dto.ProjectID == nil {
		return internal.NewValidationError("company expenses must be charged to a project", internal.ErrCodeMissingProject)
	}
	return nil
}

// SplitRowDTO is one leg of a multi-project split.
type SplitRowDTO struct {
	ProjectID *int64 `json:"project_id,omitempty"`
	Amount    int64  `json:"amount"`
}

// CreateSplitDTO submits one receipt split across several projects. The rows
// must sum to the declared total within the ledger tolerance; the ledger is
// the single authority for that check.
type CreateSplitDTO struct {
	TotalAmount      int64         `json:"total_amount"`
	EventName        string        `json:"event_name"`
	Category         string        `json:"category"`
	Vendor           string        `json:"vendor,omitempty"`
	Currency         string        `json:"currency,omitempty"`
	ExpenseDate      time.Time     `json:"expense_date"`
	ReceiptURL       *string       `json:"receipt_url,omitempty"`
	IsCompanyExpense bool          `json:"is_company_expense"`
	Rows             []SplitRowDTO `json:"rows"`
}

func (dto CreateSplitDTO) Validate() error {
	if dto.TotalAmount <= 0 {
		return internal.NewValidationError("total amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if len(dto.Rows) < 2 {
		return internal.NewValidationError("a split needs at least two rows", internal.ErrCodeValidationFailed)
	}
	if dto.Category == "" {
		return internal.NewValidationError("category is required", internal.ErrCodeValidationFailed)
	}
	if dto.ExpenseDate.IsZero() {
		return internal.NewValidationError("expense date is required", internal.ErrCodeInvalidDate)
	}
	for _, row := range dto.Rows {
		if row.Amount <= 0 {
			return internal.NewValidationError("every split row needs a positive amount", internal.ErrCodeInvalidAmount)
		}
	}
	return nil
}

// EditExpenseDTO updates an unlocked expense. Nil fields are left untouched.
type EditExpenseDTO struct {
	Amount       *int64     `json:"amount,omitempty"`
	ProjectID    *int64     `json:"project_id,omitempty"`
	ClearProject bool       `json:"clear_project,omitempty"`
	EventName    *string    `json:"event_name,omitempty"`
	Category     *string    `json:"category,omitempty"`
	Vendor       *string    `json:"vendor,omitempty"`
	ExpenseDate  *time.Time `json:"expense_date,omitempty"`
}

func (dto EditExpenseDTO) Validate() error {
	if dto.Amount != nil && *dto.Amount <= 0 {
		return internal.NewValidationError("amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if dto.ProjectID != nil && dto.ClearProject {
		return internal.NewValidationError("cannot set and clear the project at once", internal.ErrCodeValidationFailed)
	}
	return nil
}

// RejectExpenseDTO carries the mandatory rejection reason.
type RejectExpenseDTO struct {
	Reason string `json:"reason"`
}

func (dto RejectExpenseDTO) Validate() error {
	if dto.Reason == "" {
		return internal.NewValidationError("a rejection reason is required", internal.ErrCodeMissingReason)
	}
	return nil
}
