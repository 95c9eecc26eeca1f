package allocation

import (
	"time"

	"github.com/gestionviaticos/viaticos/internal"
)

// CreateAllocationDTO grants float to a user against a project.
type CreateAllocationDTO struct {
	UserID    string    `json:"user_id"`
	ProjectID int64     `json:"project_id"`
	Amount    int64     `json:"amount"`
	Date      time.Time `json:"date"`
	Note      string    `json:"note,omitempty"`
}

func (dto CreateAllocationDTO) Validate() error {
	if dto.UserID == "" {
		return internal.NewValidationError("user is required", internal.ErrCodeValidationFailed)
	}
	if dto.ProjectID == 0 {
		return internal.NewValidationError("project is required", internal.ErrCodeMissingProject)
	}
	if dto.Amount == 0 {
		return internal.NewValidationError("amount cannot be zero", internal.ErrCodeInvalidAmount)
	}
	if dto.Date.IsZero() {
		return internal.NewValidationError("date is required", internal.ErrCodeInvalidDate)
	}
	return nil
}

// EditAllocationDTO updates an allocation. Nil fields are left untouched.
type EditAllocationDTO struct {
	Amount    *int64     `json:"amount,omitempty"`
	UserID    *string    `json:"user_id,omitempty"`
	ProjectID *int64     `json:"project_id,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
	Note      *string    `json:"note,omitempty"`
}

func (dto EditAllocationDTO) Validate() error {
	if dto.Amount != nil && *dto.Amount == 0 {
		return internal.NewValidationError("amount cannot be zero", internal.ErrCodeInvalidAmount)
	}
	if dto.UserID != nil && *dto.UserID == "" {
		return internal.NewValidationError("user cannot be empty", internal.ErrCodeValidationFailed)
	}
	return nil
}

// TransferDTO moves granted funds between two projects for one user.
type TransferDTO struct {
	UserID        string    `json:"user_id"`
	FromProjectID int64     `json:"from_project_id"`
	ToProjectID   int64     `json:"to_project_id"`
	Amount        int64     `json:"amount"`
	Date          time.Time `json:"date"`
}

func (dto TransferDTO) Validate() error {
	if dto.UserID == "" {
		return internal.NewValidationError("user is required", internal.ErrCodeValidationFailed)
	}
	if dto.Amount <= 0 {
		return internal.NewValidationError("amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if dto.FromProjectID == dto.ToProjectID {
		return internal.NewValidationError("source and destination projects must differ", internal.ErrCodeValidationFailed)
	}
	if dto.Date.IsZero() {
		return internal.NewValidationError("date is required", internal.ErrCodeInvalidDate)
	}
	return nil
}
