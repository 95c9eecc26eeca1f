package user

import (
	"strings"

	"github.com/gestionviaticos/viaticos/internal"
	userDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/user"
)

type CreateUserDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (dto CreateUserDTO) Validate() error {
	if strings.TrimSpace(dto.ID) == "" {
		return internal.NewValidationError("user id is required", internal.ErrCodeValidationFailed)
	}
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationError("name is required", internal.ErrCodeValidationFailed)
	}
	if !strings.Contains(dto.Email, "@") {
		return internal.NewValidationError("a valid email is required", internal.ErrCodeValidationFailed)
	}
	if len(dto.Password) < 8 {
		return internal.NewValidationError("password must be at least 8 characters", internal.ErrCodeValidationFailed)
	}
	switch dto.Role {
	case userDatamodel.RoleAdmin, userDatamodel.RoleProfessional:
	default:
		return internal.NewValidationError("unknown role", internal.ErrCodeValidationFailed)
	}
	return nil
}

type UpdateUserDTO struct {
	Name     *string `json:"name,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func (dto UpdateUserDTO) Validate() error {
	if dto.Name != nil && strings.TrimSpace(*dto.Name) == "" {
		return internal.NewValidationError("name cannot be empty", internal.ErrCodeValidationFailed)
	}
	if dto.Role != nil {
		switch *dto.Role {
		case userDatamodel.RoleAdmin, userDatamodel.RoleProfessional:
		default:
			return internal.NewValidationError("unknown role", internal.ErrCodeValidationFailed)
		}
	}
	return nil
}

// MigrateAccountDTO carries the replacement account ID.
type MigrateAccountDTO struct {
	NewID string `json:"new_id"`
}

func (dto MigrateAccountDTO) Validate() error {
	if strings.TrimSpace(dto.NewID) == "" {
		return internal.NewValidationError("new account id is required", internal.ErrCodeValidationFailed)
	}
	return nil
}
