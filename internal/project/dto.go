package project

import (
	"strings"

	"github.com/gestionviaticos/viaticos/internal"
	projectDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/project"
)

type CreateProjectDTO struct {
	Name      string `json:"name"`
	Client    string `json:"client,omitempty"`
	Code      string `json:"code,omitempty"`
	Recurring bool   `json:"recurring"`
	Type      string `json:"type,omitempty"`
}

func (dto CreateProjectDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationError("project name is required", internal.ErrCodeValidationFailed)
	}
	switch dto.Type {
	case "", projectDatamodel.TypeStandard, projectDatamodel.TypePettyCash:
	default:
		return internal.NewValidationError("unknown project type", internal.ErrCodeValidationFailed)
	}
	return nil
}

type UpdateProjectDTO struct {
	Name      *string `json:"name,omitempty"`
	Client    *string `json:"client,omitempty"`
	Code      *string `json:"code,omitempty"`
	Recurring *bool   `json:"recurring,omitempty"`
}

func (dto UpdateProjectDTO) Validate() error {
	if dto.Name != nil && strings.TrimSpace(*dto.Name) == "" {
		return internal.NewValidationError("project name cannot be empty", internal.ErrCodeValidationFailed)
	}
	return nil
}
