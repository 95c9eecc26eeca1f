package project

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gestionviaticos/viaticos/internal"
	projectDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/project"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) Create(ctx context.Context, dto CreateProjectDTO) (*projectDatamodel.Project, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	projectType := dto.Type
	if projectType == "" {
		projectType = projectDatamodel.TypeStandard
	}

	p := &projectDatamodel.Project{
		Name:      strings.TrimSpace(dto.Name),
		Client:    dto.Client,
		Code:      dto.Code,
		Recurring: dto.Recurring,
		Type:      projectType,
		Status:    projectDatamodel.StatusActive,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("project created", "project_id", p.ID, "name", p.Name, "type", p.Type)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*projectDatamodel.Project, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns active projects; includeDeleted widens it to the full catalog
// for admin views that need history.
func (s *Service) List(ctx context.Context, includeDeleted bool) ([]*projectDatamodel.Project, error) {
	return s.repo.List(ctx, includeDeleted)
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateProjectDTO) (*projectDatamodel.Project, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted() {
		return nil, internal.NewPolicyError("project is deleted", internal.ErrCodeProjectDeleted)
	}

	if dto.Name != nil {
		p.Name = strings.TrimSpace(*dto.Name)
	}
	if dto.Client != nil {
		p.Client = *dto.Client
	}
	if dto.Code != nil {
		p.Code = *dto.Code
	}
	if dto.Recurring != nil {
		p.Recurring = *dto.Recurring
	}

	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete soft-deletes: the row stays so allocations and expenses keep a valid
// reference and historical reports still resolve the name.
func (s *Service) Delete(ctx context.Context, id int64) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.IsDeleted() {
		return nil
	}

	p.Status = projectDatamodel.StatusDeleted
	if err := s.repo.Save(ctx, p); err != nil {
		return err
	}

	s.logger.Info("project deleted", "project_id", id, "name", p.Name)
	return nil
}

// Detail returns the accounting view: derived totals from the raw records
// next to the stored expenses cache, so a drifted cache is visible.
func (s *Service) Detail(ctx context.Context, id int64) (*Detail, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	allocs, err := s.repo.ListAllocationsByProject(ctx, id)
	if err != nil {
		return nil, err
	}
	expenses, err := s.repo.ListExpensesByProject(ctx, id)
	if err != nil {
		return nil, err
	}

	breakdown := breakdownFor(id, allocs, expenses)
	return &Detail{
		Project:        p,
		Assigned:       breakdown.Assigned,
		Justified:      breakdown.Justified,
		SpentTotal:     breakdown.SpentTotal,
		RejectedTotal:  breakdown.RejectedTotal,
		CachedExpenses: p.Expenses,
		Expenses:       expenses,
		Allocations:    allocs,
	}, nil
}
