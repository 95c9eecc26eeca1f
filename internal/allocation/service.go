package allocation

import (
	"context"
	"log/slog"

	allocationDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/allocation"
	"github.com/gestionviaticos/viaticos/internal/ledger"
)

type Service struct {
	ledger Ledger
	repo   Repository
	logger *slog.Logger
}

func NewService(ldg Ledger, repo Repository, logger *slog.Logger) *Service {
	return &Service{
		ledger: ldg,
		repo:   repo,
		logger: logger,
	}
}

// Create grants an allocation and debits the user's balance.
func (s *Service) Create(ctx context.Context, dto CreateAllocationDTO) (*allocationDatamodel.Allocation, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	alloc := &allocationDatamodel.Allocation{
		UserID:    dto.UserID,
		ProjectID: dto.ProjectID,
		Amount:    dto.Amount,
		Date:      dto.Date,
		Type:      allocationDatamodel.TypeGrant,
		Note:      dto.Note,
	}

	if err := s.ledger.CreateAllocation(ctx, alloc); err != nil {
		return nil, err
	}

	s.logger.Info("allocation created",
		"allocation_id", alloc.ID,
		"user_id", alloc.UserID,
		"project_id", alloc.ProjectID,
		"amount", alloc.Amount)
	return alloc, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*allocationDatamodel.Allocation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*allocationDatamodel.Allocation, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]*allocationDatamodel.Allocation, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Edit updates an allocation; the ledger re-posts balance deltas, including a
// full revert-and-reapply when the allocation moves to a different user.
func (s *Service) Edit(ctx context.Context, id int64, dto EditAllocationDTO) (*allocationDatamodel.Allocation, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	return s.ledger.EditAllocation(ctx, id, ledger.AllocationEdit{
		Amount:    dto.Amount,
		UserID:    dto.UserID,
		ProjectID: dto.ProjectID,
		Date:      dto.Date,
		Note:      dto.Note,
	})
}

// Delete removes the allocation and credits the amount back.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.ledger.DeleteAllocation(ctx, id); err != nil {
		return err
	}
	s.logger.Info("allocation deleted", "allocation_id", id)
	return nil
}

// Transfer creates the two legs of a project-to-project move. The user's
// total balance is unchanged; only the per-project split moves.
func (s *Service) Transfer(ctx context.Context, dto TransferDTO) ([]*allocationDatamodel.Allocation, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	legs, err := s.ledger.Transfer(ctx, dto.UserID, dto.FromProjectID, dto.ToProjectID, dto.Amount, dto.Date)
	if err != nil {
		return nil, err
	}

	s.logger.Info("transfer created",
		"user_id", dto.UserID,
		"from_project", dto.FromProjectID,
		"to_project", dto.ToProjectID,
		"amount", dto.Amount)
	return legs, nil
}
