package expense

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gestionviaticos/viaticos/internal"
	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
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

// Submit creates a single pending expense for the given user.
func (s *Service) Submit(ctx context.Context, userID string, dto CreateExpenseDTO) (*expenseDatamodel.Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exp := &expenseDatamodel.Expense{
		UserID:           userID,
		ProjectID:        dto.ProjectID,
		EventName:        strings.TrimSpace(dto.EventName),
		Category:         dto.Category,
		Vendor:           dto.Vendor,
		TaxID:            dto.TaxID,
		Amount:           dto.Amount,
		Currency:         dto.Currency,
		ExpenseDate:      dto.ExpenseDate,
		ReceiptURL:       dto.ReceiptURL,
		IsCompanyExpense: dto.IsCompanyExpense,
	}

	if err := s.ledger.SubmitExpense(ctx, exp); err != nil {
		return nil, err
	}

	s.logger.Info("expense submitted",
		"expense_id", exp.ID,
		"user_id", userID,
		"amount", exp.Amount,
		"company", exp.IsCompanyExpense)
	return exp, nil
}

// SubmitSplit creates one expense row per split leg, all sharing a group ID,
// and credits the declared total exactly once.
func (s *Service) SubmitSplit(ctx context.Context, userID string, dto CreateSplitDTO) ([]*expenseDatamodel.Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	rows := make([]*expenseDatamodel.Expense, 0, len(dto.Rows))
	for _, row := range dto.Rows {
		rows = append(rows, &expenseDatamodel.Expense{
			UserID:           userID,
			ProjectID:        row.ProjectID,
			EventName:        strings.TrimSpace(dto.EventName),
			Category:         dto.Category,
			Vendor:           dto.Vendor,
			Amount:           row.Amount,
			Currency:         dto.Currency,
			ExpenseDate:      dto.ExpenseDate,
			ReceiptURL:       dto.ReceiptURL,
			IsCompanyExpense: dto.IsCompanyExpense,
		})
	}

	if err := s.ledger.SubmitSplit(ctx, dto.TotalAmount, rows); err != nil {
		return nil, err
	}

	s.logger.Info("split submitted",
		"user_id", userID,
		"rows", len(rows),
		"total", dto.TotalAmount)
	return rows, nil
}

// Get returns one expense. Professionals only see their own.
func (s *Service) Get(ctx context.Context, id int64, requesterID string, isAdmin bool) (*expenseDatamodel.Expense, error) {
	exp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && exp.UserID != requesterID {
		return nil, internal.ErrUnauthorizedAccess
	}
	return exp, nil
}

// ListMine returns the requester's own expenses, newest first.
func (s *Service) ListMine(ctx context.Context, userID string) ([]*expenseDatamodel.Expense, error) {
	return s.repo.ListByUser(ctx, userID)
}

// List is the admin-wide listing with optional filters.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*expenseDatamodel.Expense, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// Approve moves a pending expense to approved. Admin only; the handler
// enforces the role, the ledger enforces the transition.
func (s *Service) Approve(ctx context.Context, id int64) (*expenseDatamodel.Expense, error) {
	exp, err := s.ledger.Approve(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("expense approved", "expense_id", id, "user_id", exp.UserID)
	return exp, nil
}

// Reject marks an expense rejected with a mandatory reason.
func (s *Service) Reject(ctx context.Context, id int64, dto RejectExpenseDTO) (*expenseDatamodel.Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	exp, err := s.ledger.Reject(ctx, id, dto.Reason)
	if err != nil {
		return nil, err
	}
	s.logger.Info("expense rejected", "expense_id", id, "user_id", exp.UserID, "reason", dto.Reason)
	return exp, nil
}

// Delete removes an expense. Owners may delete their own pending expenses;
// admins may delete any unlocked expense.
func (s *Service) Delete(ctx context.Context, id int64, requesterID string, isAdmin bool) error {
	exp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !isAdmin {
		if exp.UserID != requesterID {
			return internal.ErrUnauthorizedAccess
		}
		if exp.Status != expenseDatamodel.StatusPending {
			return internal.NewPolicyError("only pending expenses can be deleted by their owner", internal.ErrCodeInvalidTransition)
		}
	}
	if err := s.ledger.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.logger.Info("expense deleted", "expense_id", id, "by", requesterID)
	return nil
}

// Edit updates an unlocked expense. Owners may edit while pending; admins at
// any unlocked status, with the ledger re-posting the deltas.
func (s *Service) Edit(ctx context.Context, id int64, dto EditExpenseDTO, requesterID string, isAdmin bool) (*expenseDatamodel.Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		if exp.UserID != requesterID {
			return nil, internal.ErrUnauthorizedAccess
		}
		if exp.Status != expenseDatamodel.StatusPending {
			return nil, internal.NewPolicyError("only pending expenses can be edited by their owner", internal.ErrCodeInvalidTransition)
		}
	}

	return s.ledger.EditExpense(ctx, id, ledger.ExpenseEdit{
		Amount:       dto.Amount,
		ProjectID:    dto.ProjectID,
		ClearProject: dto.ClearProject,
		EventName:    dto.EventName,
		Category:     dto.Category,
		Vendor:       dto.Vendor,
		ExpenseDate:  dto.ExpenseDate,
	})
}

// SplitGroup returns every row that shares a split group, so the UI can show
// the whole receipt behind any one leg.
func (s *Service) SplitGroup(ctx context.Context, groupID string, requesterID string, isAdmin bool) ([]*expenseDatamodel.Expense, error) {
	rows, err := s.repo.ListBySplitGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, internal.ErrExpenseNotFound
	}
	if !isAdmin && rows[0].UserID != requesterID {
		return nil, internal.ErrUnauthorizedAccess
	}
	return rows, nil
}
