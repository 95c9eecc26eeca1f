package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gestionviaticos/viaticos/internal"
	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
	invoiceDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/invoice"
	"github.com/gestionviaticos/viaticos/internal/core/events"
)

type Service struct {
	repo   Repository
	bus    *events.Bus
	logger *slog.Logger
}

func NewService(repo Repository, bus *events.Bus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		logger: logger,
	}
}

// Generate creates a pre-bill from approved, un-invoiced expenses. Creating
// the invoice stamps its id on every member expense, which freezes them for
// every ledger operation until the invoice is annulled.
func (s *Service) Generate(ctx context.Context, dto GenerateInvoiceDTO) (*invoiceDatamodel.Invoice, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	expenses, err := s.repo.GetExpenses(ctx, dto.ExpenseIDs)
	if err != nil {
		return nil, err
	}
	if len(expenses) != len(dto.ExpenseIDs) {
		return nil, internal.ErrExpenseNotFound
	}

	var total int64
	items := make([]invoiceDatamodel.Item, 0, len(expenses)+len(dto.ExtraItems))
	for _, exp := range expenses {
		if exp.Status != expenseDatamodel.StatusApproved {
			return nil, internal.NewPolicyError(
				fmt.Sprintf("expense %d is not approved", exp.ID), internal.ErrCodeInvalidTransition)
		}
		if exp.Locked() {
			return nil, internal.ErrExpenseLocked
		}

		id := exp.ID
		description := exp.EventName
		if description == "" {
			description = exp.Category
		}
		items = append(items, invoiceDatamodel.Item{
			Description: description,
			Amount:      exp.Amount,
			ExpenseID:   &id,
		})
		total += exp.Amount
	}
	for _, extra := range dto.ExtraItems {
		items = append(items, invoiceDatamodel.Item{
			Description: extra.Description,
			Amount:      extra.Amount,
		})
		total += extra.Amount
	}

	issuedAt := dto.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	number := dto.Number
	if number == "" {
		number, err = s.repo.NextNumber(ctx, issuedAt.Year())
		if err != nil {
			return nil, err
		}
	}

	inv := &invoiceDatamodel.Invoice{
		Number:        number,
		ClientName:    dto.ClientName,
		ProjectID:     dto.ProjectID,
		TotalAmount:   total,
		PaymentStatus: invoiceDatamodel.PaymentStatusPending,
		IssuedAt:      issuedAt,
		Items:         items,
	}

	if err := s.repo.CreateWithLock(ctx, inv, dto.ExpenseIDs); err != nil {
		return nil, err
	}

	s.logger.Info("invoice generated",
		"invoice_id", inv.ID,
		"number", inv.Number,
		"total", inv.TotalAmount,
		"expenses", len(dto.ExpenseIDs))
	return inv, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*invoiceDatamodel.Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, status string) ([]*invoiceDatamodel.Invoice, error) {
	return s.repo.List(ctx, status)
}

// Annul cancels an invoice and releases its member expenses in the same
// batch. The expenses keep their approved status and their balance effects;
// only the lock goes away.
func (s *Service) Annul(ctx context.Context, id int64) (*invoiceDatamodel.Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.PaymentStatus == invoiceDatamodel.PaymentStatusAnnulled {
		return nil, internal.NewPolicyError("invoice is already annulled", internal.ErrCodeInvoiceNotPending)
	}

	now := time.Now()
	released, err := s.repo.Annul(ctx, id, now)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.InvoiceAnnulled{
		InvoiceID:  id,
		ExpenseIDs: released,
		At:         now,
	})
	s.logger.Info("invoice annulled", "invoice_id", id, "released_expenses", len(released))

	return s.repo.GetByID(ctx, id)
}

// MarkPaid settles a pending invoice. Member expenses stay locked; a paid
// invoice is history, not a draft.
func (s *Service) MarkPaid(ctx context.Context, id int64) (*invoiceDatamodel.Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.PaymentStatus != invoiceDatamodel.PaymentStatusPending {
		return nil, internal.NewPolicyError("only pending invoices can be marked paid", internal.ErrCodeInvoiceNotPending)
	}

	now := time.Now()
	if err := s.repo.MarkPaid(ctx, id, now); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.InvoicePaid{
		InvoiceID: id,
		Amount:    inv.TotalAmount,
		At:        now,
	})
	return s.repo.GetByID(ctx, id)
}
