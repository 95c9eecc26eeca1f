package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/gestionviaticos/viaticos/internal"
	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
	invoiceDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/invoice"
	movementDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/movement"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*invoiceDatamodel.Invoice, error) {
	var inv invoiceDatamodel.Invoice
	err := r.db.WithContext(ctx).Preload("Items").First(&inv, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrInvoiceNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *Repository) List(ctx context.Context, status string) ([]*invoiceDatamodel.Invoice, error) {
	query := r.db.WithContext(ctx).Preload("Items")
	if status != "" {
		query = query.Where("payment_status = ?", status)
	}

	var invoices []*invoiceDatamodel.Invoice
	if err := query.Order("issued_at DESC, id DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *Repository) GetExpenses(ctx context.Context, ids []int64) ([]*expenseDatamodel.Expense, error) {
	var expenses []*expenseDatamodel.Expense
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *Repository) CreateWithLock(ctx context.Context, inv *invoiceDatamodel.Invoice, expenseIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inv).Error; err != nil {
			return err
		}
		if len(expenseIDs) == 0 {
			return nil
		}

		// Guard against a concurrent invoice grabbing the same expenses.
		result := tx.Model(&expenseDatamodel.Expense{}).
			Where("id IN ? AND invoice_id IS NULL", expenseIDs).
			UpdateColumn("invoice_id", inv.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != int64(len(expenseIDs)) {
			return internal.ErrExpenseLocked
		}
		return nil
	})
}

func (r *Repository) Annul(ctx context.Context, id int64, at time.Time) ([]int64, error) {
	var released []int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var expenses []*expenseDatamodel.Expense
		if err := tx.Where("invoice_id = ?", id).Find(&expenses).Error; err != nil {
			return err
		}
		for _, exp := range expenses {
			released = append(released, exp.ID)
		}

		if err := tx.Model(&expenseDatamodel.Expense{}).
			Where("invoice_id = ?", id).
			UpdateColumn("invoice_id", nil).Error; err != nil {
			return err
		}

		result := tx.Model(&invoiceDatamodel.Invoice{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"payment_status": invoiceDatamodel.PaymentStatusAnnulled,
				"annulled_at":    at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return internal.ErrInvoiceNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

func (r *Repository) MarkPaid(ctx context.Context, id int64, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&invoiceDatamodel.Invoice{}).
		Where("id = ? AND payment_status = ?", id, invoiceDatamodel.PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_status": invoiceDatamodel.PaymentStatusPaid,
			"paid_at":        at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrInvoiceNotFound
	}
	return nil
}

// NextNumber issues PRE-<year>-<seq> numbers, restarting the sequence each
// year. The sequence continues from the highest issued number rather than a
// row count, so a deleted invoice never frees its number for reuse. Two
// concurrent generations can still read the same maximum; the unique index on
// number rejects the loser.
func (r *Repository) NextNumber(ctx context.Context, year int) (string, error) {
	prefix := fmt.Sprintf("PRE-%d-", year)

	var numbers []string
	err := r.db.WithContext(ctx).Model(&invoiceDatamodel.Invoice{}).
		Where("number LIKE ?", prefix+"%").
		Order("length(number) DESC, number DESC").
		Limit(1).
		Pluck("number", &numbers).Error
	if err != nil {
		return "", err
	}

	var seq int64
	if len(numbers) > 0 {
		n, err := strconv.ParseInt(strings.TrimPrefix(numbers[0], prefix), 10, 64)
		if err != nil {
			return "", fmt.Errorf("malformed invoice number %q: %w", numbers[0], err)
		}
		seq = n
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}

func (r *Repository) CreateMovements(ctx context.Context, movements []*movementDatamodel.Movement) error {
	return r.db.WithContext(ctx).Create(movements).Error
}

func (r *Repository) ListUnmatchedMovements(ctx context.Context) ([]*movementDatamodel.Movement, error) {
	var movements []*movementDatamodel.Movement
	err := r.db.WithContext(ctx).
		Where("invoice_id IS NULL").
		Order("date ASC, id ASC").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *Repository) LinkMovement(ctx context.Context, movementID, invoiceID int64) error {
	result := r.db.WithContext(ctx).Model(&movementDatamodel.Movement{}).
		Where("id = ? AND invoice_id IS NULL", movementID).
		UpdateColumn("invoice_id", invoiceID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.NewConflictError("movement is already matched", internal.ErrCodeValidationFailed)
	}
	return nil
}
