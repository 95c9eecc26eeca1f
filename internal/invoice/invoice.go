// Package invoice bundles approved expenses into pre-bills and reconciles
// them against imported bank movements. Membership in a live invoice locks an
// expense against every ledger mutation; only annulment releases it.
package invoice

import (
	"context"
	"time"

	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
	invoiceDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/invoice"
	movementDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/movement"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*invoiceDatamodel.Invoice, error)
	List(ctx context.Context, status string) ([]*invoiceDatamodel.Invoice, error)
	GetExpenses(ctx context.Context, ids []int64) ([]*expenseDatamodel.Expense, error)
	// CreateWithLock inserts the invoice with its items and stamps the
	// invoice id on every member expense in one transaction.
	CreateWithLock(ctx context.Context, inv *invoiceDatamodel.Invoice, expenseIDs []int64) error
	// Annul marks the invoice annulled and clears the lock on its member
	// expenses in one transaction, returning the released expense ids.
	Annul(ctx context.Context, id int64, at time.Time) ([]int64, error)
	MarkPaid(ctx context.Context, id int64, at time.Time) error
	NextNumber(ctx context.Context, year int) (string, error)

	CreateMovements(ctx context.Context, movements []*movementDatamodel.Movement) error
	ListUnmatchedMovements(ctx context.Context) ([]*movementDatamodel.Movement, error)
	LinkMovement(ctx context.Context, movementID, invoiceID int64) error
}

// Match pairs a pending invoice with a bank movement of the same amount.
type Match struct {
	Invoice  *invoiceDatamodel.Invoice   `json:"invoice"`
	Movement *movementDatamodel.Movement `json:"movement"`
}

// ReconcileReport summarizes one reconciliation run.
type ReconcileReport struct {
	Matched   []Match `json:"matched"`
	Unmatched int     `json:"unmatched_movements"`
	Pending   int     `json:"pending_invoices"`
}
