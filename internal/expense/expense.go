// Package expense exposes the submission and review surface for expenses.
// Every operation that moves money delegates to the ledger service; this
// package only adds validation, access control and the read side.
package expense

import (
	"context"
	"time"

	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
	"github.com/gestionviaticos/viaticos/internal/ledger"
)

// Ledger is the slice of the ledger service this package needs. All balance
// and project-cache movement happens behind it.
type Ledger interface {
	SubmitExpense(ctx context.Context, exp *expenseDatamodel.Expense) error
	SubmitSplit(ctx context.Context, declaredTotal int64, rows []*expenseDatamodel.Expense) error
	Approve(ctx context.Context, expenseID int64) (*expenseDatamodel.Expense, error)
	Reject(ctx context.Context, expenseID int64, reason string) (*expenseDatamodel.Expense, error)
	DeleteExpense(ctx context.Context, expenseID int64) error
	EditExpense(ctx context.Context, expenseID int64, edit ledger.ExpenseEdit) (*expenseDatamodel.Expense, error)
}

// ListFilter narrows admin listings.
type ListFilter struct {
	UserID    string
	ProjectID *int64
	Status    string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// Repository is the read side. Writes go through the ledger.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*expenseDatamodel.Expense, error)
	List(ctx context.Context, filter ListFilter) ([]*expenseDatamodel.Expense, error)
	ListBySplitGroup(ctx context.Context, groupID string) ([]*expenseDatamodel.Expense, error)
	ListByUser(ctx context.Context, userID string) ([]*expenseDatamodel.Expense, error)
}
