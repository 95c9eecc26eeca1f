package ledger

import (
	"context"

	allocationDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/allocation"
	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
	userDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/user"
)

// Store is the persistence boundary of the mutation protocol. Implementations
// must guarantee that everything executed inside Atomically lands together or
// not at all, and that the Add* increments are relative writes so concurrent
// batches compose.
type Store interface {
	// Atomically runs fn against a transactional view of the store. A non-nil
	// error from fn rolls the whole batch back.
	Atomically(ctx context.Context, fn func(tx Store) error) error

	GetExpense(ctx context.Context, id int64) (*expenseDatamodel.Expense, error)
	CreateExpense(ctx context.Context, exp *expenseDatamodel.Expense) error
	SaveExpense(ctx context.Context, exp *expenseDatamodel.Expense) error
	DeleteExpense(ctx context.Context, id int64) error

	GetAllocation(ctx context.Context, id int64) (*allocationDatamodel.Allocation, error)
	CreateAllocation(ctx context.Context, alloc *allocationDatamodel.Allocation) error
	SaveAllocation(ctx context.Context, alloc *allocationDatamodel.Allocation) error
	DeleteAllocation(ctx context.Context, id int64) error

	// AddUserBalance applies a relative increment to the cached balance.
	// found is false when no such user row exists; the protocol treats that
	// as a consistency warning, not a failure.
	AddUserBalance(ctx context.Context, userID string, delta int64) (found bool, err error)

	// AddProjectExpenses applies a relative increment to the cached approved
	// total of a project, with the same missing-target semantics.
	AddProjectExpenses(ctx context.Context, projectID int64, delta int64) (found bool, err error)

	// SetUserBalance overwrites the cached balance; used by the repair engine.
	SetUserBalance(ctx context.Context, userID string, balance int64) error

	ListUsers(ctx context.Context) ([]*userDatamodel.User, error)
	ListAllocations(ctx context.Context) ([]*allocationDatamodel.Allocation, error)
	ListExpenses(ctx context.Context) ([]*expenseDatamodel.Expense, error)
}
