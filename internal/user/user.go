// Package user manages accounts: listing, per-user accounting summaries and
// account migration. Balances are never written here outside migration; the
// ledger owns them.
package user

import (
	"context"

	allocationDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/allocation"
	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
	userDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/user"
	"github.com/gestionviaticos/viaticos/internal/ledger"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*userDatamodel.User, error)
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	Save(ctx context.Context, u *userDatamodel.User) error
	List(ctx context.Context) ([]*userDatamodel.User, error)
	ListAllocationsByUser(ctx context.Context, userID string) ([]*allocationDatamodel.Allocation, error)
	ListExpensesByUser(ctx context.Context, userID string) ([]*expenseDatamodel.Expense, error)
	// Migrate copies the account row under the new ID, re-points every
	// allocation and expense, and deletes the old row, all in one
	// transaction. The stored balance is carried over unchanged.
	Migrate(ctx context.Context, oldID, newID string) error
}

// PasswordHasher is satisfied by the auth service.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// Profile is a user plus the accounting summary derived from the raw records.
type Profile struct {
	User    *userDatamodel.User `json:"user"`
	Summary ledger.UserSummary  `json:"summary"`
}
