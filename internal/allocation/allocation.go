// Package allocation manages the money the company hands to professionals:
// direct grants and project-to-project transfers. Mutations go through the
// ledger so balances move with the records.
package allocation

import (
	"context"
	"time"

	allocationDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/allocation"
	"github.com/gestionviaticos/viaticos/internal/ledger"
)

type Ledger interface {
	CreateAllocation(ctx context.Context, alloc *allocationDatamodel.Allocation) error
	DeleteAllocation(ctx context.Context, allocationID int64) error
	EditAllocation(ctx context.Context, allocationID int64, edit ledger.AllocationEdit) (*allocationDatamodel.Allocation, error)
	Transfer(ctx context.Context, userID string, fromProjectID, toProjectID, amount int64, date time.Time) ([]*allocationDatamodel.Allocation, error)
}

type ListFilter struct {
	UserID    string
	ProjectID *int64
	Limit     int
	Offset    int
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*allocationDatamodel.Allocation, error)
	List(ctx context.Context, filter ListFilter) ([]*allocationDatamodel.Allocation, error)
	ListByUser(ctx context.Context, userID string) ([]*allocationDatamodel.Allocation, error)
}
