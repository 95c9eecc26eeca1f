// Package project manages the project catalog and its accounting view. A
// project is never hard-deleted while referenced; delete marks it and keeps
// the history intact.
package project

import (
	"context"

	allocationDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/allocation"
	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
	projectDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/project"
	"github.com/gestionviaticos/viaticos/internal/ledger"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*projectDatamodel.Project, error)
	Create(ctx context.Context, p *projectDatamodel.Project) error
	Save(ctx context.Context, p *projectDatamodel.Project) error
	List(ctx context.Context, includeDeleted bool) ([]*projectDatamodel.Project, error)
	ListAllocationsByProject(ctx context.Context, projectID int64) ([]*allocationDatamodel.Allocation, error)
	ListExpensesByProject(ctx context.Context, projectID int64) ([]*expenseDatamodel.Expense, error)
}

// Detail is the accounting view of one project: the derived totals plus the
// stored cache so drift is visible without a repair run.
type Detail struct {
	Project        *projectDatamodel.Project         `json:"project"`
	Assigned       int64                             `json:"assigned"`
	Justified      int64                             `json:"justified"`
	SpentTotal     int64                             `json:"spent_total"`
	RejectedTotal  int64                             `json:"rejected_total"`
	CachedExpenses int64                             `json:"cached_expenses"`
	Expenses       []*expenseDatamodel.Expense       `json:"expenses"`
	Allocations    []*allocationDatamodel.Allocation `json:"allocations"`
}

func breakdownFor(projectID int64, allocs []*allocationDatamodel.Allocation, expenses []*expenseDatamodel.Expense) ledger.Breakdown {
	return ledger.ProjectBreakdowns(allocs, expenses)[projectID]
}
