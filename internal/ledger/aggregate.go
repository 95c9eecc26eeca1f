package ledger

import (
	allocationDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/allocation"
	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
)

// UnassignedProject is the bucket key for expenses without a project.
const UnassignedProject int64 = 0

// Breakdown is a read-time rollup for one project: always derived from the
// raw records, never from the cached columns, so dashboards can detect cache
// drift. Justified includes pending and approved rows; rejected amounts are
// reported separately for audit display.
type Breakdown struct {
	Assigned      int64 `json:"assigned"`
	Justified     int64 `json:"justified"`
	SpentTotal    int64 `json:"spent_total"`
	RejectedTotal int64 `json:"rejected_total"`
}

// ProjectBreakdowns groups allocations and expenses by project id. Expenses
// without a project land under UnassignedProject.
func ProjectBreakdowns(allocs []*allocationDatamodel.Allocation, expenses []*expenseDatamodel.Expense) map[int64]Breakdown {
	out := make(map[int64]Breakdown)

	for _, a := range allocs {
		b := out[a.ProjectID]
		b.Assigned += a.Amount
		out[a.ProjectID] = b
	}

	for _, e := range expenses {
		key := UnassignedProject
		if e.ProjectID != nil {
			key = *e.ProjectID
		}
		b := out[key]
		switch e.Status {
		case expenseDatamodel.StatusRejected:
			b.RejectedTotal += e.Amount
		case expenseDatamodel.StatusApproved:
			b.Justified += e.Amount
			b.SpentTotal += e.Amount
		default:
			b.Justified += e.Amount
		}
		out[key] = b
	}

	return out
}

// UserSummary is the per-user rollup backing the admin balance views.
// Balance here is the derived number, independent of the cached column.
type UserSummary struct {
	UserID        string `json:"user_id"`
	Assigned      int64  `json:"assigned"`
	Justified     int64  `json:"justified"`
	Balance       int64  `json:"balance"`
	RejectedTotal int64  `json:"rejected_total"`
	PendingCount  int    `json:"pending_count"`
}

// SummarizeUser derives the user's totals from the raw record streams using
// the same inclusion rules as the repair engine.
func SummarizeUser(userID string, allocs []*allocationDatamodel.Allocation, expenses []*expenseDatamodel.Expense) UserSummary {
	summary := UserSummary{UserID: userID}

	summary.Assigned = TotalAllocated(userID, allocs)
	summary.Justified = TotalJustified(userID, expenses)
	summary.Balance = summary.Justified - summary.Assigned

	for _, e := range expenses {
		if e.UserID != userID {
			continue
		}
		if e.Status == expenseDatamodel.StatusRejected {
			summary.RejectedTotal += e.Amount
		}
		if e.Status == expenseDatamodel.StatusPending {
			summary.PendingCount++
		}
	}

	return summary
}
