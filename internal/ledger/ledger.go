// Package ledger implements the balance engine: the arithmetic contract
// between allocations, expenses and the cached per-user balance, the atomic
// mutation protocol that keeps the caches consistent, the read-side
// aggregator, and the full-history repair engine.
//
// Sign convention, defined here and nowhere else:
//
//	balance > 0  →  the company owes the user (more justified than granted)
//	balance < 0  →  the user holds unrendered float
//
// Submitting a non-company expense credits the user immediately, regardless
// of approval status; only rejection or deletion reverses that credit.
// Allocations debit the user when created.
package ledger

import (
	allocationDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/allocation"
	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
)

// SplitTolerance is the maximum accepted difference, in minor currency
// units, between a split submission's declared total and the sum of its rows.
const SplitTolerance int64 = 1

// TotalAllocated sums every allocation for the user. No status filter:
// transfer legs carry signed amounts and cancel each other out.
func TotalAllocated(userID string, allocs []*allocationDatamodel.Allocation) int64 {
	var total int64
	for _, a := range allocs {
		if a.UserID == userID {
			total += a.Amount
		}
	}
	return total
}

// TotalJustified sums the user's non-rejected, non-company expenses.
// Pending and approved both count: the credit exists from submission.
func TotalJustified(userID string, expenses []*expenseDatamodel.Expense) int64 {
	var total int64
	for _, e := range expenses {
		if e.UserID == userID && e.Status != expenseDatamodel.StatusRejected && !e.IsCompanyExpense {
			total += e.Amount
		}
	}
	return total
}

// Balance is the ground-truth formula the cached user.balance must match.
func Balance(userID string, allocs []*allocationDatamodel.Allocation, expenses []*expenseDatamodel.Expense) int64 {
	return TotalJustified(userID, expenses) - TotalAllocated(userID, allocs)
}

// ProjectSpent is the ground truth for the cached project.expenses column:
// approved expenses only, company expenses included.
func ProjectSpent(projectID int64, expenses []*expenseDatamodel.Expense) int64 {
	var total int64
	for _, e := range expenses {
		if e.ProjectID != nil && *e.ProjectID == projectID && e.Status == expenseDatamodel.StatusApproved {
			total += e.Amount
		}
	}
	return total
}

// ProjectAssigned sums every allocation targeting the project.
func ProjectAssigned(projectID int64, allocs []*allocationDatamodel.Allocation) int64 {
	var total int64
	for _, a := range allocs {
		if a.ProjectID == projectID {
			total += a.Amount
		}
	}
	return total
}
