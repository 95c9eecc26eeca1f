package ledger

import (
	"fmt"

	"github.com/gestionviaticos/viaticos/internal"
	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
)

// Effect is the pair of cache deltas a mutation applies. Balance goes to
// user.balance, Project to project.expenses (ignored when the expense has no
// project). Both are zero-value when a mutation does not touch that cache.
type Effect struct {
	Balance int64
	Project int64
}

func (e Effect) Add(other Effect) Effect {
	return Effect{Balance: e.Balance + other.Balance, Project: e.Project + other.Project}
}

func (e Effect) IsZero() bool {
	return e.Balance == 0 && e.Project == 0
}

// Inverse returns the effect that exactly cancels e.
func (e Effect) Inverse() Effect {
	return Effect{Balance: -e.Balance, Project: -e.Project}
}

type ExpenseEvent string

const (
	EventSubmit  ExpenseEvent = "submit"
	EventApprove ExpenseEvent = "approve"
	EventReject  ExpenseEvent = "reject"
	EventDelete  ExpenseEvent = "delete"
)

// ExpenseTransition is the single authority for the expense half of the
// mutation table. It branches on the expense's current status, so every call
// site applies exactly the row that matches the state being left.
//
//	submit            →  balance +amount (non-company), project untouched
//	approve (pending) →  project +amount, balance untouched (already credited)
//	reject (pending)  →  balance -amount
//	reject (approved) →  balance -amount, project -amount
//	delete (pending)  →  balance -amount
//	delete (approved) →  balance -amount, project -amount
//	delete (rejected) →  nothing (credit already reversed)
//
// Company expenses never touch any user balance.
func ExpenseTransition(ev ExpenseEvent, status string, amount int64, company bool) (Effect, error) {
	credit := amount
	if company {
		credit = 0
	}

	switch ev {
	case EventSubmit:
		return Effect{Balance: credit}, nil

	case EventApprove:
		if status != expenseDatamodel.StatusPending {
			return Effect{}, invalidTransition(ev, status)
		}
		return Effect{Project: amount}, nil

	case EventReject:
		switch status {
		case expenseDatamodel.StatusPending:
			return Effect{Balance: -credit}, nil
		case expenseDatamodel.StatusApproved:
			return Effect{Balance: -credit, Project: -amount}, nil
		default:
			return Effect{}, invalidTransition(ev, status)
		}

	case EventDelete:
		switch status {
		case expenseDatamodel.StatusPending:
			return Effect{Balance: -credit}, nil
		case expenseDatamodel.StatusApproved:
			return Effect{Balance: -credit, Project: -amount}, nil
		case expenseDatamodel.StatusRejected:
			return Effect{}, nil
		default:
			return Effect{}, invalidTransition(ev, status)
		}
	}

	return Effect{}, internal.NewValidationError(
		fmt.Sprintf("unknown expense event %q", ev), internal.ErrCodeInvalidTransition)
}

func invalidTransition(ev ExpenseEvent, status string) error {
	return internal.NewConflictError(
		fmt.Sprintf("cannot %s an expense in status %q", ev, status),
		internal.ErrCodeInvalidTransition)
}

// AllocationCreate debits the user: granting float reduces what the company
// owes them.
func AllocationCreate(amount int64) Effect {
	return Effect{Balance: -amount}
}

// AllocationDelete is the exact inverse of AllocationCreate.
func AllocationDelete(amount int64) Effect {
	return Effect{Balance: amount}
}

// AllocationAmountEdit applies the delta-of-deltas for an amount change on
// the same user.
func AllocationAmountEdit(oldAmount, newAmount int64) Effect {
	return Effect{Balance: -(newAmount - oldAmount)}
}
