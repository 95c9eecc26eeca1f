package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gestionviaticos/viaticos/internal"
	allocationDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/allocation"
	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
	"github.com/gestionviaticos/viaticos/internal/core/events"
)

// Service is the balance mutation protocol: the one module every caller goes
// through to create, transition, edit or delete allocations and expenses.
// Each operation runs as a single atomic batch: the record write and both
// cache deltas land together or not at all.
type Service struct {
	store  Store
	bus    *events.Bus
	logger *slog.Logger
}

func NewService(store Store, bus *events.Bus, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		bus:    bus,
		logger: logger,
	}
}

// SubmitExpense creates a pending expense and, for non-company expenses,
// credits the user's balance immediately. The credit exists from submission,
// not from approval.
func (s *Service) SubmitExpense(ctx context.Context, exp *expenseDatamodel.Expense) error {
	if exp.Amount <= 0 {
		return internal.NewValidationError("expense amount must be positive", internal.ErrCodeInvalidAmount)
	}

	now := time.Now()
	exp.Status = expenseDatamodel.StatusPending
	exp.SubmittedAt = now

	effect, err := ExpenseTransition(EventSubmit, exp.Status, exp.Amount, exp.IsCompanyExpense)
	if err != nil {
		return err
	}

	return s.commit(ctx, func(tx Store) error {
		if err := tx.CreateExpense(ctx, exp); err != nil {
			return err
		}
		return s.applyEffect(ctx, tx, exp.UserID, exp.ProjectID, effect, "submit")
	})
}

// SubmitSplit creates every row of a multi-project split in one batch and
// applies a single credit for the declared total, so a partial failure can
// never leave a fraction of the credit behind. All rows must belong to the
// same user and share the company flag.
func (s *Service) SubmitSplit(ctx context.Context, declaredTotal int64, rows []*expenseDatamodel.Expense) error {
	if len(rows) == 0 {
		return internal.NewValidationError("split submission needs at least one row", internal.ErrCodeValidationFailed)
	}
	if declaredTotal <= 0 {
		return internal.NewValidationError("declared total must be positive", internal.ErrCodeInvalidAmount)
	}

	userID := rows[0].UserID
	company := rows[0].IsCompanyExpense

	var sum int64
	for _, row := range rows {
		if row.Amount <= 0 {
			return internal.NewValidationError("expense amount must be positive", internal.ErrCodeInvalidAmount)
		}
		if row.UserID != userID || row.IsCompanyExpense != company {
			return internal.NewValidationError("split rows must share user and company flag", internal.ErrCodeValidationFailed)
		}
		sum += row.Amount
	}

	if diff := sum - declaredTotal; diff > SplitTolerance || diff < -SplitTolerance {
		return internal.NewValidationError(
			fmt.Sprintf("split rows sum to %d, declared total is %d", sum, declaredTotal),
			internal.ErrCodeSplitSumMismatch)
	}

	groupID := uuid.NewString()
	now := time.Now()
	for _, row := range rows {
		row.Status = expenseDatamodel.StatusPending
		row.SubmittedAt = now
		row.SplitGroupID = &groupID
	}

	credit := declaredTotal
	if company {
		credit = 0
	}

	return s.commit(ctx, func(tx Store) error {
		for _, row := range rows {
			if err := tx.CreateExpense(ctx, row); err != nil {
				return err
			}
		}
		return s.applyEffect(ctx, tx, userID, nil, Effect{Balance: credit}, "submit_split")
	})
}

// Approve moves a pending expense to approved and adds its amount to the
// project's approved-spend cache. The user balance is untouched: the credit
// was applied at submission.
func (s *Service) Approve(ctx context.Context, expenseID int64) (*expenseDatamodel.Expense, error) {
	var approved *expenseDatamodel.Expense

	err := s.commit(ctx, func(tx Store) error {
		exp, err := tx.GetExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		if exp.Locked() {
			return internal.ErrExpenseLocked
		}

		effect, err := ExpenseTransition(EventApprove, exp.Status, exp.Amount, exp.IsCompanyExpense)
		if err != nil {
			return err
		}

		now := time.Now()
		exp.Status = expenseDatamodel.StatusApproved
		exp.ProcessedAt = &now
		if err := tx.SaveExpense(ctx, exp); err != nil {
			return err
		}

		approved = exp
		return s.applyEffect(ctx, tx, exp.UserID, exp.ProjectID, effect, "approve")
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Reject reverses the submission credit and, when the expense had already
// been approved, the project's approved total as well. The branch on the
// current status lives in ExpenseTransition; applying the wrong row here is
// exactly the bug class that silently corrupts the caches.
func (s *Service) Reject(ctx context.Context, expenseID int64, reason string) (*expenseDatamodel.Expense, error) {
	if reason == "" {
		return nil, internal.NewValidationError("a rejection reason is required", internal.ErrCodeMissingReason)
	}

	var rejected *expenseDatamodel.Expense

	err := s.commit(ctx, func(tx Store) error {
		exp, err := tx.GetExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		if exp.Locked() {
			return internal.ErrExpenseLocked
		}

		effect, err := ExpenseTransition(EventReject, exp.Status, exp.Amount, exp.IsCompanyExpense)
		if err != nil {
			return err
		}

		now := time.Now()
		exp.Status = expenseDatamodel.StatusRejected
		exp.RejectionReason = &reason
		exp.ProcessedAt = &now
		if err := tx.SaveExpense(ctx, exp); err != nil {
			return err
		}

		rejected = exp
		return s.applyEffect(ctx, tx, exp.UserID, exp.ProjectID, effect, "reject")
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// DeleteExpense hard-deletes the record and reverses exactly the effects the
// current status once produced: the credit for pending, credit plus project
// total for approved, nothing for rejected.
func (s *Service) DeleteExpense(ctx context.Context, expenseID int64) error {
	return s.commit(ctx, func(tx Store) error {
		exp, err := tx.GetExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		if exp.Locked() {
			return internal.ErrExpenseLocked
		}

		effect, err := ExpenseTransition(EventDelete, exp.Status, exp.Amount, exp.IsCompanyExpense)
		if err != nil {
			return err
		}

		if err := tx.DeleteExpense(ctx, expenseID); err != nil {
			return err
		}
		return s.applyEffect(ctx, tx, exp.UserID, exp.ProjectID, effect, "delete")
	})
}

// ExpenseEdit carries the mutable fields of an expense. Nil pointers leave a
// field untouched; ClearProject moves the expense to the unassigned bucket.
type ExpenseEdit struct {
	Amount       *int64
	ProjectID    *int64
	ClearProject bool
	EventName    *string
	Category     *string
	Vendor       *string
	ExpenseDate  *time.Time
}

// EditExpense re-applies the delta-of-deltas: a changed amount shifts the
// balance by the difference, and for approved expenses the old amount is
// pulled from the old project's cache while the new amount lands on the new
// project's.
func (s *Service) EditExpense(ctx context.Context, expenseID int64, edit ExpenseEdit) (*expenseDatamodel.Expense, error) {
	if edit.Amount != nil && *edit.Amount <= 0 {
		return nil, internal.NewValidationError("expense amount must be positive", internal.ErrCodeInvalidAmount)
	}

	var edited *expenseDatamodel.Expense

	err := s.commit(ctx, func(tx Store) error {
		exp, err := tx.GetExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		if exp.Locked() {
			return internal.ErrExpenseLocked
		}

		oldAmount := exp.Amount
		oldProject := exp.ProjectID

		if edit.Amount != nil {
			exp.Amount = *edit.Amount
		}
		if edit.ClearProject {
			exp.ProjectID = nil
		} else if edit.ProjectID != nil {
			exp.ProjectID = edit.ProjectID
		}
		if edit.EventName != nil {
			exp.EventName = *edit.EventName
		}
		if edit.Category != nil {
			exp.Category = *edit.Category
		}
		if edit.Vendor != nil {
			exp.Vendor = *edit.Vendor
		}
		if edit.ExpenseDate != nil {
			exp.ExpenseDate = *edit.ExpenseDate
		}

		if err := tx.SaveExpense(ctx, exp); err != nil {
			return err
		}
		edited = exp

		// Rejected expenses contribute nothing, so their edits carry no deltas.
		if exp.Status != expenseDatamodel.StatusRejected && !exp.IsCompanyExpense {
			if delta := exp.Amount - oldAmount; delta != 0 {
				if err := s.applyBalance(ctx, tx, exp.UserID, delta, "edit"); err != nil {
					return err
				}
			}
		}

		if exp.Status == expenseDatamodel.StatusApproved {
			sameProject := projectIDEqual(oldProject, exp.ProjectID)
			if !sameProject || exp.Amount != oldAmount {
				if err := s.applyProject(ctx, tx, oldProject, -oldAmount, "edit"); err != nil {
					return err
				}
				if err := s.applyProject(ctx, tx, exp.ProjectID, exp.Amount, "edit"); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edited, nil
}

// CreateAllocation grants float to a user and debits their balance by the
// allocation amount in the same batch.
func (s *Service) CreateAllocation(ctx context.Context, alloc *allocationDatamodel.Allocation) error {
	if alloc.Amount == 0 {
		return internal.NewValidationError("allocation amount cannot be zero", internal.ErrCodeInvalidAmount)
	}
	if alloc.Type == "" {
		alloc.Type = allocationDatamodel.TypeGrant
	}

	effect := AllocationCreate(alloc.Amount)
	return s.commit(ctx, func(tx Store) error {
		if err := tx.CreateAllocation(ctx, alloc); err != nil {
			return err
		}
		return s.applyBalance(ctx, tx, alloc.UserID, effect.Balance, "allocation_create")
	})
}

// DeleteAllocation removes the grant and credits the amount back.
func (s *Service) DeleteAllocation(ctx context.Context, allocationID int64) error {
	return s.commit(ctx, func(tx Store) error {
		alloc, err := tx.GetAllocation(ctx, allocationID)
		if err != nil {
			return err
		}

		effect := AllocationDelete(alloc.Amount)
		if err := tx.DeleteAllocation(ctx, allocationID); err != nil {
			return err
		}
		return s.applyBalance(ctx, tx, alloc.UserID, effect.Balance, "allocation_delete")
	})
}

// AllocationEdit carries the mutable fields of an allocation.
type AllocationEdit struct {
	Amount    *int64
	UserID    *string
	ProjectID *int64
	Date      *time.Time
	Note      *string
}

// EditAllocation applies the delta-of-deltas for an amount change, and when
// the target user changes it fully reverts the old amount on the old user
// and applies the new amount on the new one.
func (s *Service) EditAllocation(ctx context.Context, allocationID int64, edit AllocationEdit) (*allocationDatamodel.Allocation, error) {
	if edit.Amount != nil && *edit.Amount == 0 {
		return nil, internal.NewValidationError("allocation amount cannot be zero", internal.ErrCodeInvalidAmount)
	}

	var edited *allocationDatamodel.Allocation

	err := s.commit(ctx, func(tx Store) error {
		alloc, err := tx.GetAllocation(ctx, allocationID)
		if err != nil {
			return err
		}

		oldAmount := alloc.Amount
		oldUser := alloc.UserID

		if edit.Amount != nil {
			alloc.Amount = *edit.Amount
		}
		if edit.UserID != nil {
			alloc.UserID = *edit.UserID
		}
		if edit.ProjectID != nil {
			alloc.ProjectID = *edit.ProjectID
		}
		if edit.Date != nil {
			alloc.Date = *edit.Date
		}
		if edit.Note != nil {
			alloc.Note = *edit.Note
		}

		if err := tx.SaveAllocation(ctx, alloc); err != nil {
			return err
		}
		edited = alloc

		if alloc.UserID == oldUser {
			effect := AllocationAmountEdit(oldAmount, alloc.Amount)
			return s.applyBalance(ctx, tx, oldUser, effect.Balance, "allocation_edit")
		}

		// Revert on the old user, apply on the new one.
		if err := s.applyBalance(ctx, tx, oldUser, AllocationDelete(oldAmount).Balance, "allocation_edit"); err != nil {
			return err
		}
		return s.applyBalance(ctx, tx, alloc.UserID, AllocationCreate(alloc.Amount).Balance, "allocation_edit")
	})
	if err != nil {
		return nil, err
	}
	return edited, nil
}

// Transfer moves previously granted funds between two projects for the same
// user: a negative leg on the source, a positive leg on the destination. The
// two legs net to zero on the user's balance; only the per-project split
// changes.
func (s *Service) Transfer(ctx context.Context, userID string, fromProjectID, toProjectID, amount int64, date time.Time) ([]*allocationDatamodel.Allocation, error) {
	if amount <= 0 {
		return nil, internal.NewValidationError("transfer amount must be positive", internal.ErrCodeInvalidAmount)
	}
	if fromProjectID == toProjectID {
		return nil, internal.NewValidationError("transfer source and destination must differ", internal.ErrCodeValidationFailed)
	}

	out := &allocationDatamodel.Allocation{
		UserID:    userID,
		ProjectID: fromProjectID,
		Amount:    -amount,
		Date:      date,
		Type:      allocationDatamodel.TypeTransferOut,
	}
	in := &allocationDatamodel.Allocation{
		UserID:    userID,
		ProjectID: toProjectID,
		Amount:    amount,
		Date:      date,
		Type:      allocationDatamodel.TypeTransferIn,
	}

	err := s.commit(ctx, func(tx Store) error {
		if err := tx.CreateAllocation(ctx, out); err != nil {
			return err
		}
		if err := tx.CreateAllocation(ctx, in); err != nil {
			return err
		}
		// The two increments cancel; applied individually so each leg stays
		// the exact inverse of its future deletion.
		if err := s.applyBalance(ctx, tx, userID, AllocationCreate(out.Amount).Balance, "transfer"); err != nil {
			return err
		}
		return s.applyBalance(ctx, tx, userID, AllocationCreate(in.Amount).Balance, "transfer")
	})
	if err != nil {
		return nil, err
	}
	return []*allocationDatamodel.Allocation{out, in}, nil
}

// commit wraps Atomically and normalizes infrastructure failures into the
// retryable batch error. Domain errors pass through untouched.
func (s *Service) commit(ctx context.Context, fn func(tx Store) error) error {
	err := s.store.Atomically(ctx, fn)
	if err == nil {
		return nil
	}
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	s.logger.Error("ledger batch commit failed", "error", err)
	return internal.ErrBatchCommitFailed.WithCause(err)
}

func (s *Service) applyEffect(ctx context.Context, tx Store, userID string, projectID *int64, effect Effect, op string) error {
	if err := s.applyBalance(ctx, tx, userID, effect.Balance, op); err != nil {
		return err
	}
	if effect.Project != 0 {
		return s.applyProject(ctx, tx, projectID, effect.Project, op)
	}
	return nil
}

// applyBalance performs the secondary cache write. A missing user is a
// degraded path, not a failure: the record write stands, the skip is logged
// and published for later reconciliation through the repair engine.
func (s *Service) applyBalance(ctx context.Context, tx Store, userID string, delta int64, op string) error {
	if delta == 0 {
		return nil
	}

	found, err := tx.AddUserBalance(ctx, userID, delta)
	if err != nil {
		return err
	}
	if !found {
		s.logger.Warn("balance update skipped, user missing",
			"user_id", userID,
			"operation", op,
			"delta", delta)
		if s.bus != nil {
			s.bus.Publish(ctx, events.BalanceSkipped{
				UserID:    userID,
				Operation: op,
				Delta:     delta,
				At:        time.Now(),
			})
		}
	}
	return nil
}

func (s *Service) applyProject(ctx context.Context, tx Store, projectID *int64, delta int64, op string) error {
	if projectID == nil || delta == 0 {
		return nil
	}

	found, err := tx.AddProjectExpenses(ctx, *projectID, delta)
	if err != nil {
		return err
	}
	if !found {
		s.logger.Warn("project total update skipped, project missing",
			"project_id", *projectID,
			"operation", op,
			"delta", delta)
	}
	return nil
}

func projectIDEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
