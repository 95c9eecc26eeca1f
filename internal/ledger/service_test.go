package ledger_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gestionviaticos/viaticos/internal"
	allocationDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/allocation"
	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
	"github.com/gestionviaticos/viaticos/internal/core/events"
	"github.com/gestionviaticos/viaticos/internal/ledger"
)

var _ = Describe("LedgerService", func() {
	var (
		ctx     context.Context
		store   *memoryStore
		service *ledger.Service
	)

	const userID = "user-maria"
	var (
		projectA = int64(1)
		projectB = int64(2)
	)

	newExpense := func(amount int64, projectID *int64) *expenseDatamodel.Expense {
		return &expenseDatamodel.Expense{
			UserID:      userID,
			ProjectID:   projectID,
			EventName:   "site visit",
			Category:    "transport",
			Amount:      amount,
			ExpenseDate: time.Now(),
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = newMemoryStore()
		store.addUser(userID, 0)
		store.addProject(projectA, "Project A")
		store.addProject(projectB, "Project B")

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = ledger.NewService(store, events.NewBus(logger), logger)
	})

	Describe("the allocation/approval/rejection cycle", func() {
		It("reproduces the reference scenario exactly", func() {
			// Grant 100000 for project A.
			err := service.CreateAllocation(ctx, &allocationDatamodel.Allocation{
				UserID: userID, ProjectID: projectA, Amount: 100000, Date: time.Now(),
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(store.balanceOf(userID)).To(Equal(int64(-100000)))

			// Submit a 30000 expense: credited immediately, project untouched.
			exp := newExpense(30000, &projectA)
			Expect(service.SubmitExpense(ctx, exp)).To(Succeed())
			Expect(exp.Status).To(Equal(expenseDatamodel.StatusPending))
			Expect(store.balanceOf(userID)).To(Equal(int64(-70000)))
			Expect(store.projectExpensesOf(projectA)).To(BeZero())

			// Approve: balance unchanged, project total up.
			_, err = service.Approve(ctx, exp.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(store.balanceOf(userID)).To(Equal(int64(-70000)))
			Expect(store.projectExpensesOf(projectA)).To(Equal(int64(30000)))

			// Reject the now-approved expense: both caches reversed.
			rejected, err := service.Reject(ctx, exp.ID, "duplicate")
			Expect(err).ToNot(HaveOccurred())
			Expect(rejected.Status).To(Equal(expenseDatamodel.StatusRejected))
			Expect(*rejected.RejectionReason).To(Equal("duplicate"))
			Expect(store.balanceOf(userID)).To(Equal(int64(-100000)))
			Expect(store.projectExpensesOf(projectA)).To(BeZero())
		})

		It("requires a rejection reason", func() {
			exp := newExpense(1000, &projectA)
			Expect(service.SubmitExpense(ctx, exp)).To(Succeed())

			_, err := service.Reject(ctx, exp.ID, "")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeMissingReason))
		})

		It("refuses to approve twice", func() {
			exp := newExpense(1000, &projectA)
			Expect(service.SubmitExpense(ctx, exp)).To(Succeed())
			_, err := service.Approve(ctx, exp.ID)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.Approve(ctx, exp.ID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidTransition))
			Expect(store.projectExpensesOf(projectA)).To(Equal(int64(1000)))
		})
	})

	Describe("inverse operations", func() {
		It("returns to the pre-operation state after create-then-delete of an allocation", func() {
			before := store.balanceOf(userID)

			alloc := &allocationDatamodel.Allocation{UserID: userID, ProjectID: projectA, Amount: 42000, Date: time.Now()}
			Expect(service.CreateAllocation(ctx, alloc)).To(Succeed())
			Expect(store.balanceOf(userID)).To(Equal(before - 42000))

			Expect(service.DeleteAllocation(ctx, alloc.ID)).To(Succeed())
			Expect(store.balanceOf(userID)).To(Equal(before))
		})

		It("cancels a pending expense exactly on delete", func() {
			exp := newExpense(5500, &projectA)
			Expect(service.SubmitExpense(ctx, exp)).To(Succeed())
			Expect(service.DeleteExpense(ctx, exp.ID)).To(Succeed())

			Expect(store.balanceOf(userID)).To(BeZero())
			Expect(store.projectExpensesOf(projectA)).To(BeZero())
			Expect(store.expenses).To(BeEmpty())
		})

		It("cancels an approved expense exactly on delete", func() {
			exp := newExpense(5500, &projectA)
			Expect(service.SubmitExpense(ctx, exp)).To(Succeed())
			_, err := service.Approve(ctx, exp.ID)
			Expect(err).ToNot(HaveOccurred())

			Expect(service.DeleteExpense(ctx, exp.ID)).To(Succeed())
			Expect(store.balanceOf(userID)).To(BeZero())
			Expect(store.projectExpensesOf(projectA)).To(BeZero())
		})

		It("deleting a rejected expense changes nothing", func() {
			exp := newExpense(5500, &projectA)
			Expect(service.SubmitExpense(ctx, exp)).To(Succeed())
			_, err := service.Reject(ctx, exp.ID, "no receipt")
			Expect(err).ToNot(HaveOccurred())
			balanceAfterReject := store.balanceOf(userID)

			Expect(service.DeleteExpense(ctx, exp.ID)).To(Succeed())
			Expect(store.balanceOf(userID)).To(Equal(balanceAfterReject))
		})
	})

	Describe("transfers", func() {
		It("moves the per-project split without touching the user balance", func() {
			Expect(service.CreateAllocation(ctx, &allocationDatamodel.Allocation{
				UserID: userID, ProjectID: projectA, Amount: 80000, Date: time.Now(),
			})).To(Succeed())
			balanceBefore := store.balanceOf(userID)

			allocsBefore, _ := store.ListAllocations(ctx)
			var totalAssignedBefore int64
			for _, a := range allocsBefore {
				totalAssignedBefore += a.Amount
			}

			legs, err := service.Transfer(ctx, userID, projectA, projectB, 30000, time.Now())
			Expect(err).ToNot(HaveOccurred())
			Expect(legs).To(HaveLen(2))
			Expect(legs[0].Amount).To(Equal(int64(-30000)))
			Expect(legs[1].Amount).To(Equal(int64(30000)))

			Expect(store.balanceOf(userID)).To(Equal(balanceBefore))

			allocsAfter, _ := store.ListAllocations(ctx)
			var totalAssignedAfter int64
			for _, a := range allocsAfter {
				totalAssignedAfter += a.Amount
			}
			Expect(totalAssignedAfter).To(Equal(totalAssignedBefore))

			Expect(ledger.ProjectAssigned(projectA, allocsAfter)).To(Equal(int64(50000)))
			Expect(ledger.ProjectAssigned(projectB, allocsAfter)).To(Equal(int64(30000)))
		})

		It("rejects a transfer onto the same project", func() {
			_, err := service.Transfer(ctx, userID, projectA, projectA, 1000, time.Now())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("allocation edits", func() {
		It("applies the delta-of-deltas on an amount change", func() {
			alloc := &allocationDatamodel.Allocation{UserID: userID, ProjectID: projectA, Amount: 10000, Date: time.Now()}
			Expect(service.CreateAllocation(ctx, alloc)).To(Succeed())
			Expect(store.balanceOf(userID)).To(Equal(int64(-10000)))

			newAmount := int64(15000)
			_, err := service.EditAllocation(ctx, alloc.ID, ledger.AllocationEdit{Amount: &newAmount})
			Expect(err).ToNot(HaveOccurred())
			Expect(store.balanceOf(userID)).To(Equal(int64(-15000)))
		})

		It("reverts the old user and applies to the new one on reassignment", func() {
			store.addUser("user-pedro", 0)

			alloc := &allocationDatamodel.Allocation{UserID: userID, ProjectID: projectA, Amount: 10000, Date: time.Now()}
			Expect(service.CreateAllocation(ctx, alloc)).To(Succeed())

			newUser := "user-pedro"
			newAmount := int64(12000)
			_, err := service.EditAllocation(ctx, alloc.ID, ledger.AllocationEdit{UserID: &newUser, Amount: &newAmount})
			Expect(err).ToNot(HaveOccurred())

			Expect(store.balanceOf(userID)).To(BeZero())
			Expect(store.balanceOf("user-pedro")).To(Equal(int64(-12000)))
		})
	})

	Describe("split submissions", func() {
		It("rejects a split whose rows drift beyond the tolerance", func() {
			rows := []*expenseDatamodel.Expense{
				newExpense(6000, &projectA),
				newExpense(3000, &projectB),
			}
			err := service.SubmitSplit(ctx, 10000, rows)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeSplitSumMismatch))
			Expect(store.expenses).To(BeEmpty())
			Expect(store.balanceOf(userID)).To(BeZero())
		})

		It("accepts a one-unit rounding difference and credits the declared total once", func() {
			rows := []*expenseDatamodel.Expense{
				newExpense(6667, &projectA),
				newExpense(3334, &projectB),
			}
			Expect(service.SubmitSplit(ctx, 10000, rows)).To(Succeed())

			Expect(store.expenses).To(HaveLen(2))
			Expect(rows[0].SplitGroupID).ToNot(BeNil())
			Expect(*rows[0].SplitGroupID).To(Equal(*rows[1].SplitGroupID))

			// One credit for the declared total, not the row sum.
			Expect(store.balanceOf(userID)).To(Equal(int64(10000)))
		})

		It("applies all rows or none when a write fails mid-batch", func() {
			store.failCreateAfter = 1

			rows := []*expenseDatamodel.Expense{
				newExpense(5000, &projectA),
				newExpense(5000, &projectB),
			}
			err := service.SubmitSplit(ctx, 10000, rows)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeBatchCommitFailed))

			Expect(store.expenses).To(BeEmpty())
			Expect(store.balanceOf(userID)).To(BeZero())
		})
	})

	Describe("company expenses", func() {
		It("never touch the user balance but do feed the project cache on approval", func() {
			exp := newExpense(9000, &projectA)
			exp.IsCompanyExpense = true
			Expect(service.SubmitExpense(ctx, exp)).To(Succeed())
			Expect(store.balanceOf(userID)).To(BeZero())

			_, err := service.Approve(ctx, exp.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(store.balanceOf(userID)).To(BeZero())
			Expect(store.projectExpensesOf(projectA)).To(Equal(int64(9000)))
		})
	})

	Describe("invoice locks", func() {
		var locked *expenseDatamodel.Expense

		BeforeEach(func() {
			locked = newExpense(7000, &projectA)
			Expect(service.SubmitExpense(ctx, locked)).To(Succeed())
			_, err := service.Approve(ctx, locked.ID)
			Expect(err).ToNot(HaveOccurred())

			invoiceID := int64(900)
			stored := store.expenses[locked.ID]
			stored.InvoiceID = &invoiceID
		})

		It("blocks every mutation with a policy error and zero cache movement", func() {
			balanceBefore := store.balanceOf(userID)
			projectBefore := store.projectExpensesOf(projectA)

			_, err := service.Reject(ctx, locked.ID, "late")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeExpenseLocked))

			Expect(service.DeleteExpense(ctx, locked.ID)).ToNot(Succeed())

			newAmount := int64(1)
			_, err = service.EditExpense(ctx, locked.ID, ledger.ExpenseEdit{Amount: &newAmount})
			Expect(err).To(HaveOccurred())

			Expect(store.balanceOf(userID)).To(Equal(balanceBefore))
			Expect(store.projectExpensesOf(projectA)).To(Equal(projectBefore))
		})

		It("allows the same mutations again after the lock is released", func() {
			store.expenses[locked.ID].InvoiceID = nil

			_, err := service.Reject(ctx, locked.ID, "annulled invoice, duplicate charge")
			Expect(err).ToNot(HaveOccurred())
			Expect(store.balanceOf(userID)).To(Equal(int64(0)))
			Expect(store.projectExpensesOf(projectA)).To(BeZero())
		})
	})

	Describe("missing balance targets", func() {
		It("keeps the record write and skips the balance write", func() {
			exp := newExpense(3000, &projectA)
			exp.UserID = "ghost-user"
			Expect(service.SubmitExpense(ctx, exp)).To(Succeed())

			Expect(store.expenses).To(HaveLen(1))
			Expect(store.balanceOf("ghost-user")).To(BeZero())
		})
	})

	Describe("expense edits", func() {
		It("shifts the balance by the amount difference", func() {
			exp := newExpense(10000, &projectA)
			Expect(service.SubmitExpense(ctx, exp)).To(Succeed())

			newAmount := int64(12500)
			_, err := service.EditExpense(ctx, exp.ID, ledger.ExpenseEdit{Amount: &newAmount})
			Expect(err).ToNot(HaveOccurred())
			Expect(store.balanceOf(userID)).To(Equal(int64(12500)))
		})

		It("moves an approved amount between project caches", func() {
			exp := newExpense(10000, &projectA)
			Expect(service.SubmitExpense(ctx, exp)).To(Succeed())
			_, err := service.Approve(ctx, exp.ID)
			Expect(err).ToNot(HaveOccurred())

			target := projectB
			_, err = service.EditExpense(ctx, exp.ID, ledger.ExpenseEdit{ProjectID: &target})
			Expect(err).ToNot(HaveOccurred())

			Expect(store.projectExpensesOf(projectA)).To(BeZero())
			Expect(store.projectExpensesOf(projectB)).To(Equal(int64(10000)))
		})
	})

	Describe("repair", func() {
		runMixedHistory := func() {
			Expect(service.CreateAllocation(ctx, &allocationDatamodel.Allocation{
				UserID: userID, ProjectID: projectA, Amount: 100000, Date: time.Now(),
			})).To(Succeed())

			e1 := newExpense(30000, &projectA)
			Expect(service.SubmitExpense(ctx, e1)).To(Succeed())
			_, err := service.Approve(ctx, e1.ID)
			Expect(err).ToNot(HaveOccurred())

			e2 := newExpense(12000, &projectB)
			Expect(service.SubmitExpense(ctx, e2)).To(Succeed())

			e3 := newExpense(5000, nil)
			Expect(service.SubmitExpense(ctx, e3)).To(Succeed())
			_, err = service.Reject(ctx, e3.ID, "personal item")
			Expect(err).ToNot(HaveOccurred())

			_, err = service.Transfer(ctx, userID, projectA, projectB, 20000, time.Now())
			Expect(err).ToNot(HaveOccurred())
		}

		It("agrees with the incremental protocol on an untouched store", func() {
			runMixedHistory()

			allocs, _ := store.ListAllocations(ctx)
			expenses, _ := store.ListExpenses(ctx)
			Expect(store.balanceOf(userID)).To(Equal(ledger.Balance(userID, allocs, expenses)))

			report, err := service.Repair(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(report.Drifted).To(BeEmpty())
		})

		It("overwrites a corrupted cache with the derived value", func() {
			runMixedHistory()
			expected := store.balanceOf(userID)

			// Simulate drift from a partial failure or manual edit.
			store.users[userID].Balance = expected + 31337

			report, err := service.Repair(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(report.Drifted).To(HaveLen(1))
			Expect(report.Drifted[0].UserID).To(Equal(userID))
			Expect(report.Drifted[0].NewBalance).To(Equal(expected))
			Expect(store.balanceOf(userID)).To(Equal(expected))
		})

		It("is idempotent", func() {
			runMixedHistory()

			first, err := service.Repair(ctx)
			Expect(err).ToNot(HaveOccurred())

			balanceAfterFirst := store.balanceOf(userID)

			second, err := service.Repair(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(second.Drifted).To(BeEmpty())
			Expect(store.balanceOf(userID)).To(Equal(balanceAfterFirst))
			Expect(second.UsersScanned).To(Equal(first.UsersScanned))
		})
	})
})
