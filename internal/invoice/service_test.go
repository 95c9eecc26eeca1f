package invoice_test

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gestionviaticos/viaticos/internal"
	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
	invoiceDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/invoice"
	movementDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/movement"
	"github.com/gestionviaticos/viaticos/internal/core/events"
	"github.com/gestionviaticos/viaticos/internal/invoice"
)

func TestInvoice(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Invoice Module Suite")
}

type fakeRepo struct {
	nextID    int64
	invoices  map[int64]*invoiceDatamodel.Invoice
	expenses  map[int64]*expenseDatamodel.Expense
	movements map[int64]*movementDatamodel.Movement
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		nextID:    1,
		invoices:  make(map[int64]*invoiceDatamodel.Invoice),
		expenses:  make(map[int64]*expenseDatamodel.Expense),
		movements: make(map[int64]*movementDatamodel.Movement),
	}
}

func (f *fakeRepo) id() int64 {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeRepo) addExpense(status string, amount int64) *expenseDatamodel.Expense {
	exp := &expenseDatamodel.Expense{
		ID: f.id(), UserID: "u1", Amount: amount, Status: status,
		EventName: "trip", ExpenseDate: time.Now(),
	}
	f.expenses[exp.ID] = exp
	return exp
}

func (f *fakeRepo) GetByID(ctx context.Context, id int64) (*invoiceDatamodel.Invoice, error) {
	if inv, ok := f.invoices[id]; ok {
		clone := *inv
		return &clone, nil
	}
	return nil, internal.ErrInvoiceNotFound
}

func (f *fakeRepo) List(ctx context.Context, status string) ([]*invoiceDatamodel.Invoice, error) {
	var out []*invoiceDatamodel.Invoice
	for _, inv := range f.invoices {
		if status == "" || inv.PaymentStatus == status {
			clone := *inv
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetExpenses(ctx context.Context, ids []int64) ([]*expenseDatamodel.Expense, error) {
	var out []*expenseDatamodel.Expense
	for _, id := range ids {
		if exp, ok := f.expenses[id]; ok {
			out = append(out, exp)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateWithLock(ctx context.Context, inv *invoiceDatamodel.Invoice, expenseIDs []int64) error {
	inv.ID = f.id()
	f.invoices[inv.ID] = inv
	for _, id := range expenseIDs {
		f.expenses[id].InvoiceID = &inv.ID
	}
	return nil
}

func (f *fakeRepo) Annul(ctx context.Context, id int64, at time.Time) ([]int64, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, internal.ErrInvoiceNotFound
	}
	var released []int64
	for _, exp := range f.expenses {
		if exp.InvoiceID != nil && *exp.InvoiceID == id {
			released = append(released, exp.ID)
			exp.InvoiceID = nil
		}
	}
	inv.PaymentStatus = invoiceDatamodel.PaymentStatusAnnulled
	inv.AnnulledAt = &at
	return released, nil
}

func (f *fakeRepo) MarkPaid(ctx context.Context, id int64, at time.Time) error {
	inv, ok := f.invoices[id]
	if !ok {
		return internal.ErrInvoiceNotFound
	}
	inv.PaymentStatus = invoiceDatamodel.PaymentStatusPaid
	inv.PaidAt = &at
	return nil
}

func (f *fakeRepo) NextNumber(ctx context.Context, year int) (string, error) {
	return fmt.Sprintf("PRE-%d-%04d", year, len(f.invoices)+1), nil
}

func (f *fakeRepo) CreateMovements(ctx context.Context, movements []*movementDatamodel.Movement) error {
	for _, mv := range movements {
		mv.ID = f.id()
		f.movements[mv.ID] = mv
	}
	return nil
}

func (f *fakeRepo) ListUnmatchedMovements(ctx context.Context) ([]*movementDatamodel.Movement, error) {
	var out []*movementDatamodel.Movement
	for _, mv := range f.movements {
		if mv.InvoiceID == nil {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (f *fakeRepo) LinkMovement(ctx context.Context, movementID, invoiceID int64) error {
	mv, ok := f.movements[movementID]
	if !ok || mv.InvoiceID != nil {
		return internal.NewConflictError("movement is already matched", internal.ErrCodeValidationFailed)
	}
	mv.InvoiceID = &invoiceID
	return nil
}

var _ = Describe("InvoiceService", func() {
	var (
		ctx     context.Context
		repo    *fakeRepo
		service *invoice.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newFakeRepo()
		service = invoice.NewService(repo, events.NewBus(slog.Default()), slog.Default())
	})

	Describe("Generate", func() {
		It("bundles approved expenses and locks them", func() {
			e1 := repo.addExpense(expenseDatamodel.StatusApproved, 40000)
			e2 := repo.addExpense(expenseDatamodel.StatusApproved, 25000)

			inv, err := service.Generate(ctx, invoice.GenerateInvoiceDTO{
				ClientName: "Minera Andina",
				ExpenseIDs: []int64{e1.ID, e2.ID},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(inv.TotalAmount).To(Equal(int64(65000)))
			Expect(inv.Items).To(HaveLen(2))
			Expect(inv.Number).To(HavePrefix("PRE-"))

			Expect(repo.expenses[e1.ID].Locked()).To(BeTrue())
			Expect(repo.expenses[e2.ID].Locked()).To(BeTrue())
		})

		It("adds free-standing extra items to the total", func() {
			e1 := repo.addExpense(expenseDatamodel.StatusApproved, 40000)

			inv, err := service.Generate(ctx, invoice.GenerateInvoiceDTO{
				ClientName: "Minera Andina",
				ExpenseIDs: []int64{e1.ID},
				ExtraItems: []invoice.ExtraItemDTO{{Description: "management fee", Amount: 10000}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(inv.TotalAmount).To(Equal(int64(50000)))
		})

		It("refuses pending expenses", func() {
			e1 := repo.addExpense(expenseDatamodel.StatusPending, 40000)

			_, err := service.Generate(ctx, invoice.GenerateInvoiceDTO{
				ClientName: "Minera Andina",
				ExpenseIDs: []int64{e1.ID},
			})
			Expect(err).To(HaveOccurred())
		})

		It("refuses expenses already on another invoice", func() {
			e1 := repo.addExpense(expenseDatamodel.StatusApproved, 40000)
			_, err := service.Generate(ctx, invoice.GenerateInvoiceDTO{
				ClientName: "First", ExpenseIDs: []int64{e1.ID},
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Generate(ctx, invoice.GenerateInvoiceDTO{
				ClientName: "Second", ExpenseIDs: []int64{e1.ID},
			})
			Expect(err).To(MatchError(internal.ErrExpenseLocked))
		})

		It("refuses unknown expense ids", func() {
			_, err := service.Generate(ctx, invoice.GenerateInvoiceDTO{
				ClientName: "Minera Andina",
				ExpenseIDs: []int64{999},
			})
			Expect(err).To(MatchError(internal.ErrExpenseNotFound))
		})
	})

	Describe("Annul", func() {
		It("releases the member expenses", func() {
			e1 := repo.addExpense(expenseDatamodel.StatusApproved, 40000)
			inv, err := service.Generate(ctx, invoice.GenerateInvoiceDTO{
				ClientName: "Minera Andina", ExpenseIDs: []int64{e1.ID},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.expenses[e1.ID].Locked()).To(BeTrue())

			annulled, err := service.Annul(ctx, inv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(annulled.PaymentStatus).To(Equal(invoiceDatamodel.PaymentStatusAnnulled))
			Expect(repo.expenses[e1.ID].Locked()).To(BeFalse())

			// Expense keeps its status; only the lock goes away.
			Expect(repo.expenses[e1.ID].Status).To(Equal(expenseDatamodel.StatusApproved))
		})

		It("refuses to annul twice", func() {
			e1 := repo.addExpense(expenseDatamodel.StatusApproved, 40000)
			inv, err := service.Generate(ctx, invoice.GenerateInvoiceDTO{
				ClientName: "Minera Andina", ExpenseIDs: []int64{e1.ID},
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Annul(ctx, inv.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Annul(ctx, inv.ID)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("MarkPaid", func() {
		It("only settles pending invoices", func() {
			e1 := repo.addExpense(expenseDatamodel.StatusApproved, 40000)
			inv, err := service.Generate(ctx, invoice.GenerateInvoiceDTO{
				ClientName: "Minera Andina", ExpenseIDs: []int64{e1.ID},
			})
			Expect(err).NotTo(HaveOccurred())

			paid, err := service.MarkPaid(ctx, inv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(paid.PaymentStatus).To(Equal(invoiceDatamodel.PaymentStatusPaid))

			_, err = service.MarkPaid(ctx, inv.ID)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ImportMovements", func() {
		It("parses a bank CSV export", func() {
			csv := strings.Join([]string{
				"date,description,amount,bank",
				"2026-08-01,TRANSFERENCIA MINERA,65000,BancoChile",
				"02/08/2026,ABONO CLIENTE,12000,BancoChile",
			}, "\n")

			movements, err := service.ImportMovements(ctx, strings.NewReader(csv))
			Expect(err).NotTo(HaveOccurred())
			Expect(movements).To(HaveLen(2))
			Expect(movements[0].Amount).To(Equal(int64(65000)))
			Expect(movements[1].Date.Day()).To(Equal(2))
		})

		It("fails the whole import on a bad row", func() {
			csv := strings.Join([]string{
				"date,description,amount,bank",
				"2026-08-01,OK,65000,BancoChile",
				"not-a-date,BROKEN,100,BancoChile",
			}, "\n")

			_, err := service.ImportMovements(ctx, strings.NewReader(csv))
			Expect(err).To(HaveOccurred())
			Expect(repo.movements).To(BeEmpty())
		})
	})

	Describe("Reconcile", func() {
		It("matches pending invoices to movements by amount and marks them paid", func() {
			e1 := repo.addExpense(expenseDatamodel.StatusApproved, 65000)
			inv, err := service.Generate(ctx, invoice.GenerateInvoiceDTO{
				ClientName: "Minera Andina", ExpenseIDs: []int64{e1.ID},
			})
			Expect(err).NotTo(HaveOccurred())

			csv := "date,description,amount,bank\n2026-08-01,TRANSFERENCIA,65000,BancoChile\n2026-08-02,OTRO,999,BancoChile"
			_, err = service.ImportMovements(ctx, strings.NewReader(csv))
			Expect(err).NotTo(HaveOccurred())

			report, err := service.Reconcile(ctx, invoice.ReconcileDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Matched).To(HaveLen(1))
			Expect(report.Unmatched).To(Equal(1))
			Expect(report.Matched[0].Invoice.ID).To(Equal(inv.ID))

			settled, err := service.Get(ctx, inv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(settled.PaymentStatus).To(Equal(invoiceDatamodel.PaymentStatusPaid))
		})

		It("tolerates one minor unit of rounding", func() {
			e1 := repo.addExpense(expenseDatamodel.StatusApproved, 65000)
			_, err := service.Generate(ctx, invoice.GenerateInvoiceDTO{
				ClientName: "Minera Andina", ExpenseIDs: []int64{e1.ID},
			})
			Expect(err).NotTo(HaveOccurred())

			csv := "date,description,amount,bank\n2026-08-01,TRANSFERENCIA,64999,BancoChile"
			_, err = service.ImportMovements(ctx, strings.NewReader(csv))
			Expect(err).NotTo(HaveOccurred())

			report, err := service.Reconcile(ctx, invoice.ReconcileDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Matched).To(HaveLen(1))
		})

		It("uses each movement at most once", func() {
			e1 := repo.addExpense(expenseDatamodel.StatusApproved, 65000)
			e2 := repo.addExpense(expenseDatamodel.StatusApproved, 65000)
			_, err := service.Generate(ctx, invoice.GenerateInvoiceDTO{ClientName: "A", ExpenseIDs: []int64{e1.ID}})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Generate(ctx, invoice.GenerateInvoiceDTO{ClientName: "B", ExpenseIDs: []int64{e2.ID}})
			Expect(err).NotTo(HaveOccurred())

			csv := "date,description,amount,bank\n2026-08-01,TRANSFERENCIA,65000,BancoChile"
			_, err = service.ImportMovements(ctx, strings.NewReader(csv))
			Expect(err).NotTo(HaveOccurred())

			report, err := service.Reconcile(ctx, invoice.ReconcileDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Matched).To(HaveLen(1))
		})
	})
})
