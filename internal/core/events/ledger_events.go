package events

import "time"

const (
	TypeBalanceSkipped  = "ledger.balance_skipped"
	TypeInvoiceAnnulled = "invoice.annulled"
	TypeInvoicePaid     = "invoice.paid"
)

// BalanceSkipped records that a record-level write went through while the
// secondary balance write was skipped because the target user document was
// missing. The repair engine is the reconciliation path for these.
type BalanceSkipped struct {
	UserID    string
	Operation string
	Delta     int64
	At        time.Time
}

func (e BalanceSkipped) EventType() string     { return TypeBalanceSkipped }
func (e BalanceSkipped) OccurredAt() time.Time { return e.At }
func (e BalanceSkipped) Payload() interface{}  { return e }

// InvoiceAnnulled fires after an invoice annulment batch has committed and
// its member expenses are unlocked again.
type InvoiceAnnulled struct {
	InvoiceID  int64
	ExpenseIDs []int64
	At         time.Time
}

func (e InvoiceAnnulled) EventType() string     { return TypeInvoiceAnnulled }
func (e InvoiceAnnulled) OccurredAt() time.Time { return e.At }
func (e InvoiceAnnulled) Payload() interface{}  { return e }

// InvoicePaid fires when reconciliation or an admin marks an invoice paid.
// Payment status is a flag on the invoice only; the ledger does not react.
type InvoicePaid struct {
	InvoiceID int64
	Amount    int64
	At        time.Time
}

func (e InvoicePaid) EventType() string     { return TypeInvoicePaid }
func (e InvoicePaid) OccurredAt() time.Time { return e.At }
func (e InvoicePaid) Payload() interface{}  { return e }
