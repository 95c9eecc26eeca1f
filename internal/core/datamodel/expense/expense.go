package expense

import "time"

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Expense is a rendered item ("rendición"). Amount is always positive.
// InvoiceID presence means the expense is locked against any mutation until
// the owning invoice is annulled. SplitGroupID links sibling rows created
// from one multi-project split submission.
type Expense struct {
	ID               int64      `json:"id" gorm:"primaryKey"`
	UserID           string     `json:"user_id" gorm:"index;not null"`
	ProjectID        *int64     `json:"project_id,omitempty" gorm:"index"`
	EventName        string     `json:"event_name"`
	Category         string     `json:"category"`
	Vendor           string     `json:"vendor"`
	TaxID            string     `json:"tax_id"`
	Amount           int64      `json:"amount" gorm:"not null"`
	Currency         string     `json:"currency" gorm:"default:CLP"`
	Status           string     `json:"status" gorm:"index;default:pending"`
	RejectionReason  *string    `json:"rejection_reason,omitempty"`
	IsCompanyExpense bool       `json:"is_company_expense" gorm:"default:false"`
	InvoiceID        *int64     `json:"invoice_id,omitempty" gorm:"index"`
	SplitGroupID     *string    `json:"split_group_id,omitempty" gorm:"index"`
	ReceiptURL       *string    `json:"receipt_url,omitempty"`
	ExpenseDate      time.Time  `json:"expense_date" gorm:"type:date"`
	SubmittedAt      time.Time  `json:"submitted_at"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}

// Locked reports whether the expense is frozen by a non-annulled invoice.
func (e *Expense) Locked() bool {
	return e.InvoiceID != nil
}
