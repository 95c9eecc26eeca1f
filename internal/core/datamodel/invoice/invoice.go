package invoice

import "time"

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusAnnulled = "annulled"
)

// Invoice is a pre-bill bundling approved expenses and free-standing line
// items for a client. While an invoice is pending or paid its member
// expenses stay locked; annulment releases them.
type Invoice struct {
	ID            int64      `json:"id" gorm:"primaryKey"`
	Number        string     `json:"number" gorm:"uniqueIndex;not null"`
	ClientName    string     `json:"client_name"`
	ProjectID     *int64     `json:"project_id,omitempty" gorm:"index"`
	TotalAmount   int64      `json:"total_amount" gorm:"not null"`
	PaymentStatus string     `json:"payment_status" gorm:"index;default:pending"`
	IssuedAt      time.Time  `json:"issued_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	AnnulledAt    *time.Time `json:"annulled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Items []Item `json:"items,omitempty" gorm:"foreignKey:InvoiceID"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// Item is a single invoice line. ExpenseID is set when the line mirrors an
// approved expense, nil for free-standing lines.
type Item struct {
	ID          int64  `json:"id" gorm:"primaryKey"`
	InvoiceID   int64  `json:"invoice_id" gorm:"index;not null"`
	Description string `json:"description"`
	Amount      int64  `json:"amount" gorm:"not null"`
	ExpenseID   *int64 `json:"expense_id,omitempty" gorm:"index"`
}

func (Item) TableName() string {
	return "invoice_items"
}
