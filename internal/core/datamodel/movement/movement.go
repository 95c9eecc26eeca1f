package movement

import "time"

// Movement is one imported bank statement row, used to reconcile pending
// invoices by amount. InvoiceID is set once a movement has been matched.
type Movement struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount" gorm:"not null"`
	Bank        string    `json:"bank"`
	InvoiceID   *int64    `json:"invoice_id,omitempty" gorm:"index"`
	ImportedAt  time.Time `json:"imported_at"`
}

func (Movement) TableName() string {
	return "bank_movements"
}
