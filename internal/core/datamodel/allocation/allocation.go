package allocation

import "time"

const (
	TypeGrant       = "grant"
	TypeTransferOut = "transfer_out"
	TypeTransferIn  = "transfer_in"
)

// Allocation is a grant of float ("viático") to a user for a project.
// Amount is signed: a normal grant is positive, the source leg of a
// project-to-project transfer is negative so a transfer pair nets to zero
// on the user's total allocation.
type Allocation struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	ProjectID int64     `json:"project_id" gorm:"index;not null"`
	Amount    int64     `json:"amount" gorm:"not null"`
	Date      time.Time `json:"date"`
	Type      string    `json:"type" gorm:"default:grant"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Allocation) TableName() string {
	return "allocations"
}
