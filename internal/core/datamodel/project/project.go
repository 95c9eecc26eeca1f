package project

import "time"

const (
	TypeStandard  = "standard"
	TypePettyCash = "petty_cash"

	StatusActive  = "active"
	StatusDeleted = "deleted"
)

// Project is a cost center. Expenses caches the approved expense total
// charged to this project; pending amounts never enter the cache. Projects
// are soft-deleted so historical expenses and allocations keep a valid
// reference.
type Project struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Client    string    `json:"client"`
	Code      string    `json:"code"`
	Recurring bool      `json:"recurring" gorm:"default:false"`
	Type      string    `json:"type" gorm:"default:standard"`
	Status    string    `json:"status" gorm:"default:active"`
	Expenses  int64     `json:"expenses" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Project) TableName() string {
	return "projects"
}

func (p *Project) IsDeleted() bool {
	return p.Status == StatusDeleted
}
