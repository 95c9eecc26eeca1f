package user

import (
	"time"
)

const (
	RoleAdmin        = "admin"
	RoleProfessional = "professional"
)

// User is the persistence model for an account. ID is the external
// authentication identifier, which is why it is a string: account migration
// relocates a user from a provisional id to a real one via copy-and-delete.
//
// Balance is a cached signed total in minor currency units. The sign
// convention is defined once in the ledger package: positive means the
// company owes the user.
type User struct {
	ID                 string    `json:"id" gorm:"primaryKey"`
	Name               string    `json:"name" gorm:"not null"`
	Email              string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash       string    `json:"-" gorm:"column:password_hash"`
	Role               string    `json:"role" gorm:"default:professional"`
	Balance            int64     `json:"balance" gorm:"not null;default:0"`
	IsActive           bool      `json:"is_active" gorm:"default:true"`
	MustChangePassword bool      `json:"must_change_password" gorm:"default:false"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
