package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/gestionviaticos/viaticos/internal"
	allocationDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/allocation"
	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
	userDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) Create(ctx context.Context, u *userDatamodel.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repository) Save(ctx context.Context, u *userDatamodel.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

func (r *Repository) List(ctx context.Context) ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *Repository) ListAllocationsByUser(ctx context.Context, userID string) ([]*allocationDatamodel.Allocation, error) {
	var allocations []*allocationDatamodel.Allocation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&allocations).Error
	if err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *Repository) ListExpensesByUser(ctx context.Context, userID string) ([]*expenseDatamodel.Expense, error) {
	var expenses []*expenseDatamodel.Expense
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&expenses).Error
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

// Migrate copies the account row under the new ID, re-points the history and
// removes the old row in one transaction. The balance column travels
// unchanged; no ledger recomputation happens here.
func (r *Repository) Migrate(ctx context.Context, oldID, newID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u userDatamodel.User
		if err := tx.First(&u, "id = ?", oldID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return internal.ErrUserNotFound
			}
			return err
		}

		// The old row goes first so the unique email is free for the copy.
		// History rows carry no FK to users, so the window is safe inside
		// the transaction.
		if err := tx.Delete(&userDatamodel.User{}, "id = ?", oldID).Error; err != nil {
			return err
		}

		replacement := u
		replacement.ID = newID
		if err := tx.Create(&replacement).Error; err != nil {
			return err
		}

		if err := tx.Model(&allocationDatamodel.Allocation{}).
			Where("user_id = ?", oldID).
			UpdateColumn("user_id", newID).Error; err != nil {
			return err
		}
		return tx.Model(&expenseDatamodel.Expense{}).
			Where("user_id = ?", oldID).
			UpdateColumn("user_id", newID).Error
	})
}
