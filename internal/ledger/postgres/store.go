package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/gestionviaticos/viaticos/internal"
	allocationDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/allocation"
	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
	projectDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/project"
	userDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/user"
	"github.com/gestionviaticos/viaticos/internal/ledger"
)

// LedgerStore implements ledger.Store on GORM. Atomicity comes from the
// database transaction; the cache increments are relative SQL updates so
// concurrent batches compose instead of overwriting each other.
type LedgerStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) ledger.Store {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) Atomically(ctx context.Context, fn func(tx ledger.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&LedgerStore{db: tx})
	})
}

func (s *LedgerStore) GetExpense(ctx context.Context, id int64) (*expenseDatamodel.Expense, error) {
	var exp expenseDatamodel.Expense
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&exp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrExpenseNotFound
		}
		return nil, err
	}
	return &exp, nil
}

func (s *LedgerStore) CreateExpense(ctx context.Context, exp *expenseDatamodel.Expense) error {
	return s.db.WithContext(ctx).Create(exp).Error
}

func (s *LedgerStore) SaveExpense(ctx context.Context, exp *expenseDatamodel.Expense) error {
	return s.db.WithContext(ctx).Save(exp).Error
}

func (s *LedgerStore) DeleteExpense(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Delete(&expenseDatamodel.Expense{}, "id = ?", id).Error
}

func (s *LedgerStore) GetAllocation(ctx context.Context, id int64) (*allocationDatamodel.Allocation, error) {
	var alloc allocationDatamodel.Allocation
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&alloc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrAllocationNotFound
		}
		return nil, err
	}
	return &alloc, nil
}

func (s *LedgerStore) CreateAllocation(ctx context.Context, alloc *allocationDatamodel.Allocation) error {
	return s.db.WithContext(ctx).Create(alloc).Error
}

func (s *LedgerStore) SaveAllocation(ctx context.Context, alloc *allocationDatamodel.Allocation) error {
	return s.db.WithContext(ctx).Save(alloc).Error
}

func (s *LedgerStore) DeleteAllocation(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Delete(&allocationDatamodel.Allocation{}, "id = ?", id).Error
}

// AddUserBalance applies a relative increment. RowsAffected tells us whether
// the target row exists; the protocol downgrades a miss to a warning.
func (s *LedgerStore) AddUserBalance(ctx context.Context, userID string, delta int64) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		UpdateColumn("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *LedgerStore) AddProjectExpenses(ctx context.Context, projectID int64, delta int64) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&projectDatamodel.Project{}).
		Where("id = ?", projectID).
		UpdateColumn("expenses", gorm.Expr("expenses + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *LedgerStore) SetUserBalance(ctx context.Context, userID string, balance int64) error {
	return s.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		UpdateColumn("balance", balance).Error
}

func (s *LedgerStore) ListUsers(ctx context.Context) ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	err := s.db.WithContext(ctx).Find(&users).Error
	return users, err
}

func (s *LedgerStore) ListAllocations(ctx context.Context) ([]*allocationDatamodel.Allocation, error) {
	var allocs []*allocationDatamodel.Allocation
	err := s.db.WithContext(ctx).Find(&allocs).Error
	return allocs, err
}

func (s *LedgerStore) ListExpenses(ctx context.Context) ([]*expenseDatamodel.Expense, error) {
	var expenses []*expenseDatamodel.Expense
	err := s.db.WithContext(ctx).Find(&expenses).Error
	return expenses, err
}
