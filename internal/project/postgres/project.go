package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/gestionviaticos/viaticos/internal"
	allocationDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/allocation"
	expenseDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/expense"
	projectDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/project"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*projectDatamodel.Project, error) {
	var p projectDatamodel.Project
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) Create(ctx context.Context, p *projectDatamodel.Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repository) Save(ctx context.Context, p *projectDatamodel.Project) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *Repository) List(ctx context.Context, includeDeleted bool) ([]*projectDatamodel.Project, error) {
	query := r.db.WithContext(ctx).Model(&projectDatamodel.Project{})
	if !includeDeleted {
		query = query.Where("status = ?", projectDatamodel.StatusActive)
	}

	var projects []*projectDatamodel.Project
	if err := query.Order("name ASC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *Repository) ListAllocationsByProject(ctx context.Context, projectID int64) ([]*allocationDatamodel.Allocation, error) {
	var allocations []*allocationDatamodel.Allocation
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("date DESC, id DESC").
		Find(&allocations).Error
	if err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *Repository) ListExpensesByProject(ctx context.Context, projectID int64) ([]*expenseDatamodel.Expense, error) {
	var expenses []*expenseDatamodel.Expense
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("expense_date DESC, id DESC").
		Find(&expenses).Error
	if err != nil {
		return nil, err
	}
	return expenses, nil
}
