package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/gestionviaticos/viaticos/internal"
	"github.com/gestionviaticos/viaticos/internal/allocation"
	allocationDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/allocation"
)

// Repository is the read side; writes go through the ledger store.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*allocationDatamodel.Allocation, error) {
	var alloc allocationDatamodel.Allocation
	err := r.db.WithContext(ctx).First(&alloc, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrAllocationNotFound
		}
		return nil, err
	}
	return &alloc, nil
}

func (r *Repository) List(ctx context.Context, filter allocation.ListFilter) ([]*allocationDatamodel.Allocation, error) {
	query := r.db.WithContext(ctx).Model(&allocationDatamodel.Allocation{})

	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var allocations []*allocationDatamodel.Allocation
	if err := query.Order("date DESC, id DESC").Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]*allocationDatamodel.Allocation, error) {
	var allocations []*allocationDatamodel.Allocation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC, id DESC").
		Find(&allocations).Error
	if err != nil {
		return nil, err
	}
	return allocations, nil
}
