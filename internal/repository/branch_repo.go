package repository

import (
	"context"

	"oryon/internal/model"

	"gorm.io/gorm"
)

type BranchRepository interface {
	Create(ctx context.Context, branch *model.Branch) error
	FindByID(ctx context.Context, id string) (*model.Branch, error)
	List(ctx context.Context) ([]model.Branch, error)
}

type branchRepository struct {
	db *gorm.DB
}

func NewBranchRepository(db *gorm.DB) BranchRepository {
	return &branchRepository{db: db}
}

func (r *branchRepository) Create(ctx context.Context, branch *model.Branch) error {
	return GetDB(ctx, r.db).Create(branch).Error
}

func (r *branchRepository) FindByID(ctx context.Context, id string) (*model.Branch, error) {
	var branch model.Branch
	if err := GetDB(ctx, r.db).First(&branch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *branchRepository) List(ctx context.Context) ([]model.Branch, error) {
	var branches []model.Branch
	if err := GetDB(ctx, r.db).Order("id asc").Find(&branches).Error; err != nil {
		return nil, err
	}
	return branches, nil
}
