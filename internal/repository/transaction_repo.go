package repository

import (
	"context"

	"oryon/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionFilter narrows the product-transaction history query.
type TransactionFilter struct {
	ProductID *uuid.UUID
	Branches  []string // nil = no branch restriction
	BranchID  string
	Action    string
	ActorName string
	Search    string
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *model.ProductTransaction) error
	Query(ctx context.Context, filter TransactionFilter, page, limit int) ([]model.ProductTransaction, int64, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *model.ProductTransaction) error {
	return GetDB(ctx, r.db).Create(tx).Error
}

func (r *transactionRepository) Query(ctx context.Context, filter TransactionFilter, page, limit int) ([]model.ProductTransaction, int64, error) {
	var records []model.ProductTransaction
	var total int64

	db := GetDB(ctx, r.db).Model(&model.ProductTransaction{})
	if filter.ProductID != nil {
		db = db.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Branches != nil {
		db = db.Where("branch_id IN ?", filter.Branches)
	}
	if filter.BranchID != "" {
		db = db.Where("branch_id = ?", filter.BranchID)
	}
	if filter.Action != "" {
		db = db.Where("action = ?", filter.Action)
	}
	if filter.ActorName != "" {
		db = db.Where("actor_name = ?", filter.ActorName)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		db = db.Where("product_name ILIKE ? OR description ILIKE ? OR actor_name ILIKE ?", like, like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Reverse chronological by insertion; id breaks same-timestamp ties.
	offset := (page - 1) * limit
	err := db.Order("created_at desc, id desc").Offset(offset).Limit(limit).Find(&records).Error
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
