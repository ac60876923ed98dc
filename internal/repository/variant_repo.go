package repository

import (
	"context"

	"oryon/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VariantRepository interface {
	Create(ctx context.Context, variant *model.ProductVariant) error
	Save(ctx context.Context, variant *model.ProductVariant) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProductVariant, error)
	// ListByProduct returns variants in insertion order, the order the
	// greedy transfer distribution consumes them in.
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.ProductVariant, error)
	FindByName(ctx context.Context, productID uuid.UUID, name string) (*model.ProductVariant, error)
	SumStock(ctx context.Context, productID uuid.UUID) (int64, error)
}

type variantRepository struct {
	db *gorm.DB
}

func NewVariantRepository(db *gorm.DB) VariantRepository {
	return &variantRepository{db: db}
}

func (r *variantRepository) Create(ctx context.Context, variant *model.ProductVariant) error {
	return GetDB(ctx, r.db).Create(variant).Error
}

func (r *variantRepository) Save(ctx context.Context, variant *model.ProductVariant) error {
	return GetDB(ctx, r.db).Save(variant).Error
}

func (r *variantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.ProductVariant{}, "id = ?", id).Error
}

func (r *variantRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	if err := GetDB(ctx, r.db).First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *variantRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.ProductVariant, error) {
	var variants []model.ProductVariant
	err := GetDB(ctx, r.db).Where("product_id = ?", productID).
		Order("created_at asc, id asc").Find(&variants).Error
	if err != nil {
		return nil, err
	}
	return variants, nil
}

func (r *variantRepository) FindByName(ctx context.Context, productID uuid.UUID, name string) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	err := GetDB(ctx, r.db).Where("product_id = ? AND name = ?", productID, name).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *variantRepository) SumStock(ctx context.Context, productID uuid.UUID) (int64, error) {
	var sum int64
	err := GetDB(ctx, r.db).Model(&model.ProductVariant{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(stock), 0)").Scan(&sum).Error
	return sum, err
}
