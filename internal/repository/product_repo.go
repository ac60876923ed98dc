package repository

import (
	"context"

	"oryon/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter narrows product listings. Branches nil means no restriction.
type ProductFilter struct {
	Branches []string
	Category string
	Search   string
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Save(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// FindMirror locates the product at branchID with the same logical
	// identity as the given product: matched by SKU when set, by
	// name+category otherwise. Used as the transfer target lookup.
	FindMirror(ctx context.Context, product *model.Product, branchID string) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter, page, limit int) ([]model.Product, int64, error)
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) Save(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Omit("Units", "Variants").Save(product).Error
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindMirror(ctx context.Context, product *model.Product, branchID string) (*model.Product, error) {
	var mirror model.Product
	db := GetDB(ctx, r.db).Where("branch_id = ?", branchID)
	if product.SKU != "" {
		db = db.Where("sku = ?", product.SKU)
	} else {
		db = db.Where("name = ? AND category = ?", product.Name, product.Category)
	}
	if err := db.First(&mirror).Error; err != nil {
		return nil, err
	}
	return &mirror, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter, page, limit int) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Product{})
	if filter.Branches != nil {
		db = db.Where("branch_id IN ?", filter.Branches)
	}
	if filter.Category != "" {
		db = db.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		db = db.Where("name ILIKE ? OR sku ILIKE ?", "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return GetDB(ctx, r.db).Model(&model.Product{}).Where("id = ?", id).Update("quantity", quantity).Error
}
