package repository

import (
	"context"

	"oryon/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UnitRepository interface {
	Create(ctx context.Context, unit *model.ProductUnit) error
	Save(ctx context.Context, unit *model.ProductUnit) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProductUnit, error)
	// FindByIDsForUpdate loads the given units with row locks, regardless
	// of status or owning product; the caller validates ownership.
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]model.ProductUnit, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, status string) ([]model.ProductUnit, error)
	CountAvailable(ctx context.Context, productID uuid.UUID) (int64, error)
	// Exists reports whether the product already has a unit carrying the
	// given imei or serial number (empty values are not matched).
	Exists(ctx context.Context, productID uuid.UUID, imei, serial string) (bool, error)
}

type unitRepository struct {
	db *gorm.DB
}

func NewUnitRepository(db *gorm.DB) UnitRepository {
	return &unitRepository{db: db}
}

func (r *unitRepository) Create(ctx context.Context, unit *model.ProductUnit) error {
	return GetDB(ctx, r.db).Create(unit).Error
}

func (r *unitRepository) Save(ctx context.Context, unit *model.ProductUnit) error {
	return GetDB(ctx, r.db).Save(unit).Error
}

func (r *unitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.ProductUnit{}, "id = ?", id).Error
}

func (r *unitRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ProductUnit, error) {
	var unit model.ProductUnit
	if err := GetDB(ctx, r.db).First(&unit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *unitRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]model.ProductUnit, error) {
	var units []model.ProductUnit
	err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).Find(&units).Error
	if err != nil {
		return nil, err
	}
	return units, nil
}

func (r *unitRepository) ListByProduct(ctx context.Context, productID uuid.UUID, status string) ([]model.ProductUnit, error) {
	var units []model.ProductUnit
	db := GetDB(ctx, r.db).Where("product_id = ?", productID)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Order("created_at asc").Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

func (r *unitRepository) CountAvailable(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.ProductUnit{}).
		Where("product_id = ? AND status = ?", productID, model.UnitAvailable).
		Count(&count).Error
	return count, err
}

func (r *unitRepository) Exists(ctx context.Context, productID uuid.UUID, imei, serial string) (bool, error) {
	db := GetDB(ctx, r.db).Model(&model.ProductUnit{}).Where("product_id = ?", productID)
	switch {
	case imei != "" && serial != "":
		db = db.Where("imei = ? OR serial_number = ?", imei, serial)
	case imei != "":
		db = db.Where("imei = ?", imei)
	case serial != "":
		db = db.Where("serial_number = ?", serial)
	default:
		return false, nil
	}
	var count int64
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
