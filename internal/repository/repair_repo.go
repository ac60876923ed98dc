package repository

import (
	"context"

	"oryon/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RepairFilter narrows repair order listings. Branches nil means no branch
// restriction (admin scope).
type RepairFilter struct {
	Branches []string
	Status   string
	Search   string
}

type RepairRepository interface {
	Create(ctx context.Context, order *model.RepairOrder) error
	Save(ctx context.Context, order *model.RepairOrder) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.RepairOrder, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.RepairOrder, error)
	List(ctx context.Context, filter RepairFilter, page, limit int) ([]model.RepairOrder, int64, error)
	AppendStatusLog(ctx context.Context, entry *model.StatusLog) error
}

type repairRepository struct {
	db *gorm.DB
}

func NewRepairRepository(db *gorm.DB) RepairRepository {
	return &repairRepository{db: db}
}

func (r *repairRepository) Create(ctx context.Context, order *model.RepairOrder) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *repairRepository) Save(ctx context.Context, order *model.RepairOrder) error {
	return GetDB(ctx, r.db).Omit("StatusLogs").Save(order).Error
}

func (r *repairRepository) Delete(ctx context.Context, id uint) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("repair_order_id = ?", id).Delete(&model.StatusLog{}).Error; err != nil {
		return err
	}
	return db.Unscoped().Delete(&model.RepairOrder{}, id).Error
}

func (r *repairRepository) FindByID(ctx context.Context, id uint) (*model.RepairOrder, error) {
	var order model.RepairOrder
	err := GetDB(ctx, r.db).
		Preload("StatusLogs", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc, id asc")
		}).
		Preload("Customer").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repairRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.RepairOrder, error) {
	var order model.RepairOrder
	err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repairRepository) List(ctx context.Context, filter RepairFilter, page, limit int) ([]model.RepairOrder, int64, error) {
	var orders []model.RepairOrder
	var total int64

	db := GetDB(ctx, r.db).Model(&model.RepairOrder{})
	if filter.Branches != nil {
		db = db.Where("branch_id IN ?", filter.Branches)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		db = db.Where("customer_name ILIKE ? OR device_model ILIKE ? OR problem ILIKE ? OR imei ILIKE ?",
			like, like, like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := db.Preload("Customer").Order("created_at desc").Offset(offset).Limit(limit).Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *repairRepository) AppendStatusLog(ctx context.Context, entry *model.StatusLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}
