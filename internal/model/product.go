package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Tracking modes. Exactly one of TrackByUnit/HasVariants may be true; when
// both are false the product is tracked by the plain Quantity counter.
const (
	TrackingSimple  = "simple"
	TrackingByUnit  = "per_unit"
	TrackingVariant = "per_variant"
)

// Product is an inventory item owned by exactly one branch. The tracking
// mode is fixed at creation and never changed by normal operations.
type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BranchID    string          `gorm:"type:varchar(50);not null;index" json:"branch_id"`
	SKU         string          `gorm:"type:varchar(100);index" json:"sku"`
	Category    string          `gorm:"type:varchar(100);index" json:"category"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"price"`
	Cost        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"cost"`
	Quantity    int             `gorm:"type:int;not null;default:0" json:"quantity"` // simple mode only
	TrackByUnit bool            `gorm:"not null;default:false" json:"track_by_unit"`
	HasVariants bool            `gorm:"not null;default:false" json:"has_variants"`
	Units       []ProductUnit   `gorm:"foreignKey:ProductID" json:"units,omitempty"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TrackingMode derives the mode string from the two flags.
func (p *Product) TrackingMode() string {
	switch {
	case p.TrackByUnit:
		return TrackingByUnit
	case p.HasVariants:
		return TrackingVariant
	default:
		return TrackingSimple
	}
}

// Unit status values. A unit is only transferable and deletable while available.
const (
	UnitAvailable = "available"
	UnitSold      = "sold"
	UnitInRepair  = "in_repair"
)

// ProductUnit is a serial/IMEI-tracked physical item belonging to one product.
// At least one of IMEI/SerialNumber is set.
type ProductUnit struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID    uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	IMEI         string    `gorm:"type:varchar(50);index" json:"imei"`
	SerialNumber string    `gorm:"type:varchar(100);index" json:"serial_number"`
	Status       string    `gorm:"type:varchar(20);not null;default:'available'" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProductVariant is one sellable variation (e.g. color) of a product.
// Stock is mutated by explicit set/add operations only and never goes negative.
type ProductVariant struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	SKU       string    `gorm:"type:varchar(100)" json:"sku"`
	Stock     int       `gorm:"type:int;not null;default:0" json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
