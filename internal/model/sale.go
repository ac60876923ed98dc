package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale line item kinds
const (
	SaleItemLabor = "labor"
	SaleItemPart  = "part"
)

// Sale is the invoice generated when a completed repair order is billed.
// Totals are computed once at creation and stored.
type Sale struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNo     string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	RepairOrderID *uint           `gorm:"index" json:"repair_order_id"`
	CustomerID    *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"`
	BranchID      string          `gorm:"type:varchar(50);not null;index" json:"branch_id"`
	Items         []SaleItem      `gorm:"foreignKey:SaleID" json:"items"`
	TotalCost     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_cost"`
	Total         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total"`
	Margin        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"margin"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedBy     string          `gorm:"type:varchar(255)" json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// SaleItem is one invoice line: labor (hours x hourly rate) or a part
// (sale price x quantity, purchase cost kept for margin reporting).
type SaleItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SaleID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	Kind         string          `gorm:"type:varchar(10);not null" json:"kind"` // labor, part
	Description  string          `gorm:"type:varchar(255);not null" json:"description"`
	Hours        decimal.Decimal `gorm:"type:decimal(10,2)" json:"hours"`
	HourlyRate   decimal.Decimal `gorm:"type:decimal(18,2)" json:"hourly_rate"`
	PurchaseCost decimal.Decimal `gorm:"type:decimal(18,2)" json:"purchase_cost"`
	SalePrice    decimal.Decimal `gorm:"type:decimal(18,2)" json:"sale_price"`
	Quantity     int             `gorm:"type:int;not null;default:1" json:"quantity"`
}
