package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Repair order status values
const (
	StatusReceived     = "received"
	StatusDiagnosing   = "diagnosing"
	StatusWaitingParts = "waiting_parts"
	StatusRepairing    = "repairing"
	StatusCompleted    = "completed"
	StatusDelivered    = "delivered"
	StatusCancelled    = "cancelled"
)

// Device unlock secret discriminator
const (
	DevicePasswordPIN     = "pin"
	DevicePasswordPattern = "pattern"
)

var repairStatuses = map[string]bool{
	StatusReceived:     true,
	StatusDiagnosing:   true,
	StatusWaitingParts: true,
	StatusRepairing:    true,
	StatusCompleted:    true,
	StatusDelivered:    true,
	StatusCancelled:    true,
}

// ValidStatus reports whether s is one of the seven repair statuses.
func ValidStatus(s string) bool {
	return repairStatuses[s]
}

// ValidTransition reports whether a repair order may move from -> to.
// The status graph is deliberately unrestricted: any status may follow any
// other, including re-applying the current one. Call sites must go through
// this function so a transition table can be introduced without touching them.
func ValidTransition(from, to string) bool {
	return ValidStatus(to)
}

// RepairOrder tracks a device through the shop. Status is mutated only by
// appending a StatusLog entry; the order's Status field always mirrors the
// NewStatus of the last log entry.
type RepairOrder struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	CompanyID     string          `gorm:"type:varchar(100);index" json:"company_id"`
	BranchID      string          `gorm:"type:varchar(50);not null;index" json:"branch_id"`
	CustomerID    *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"`
	Customer      *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CustomerName  string          `gorm:"type:varchar(255)" json:"customer_name"` // legacy free-text fallback
	CustomerPhone string          `gorm:"type:varchar(30)" json:"customer_phone"`
	DeviceType    string          `gorm:"type:varchar(100)" json:"device_type"`
	DeviceBrand   string          `gorm:"type:varchar(100)" json:"device_brand"`
	DeviceModel   string          `gorm:"type:varchar(100)" json:"device_model"`
	IMEI          string          `gorm:"type:varchar(50)" json:"imei"`
	SerialNumber  string          `gorm:"type:varchar(100)" json:"serial_number"`
	Problem       string          `gorm:"type:text;not null" json:"problem"`
	Notes         string          `gorm:"type:text" json:"notes"`
	EstimatedCost decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"estimated_cost"`

	// Device unlock secret: either a PIN or a drawn pattern, discriminated
	// by DevicePasswordType. Never both.
	DevicePasswordType string `gorm:"type:varchar(10)" json:"device_password_type"`
	DevicePassword     string `gorm:"type:varchar(100)" json:"device_password"`

	Status     string         `gorm:"type:varchar(20);not null;index" json:"status"`
	StatusLogs []StatusLog    `gorm:"foreignKey:RepairOrderID" json:"status_logs"`
	Images     pq.StringArray `gorm:"type:text[]" json:"images"`

	Invoiced  bool       `gorm:"not null;default:false" json:"invoiced"`
	InvoiceID *uuid.UUID `gorm:"type:uuid" json:"invoice_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusLog is one immutable entry in a repair order's audit trail.
// PreviousStatus is null only for the first entry of an order.
type StatusLog struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RepairOrderID  uint           `gorm:"not null;index" json:"repair_order_id"`
	PreviousStatus *string        `gorm:"type:varchar(20)" json:"previous_status"`
	NewStatus      string         `gorm:"type:varchar(20);not null" json:"new_status"`
	Notes          string         `gorm:"type:text" json:"notes"`
	Images         pq.StringArray `gorm:"type:text[]" json:"images"`
	ActorUserID    *uuid.UUID     `gorm:"type:uuid" json:"actor_user_id"`
	ActorUserName  string         `gorm:"type:varchar(255)" json:"actor_user_name"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
}
