package model

import (
	"time"

	"github.com/google/uuid"
)

// ProductTransaction actions
const (
	TxActionCreate          = "create"
	TxActionEdit            = "edit"
	TxActionAdjustInventory = "adjust_inventory"
	TxActionTransfer        = "transfer"
	TxActionAddUnit         = "add_unit"
	TxActionAddVariant      = "add_variant"
	TxActionUpdateVariant   = "update_variant"
	TxActionDelete          = "delete"
	TxActionDeleteUnit      = "delete_unit"
	TxActionDeleteVariant   = "delete_variant"
)

// ProductTransaction is a write-once audit record of an inventory mutation.
// It is never updated or deleted; the only consumer is the history view.
type ProductTransaction struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName    string     `gorm:"type:varchar(255)" json:"product_name"`
	Action         string     `gorm:"type:varchar(30);not null;index" json:"action"`
	BranchID       string     `gorm:"type:varchar(50);not null;index" json:"branch_id"`
	TargetBranchID string     `gorm:"type:varchar(50)" json:"target_branch_id,omitempty"`
	Quantity       int        `gorm:"type:int" json:"quantity"` // signed delta where applicable
	StockAfter     int        `gorm:"type:int" json:"stock_after"`
	ActorUserID    *uuid.UUID `gorm:"type:uuid" json:"actor_user_id"`
	ActorName      string     `gorm:"type:varchar(255);index" json:"actor_name"`
	Description    string     `gorm:"type:text" json:"description"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
}
