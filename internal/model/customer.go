package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is shared across branches of a company; repair orders and sales
// reference it, with legacy free-text name/phone fallbacks kept on the order.
type Customer struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CompanyID      string         `gorm:"type:varchar(100);index" json:"company_id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	Phone          string         `gorm:"type:varchar(30);not null" json:"phone"`
	Email          string         `gorm:"type:varchar(255)" json:"email"`
	Identification string         `gorm:"type:varchar(50)" json:"identification"`
	Address        string         `gorm:"type:varchar(255)" json:"address"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
