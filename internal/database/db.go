package database

import (
	"log"

	"oryon/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Branch{},
		&model.Customer{},
		&model.RepairOrder{},
		&model.StatusLog{},
		&model.Product{},
		&model.ProductUnit{},
		&model.ProductVariant{},
		&model.ProductTransaction{},
		&model.Sale{},
		&model.SaleItem{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
