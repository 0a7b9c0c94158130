package models

import "time"

// Product is a countable item. Soft-deleted via IsActive; historical
// inventory items keep referencing inactive products.
type Product struct {
	ID            int       `gorm:"column:id;primaryKey;autoIncrement"`
	SKU           *string   `gorm:"column:sku;uniqueIndex"`
	Name          string    `gorm:"column:name;not null"`
	Category      *string   `gorm:"column:category"`
	DefaultUnitID *int      `gorm:"column:default_unit_id"`
	DefaultUnit   *Unit     `gorm:"foreignKey:DefaultUnitID"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
