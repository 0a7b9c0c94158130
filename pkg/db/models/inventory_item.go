package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem is one product's counted quantity within a session.
// At most one row per (session_id, product_id); a quantity at or below
// zero is never stored, the row is deleted instead.
type InventoryItem struct {
	ID        int             `gorm:"column:id;primaryKey;autoIncrement"`
	SessionID int             `gorm:"column:session_id;not null;uniqueIndex:idx_inventory_items_pair"`
	ProductID int             `gorm:"column:product_id;not null;uniqueIndex:idx_inventory_items_pair"`
	Product   *Product        `gorm:"foreignKey:ProductID"`
	Quantity  decimal.Decimal `gorm:"column:quantity;type:numeric(10,3);not null"`
	UnitID    int             `gorm:"column:unit_id;not null"`
	Unit      *Unit           `gorm:"foreignKey:UnitID"`
	Notes     *string         `gorm:"column:notes"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
