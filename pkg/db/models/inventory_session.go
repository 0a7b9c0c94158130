package models

import (
	"time"

	"github.com/stocktakehq/stocktake-backend/pkg/enums"
)

// InventorySession is one counting run against a template.
type InventorySession struct {
	ID          int                 `gorm:"column:id;primaryKey;autoIncrement"`
	TemplateID  int                 `gorm:"column:template_id;not null"`
	Template    *Template           `gorm:"foreignKey:TemplateID"`
	Name        string              `gorm:"column:name;not null"`
	Status      enums.SessionStatus `gorm:"column:status;not null;default:in_progress"`
	StartedAt   time.Time           `gorm:"column:started_at;not null"`
	CompletedAt *time.Time          `gorm:"column:completed_at"`
	Items       []InventoryItem     `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}
