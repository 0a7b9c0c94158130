package models

import "time"

// TemplateItem is the membership of a product in a template. The
// (template_id, product_id) pair is unique; the toggle engine relies on
// ON CONFLICT against idx_template_items_pair.
type TemplateItem struct {
	ID         int       `gorm:"column:id;primaryKey;autoIncrement"`
	TemplateID int       `gorm:"column:template_id;not null;uniqueIndex:idx_template_items_pair"`
	ProductID  int       `gorm:"column:product_id;not null;uniqueIndex:idx_template_items_pair"`
	Product    *Product  `gorm:"foreignKey:ProductID"`
	Position   int       `gorm:"column:position;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
