package models

import "time"

// Template is a named, ordered checklist of products to count.
type Template struct {
	ID             int            `gorm:"column:id;primaryKey;autoIncrement"`
	TemplateNumber *int           `gorm:"column:template_number;uniqueIndex"`
	Name           string         `gorm:"column:name;not null;uniqueIndex"`
	Description    *string        `gorm:"column:description"`
	IsActive       bool           `gorm:"column:is_active;not null;default:true"`
	Items          []TemplateItem `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
}
