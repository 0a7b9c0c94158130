package models

import "time"

// Unit is a measurement unit (kg, l, un). Immutable once referenced.
type Unit struct {
	ID           int       `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string    `gorm:"column:name;not null;uniqueIndex"`
	Abbreviation string    `gorm:"column:abbreviation;not null;uniqueIndex"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
