package templates

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stocktakehq/stocktake-backend/internal/repo"
	"github.com/stocktakehq/stocktake-backend/pkg/db/models"
)

// Repository persists count templates and their memberships.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a template along with any seeded items.
func (r *Repository) Create(ctx context.Context, template *models.Template) (*models.Template, error) {
	if err := r.DB(ctx).Create(template).Error; err != nil {
		return nil, err
	}
	return template, nil
}

// FindByID loads a template with its items and their products, in
// checklist order.
func (r *Repository) FindByID(ctx context.Context, id int) (*models.Template, error) {
	var template models.Template
	err := r.DB(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position, id")
		}).
		Preload("Items.Product").
		First(&template, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// FindActiveByID loads a template only when it is active.
func (r *Repository) FindActiveByID(ctx context.Context, id int) (*models.Template, error) {
	var template models.Template
	err := r.DB(ctx).First(&template, "id = ? AND is_active = ?", id, true).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// FirstActive returns the lowest-id active template.
func (r *Repository) FirstActive(ctx context.Context) (*models.Template, error) {
	var template models.Template
	err := r.DB(ctx).
		Where("is_active = ?", true).
		Order("id").
		First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// List returns all templates ordered by name, items not loaded.
func (r *Repository) List(ctx context.Context) ([]models.Template, error) {
	var list []models.Template
	if err := r.DB(ctx).Order("name").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// AddItem inserts a membership row. The unique (template_id,
// product_id) pair makes the insert a no-op when the row already
// exists, so concurrent toggles cannot double-insert.
func (r *Repository) AddItem(ctx context.Context, item *models.TemplateItem) error {
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "template_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(item).Error
}

// RemoveItem deletes the membership row if present.
func (r *Repository) RemoveItem(ctx context.Context, templateID, productID int) error {
	return r.DB(ctx).
		Where("template_id = ? AND product_id = ?", templateID, productID).
		Delete(&models.TemplateItem{}).Error
}

// NextPosition returns one past the highest position in the template.
func (r *Repository) NextPosition(ctx context.Context, templateID int) (int, error) {
	var max *int
	err := r.DB(ctx).
		Model(&models.TemplateItem{}).
		Where("template_id = ?", templateID).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}
