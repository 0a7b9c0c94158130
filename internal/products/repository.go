package products

import (
	"context"

	"gorm.io/gorm"

	"github.com/stocktakehq/stocktake-backend/internal/repo"
	"github.com/stocktakehq/stocktake-backend/pkg/db/models"
)

// Repository persists the product catalog.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.DB(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Save updates an existing product row in full.
func (r *Repository) Save(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.DB(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id int) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindActiveByID loads a product only when it is active.
func (r *Repository) FindActiveByID(ctx context.Context, id int) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ? AND is_active = ?", id, true).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListActive returns active products with their default units, ordered by name.
func (r *Repository) ListActive(ctx context.Context) ([]models.Product, error) {
	var list []models.Product
	if err := r.DB(ctx).
		Preload("DefaultUnit").
		Where("is_active = ?", true).
		Order("name").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// List returns the whole catalog, inactive rows included, ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Product, error) {
	var list []models.Product
	if err := r.DB(ctx).
		Preload("DefaultUnit").
		Order("name").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// SetActive flips the soft-delete flag.
func (r *Repository) SetActive(ctx context.Context, id int, active bool) error {
	res := r.DB(ctx).Model(&models.Product{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
