package units

import (
	"context"

	"gorm.io/gorm"

	"github.com/stocktakehq/stocktake-backend/internal/repo"
	"github.com/stocktakehq/stocktake-backend/pkg/db/models"
)

// Repository persists measurement units.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a new unit row.
func (r *Repository) Create(ctx context.Context, unit *models.Unit) (*models.Unit, error) {
	if err := r.DB(ctx).Create(unit).Error; err != nil {
		return nil, err
	}
	return unit, nil
}

// FindByID loads a unit by primary key.
func (r *Repository) FindByID(ctx context.Context, id int) (*models.Unit, error) {
	var unit models.Unit
	if err := r.DB(ctx).First(&unit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

// FindByAbbreviation resolves a unit by its abbreviation.
func (r *Repository) FindByAbbreviation(ctx context.Context, abbreviation string) (*models.Unit, error) {
	var unit models.Unit
	if err := r.DB(ctx).First(&unit, "abbreviation = ?", abbreviation).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

// List returns all units ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Unit, error) {
	var units []models.Unit
	if err := r.DB(ctx).Order("name").Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}
