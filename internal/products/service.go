package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/stocktakehq/stocktake-backend/pkg/db"
	"github.com/stocktakehq/stocktake-backend/pkg/db/models"
	pkgerrors "github.com/stocktakehq/stocktake-backend/pkg/errors"
)

// Service exposes product catalog administration.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*ProductDTO, error)
	Update(ctx context.Context, id int, input UpdateInput) (*ProductDTO, error)
	Deactivate(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (*ProductDTO, error)
	List(ctx context.Context, activeOnly bool) ([]ProductDTO, error)
}

// CreateInput holds the validated payload to create a product.
type CreateInput struct {
	SKU           *string
	Name          string
	Category      *string
	DefaultUnitID *int
}

// UpdateInput holds optional mutation values for a product.
type UpdateInput struct {
	SKU           *string
	Name          *string
	Category      *string
	DefaultUnitID *int
	IsActive      *bool
}

// ProductDTO is the read shape returned to controllers.
type ProductDTO struct {
	ID              int     `json:"id"`
	SKU             *string `json:"sku,omitempty"`
	Name            string  `json:"name"`
	Category        *string `json:"category,omitempty"`
	DefaultUnitID   *int    `json:"default_unit_id,omitempty"`
	DefaultUnitAbbr *string `json:"default_unit_abbreviation,omitempty"`
	IsActive        bool    `json:"is_active"`
}

type unitLoader interface {
	FindByID(ctx context.Context, id int) (*models.Unit, error)
}

type service struct {
	repo  *Repository
	units unitLoader
}

// NewService constructs a product service instance.
func NewService(repo *Repository, units unitLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if units == nil {
		return nil, fmt.Errorf("unit repository required")
	}
	return &service{repo: repo, units: units}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.DefaultUnitID != nil {
		if _, err := s.units.FindByID(ctx, *input.DefaultUnitID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "default unit does not exist")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving default unit")
		}
	}

	product := &models.Product{
		SKU:           normalizeOptional(input.SKU),
		Name:          name,
		Category:      normalizeOptional(input.Category),
		DefaultUnitID: input.DefaultUnitID,
		IsActive:      true,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product SKU already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating product")
	}
	return toDTO(created), nil
}

func (s *service) Update(ctx context.Context, id int, input UpdateInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be blank")
		}
		product.Name = name
	}
	if input.SKU != nil {
		product.SKU = normalizeOptional(input.SKU)
	}
	if input.Category != nil {
		product.Category = normalizeOptional(input.Category)
	}
	if input.DefaultUnitID != nil {
		if _, err := s.units.FindByID(ctx, *input.DefaultUnitID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "default unit does not exist")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving default unit")
		}
		product.DefaultUnitID = input.DefaultUnitID
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	saved, err := s.repo.Save(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product SKU already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating product")
	}
	return toDTO(saved), nil
}

// Deactivate soft-deletes the product; historical inventory items keep
// referencing it.
func (s *service) Deactivate(ctx context.Context, id int) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivating product")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id int) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	return toDTO(product), nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]ProductDTO, error) {
	var (
		list []models.Product
		err  error
	)
	if activeOnly {
		list, err = s.repo.ListActive(ctx)
	} else {
		list, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing products")
	}
	dtos := make([]ProductDTO, 0, len(list))
	for i := range list {
		dtos = append(dtos, *toDTO(&list[i]))
	}
	return dtos, nil
}

func toDTO(product *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:            product.ID,
		SKU:           product.SKU,
		Name:          product.Name,
		Category:      product.Category,
		DefaultUnitID: product.DefaultUnitID,
		IsActive:      product.IsActive,
	}
	if product.DefaultUnit != nil {
		dto.DefaultUnitAbbr = &product.DefaultUnit.Abbreviation
	}
	return dto
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
