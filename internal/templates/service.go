package templates

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

// Service manages count templates and product membership.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*TemplateDTO, error)
	Get(ctx context.Context, id int) (*TemplateDTO, error)
	List(ctx context.Context) ([]TemplateDTO, error)
	// ToggleProduct adds the product to the template when selected is
	// true and removes it otherwise. Redundant toggles succeed without
	// effect.
	ToggleProduct(ctx context.Context, templateID, productID int, selected bool) error
}

// CreateInput holds the validated payload to create a template.
type CreateInput struct {
	Name           string
	Description    *string
	TemplateNumber *int
	ProductIDs     []int
}

// TemplateDTO is the read shape returned to controllers.
type TemplateDTO struct {
	ID             int               `json:"id"`
	TemplateNumber *int              `json:"template_number,omitempty"`
	Name           string            `json:"name"`
	Description    *string           `json:"description,omitempty"`
	IsActive       bool              `json:"is_active"`
	Items          []TemplateItemDTO `json:"items,omitempty"`
}

// TemplateItemDTO is one checklist entry within a template.
type TemplateItemDTO struct {
	ProductID   int    `json:"product_id"`
	ProductName string `json:"product_name"`
	Position    int    `json:"position"`
}

type productLoader interface {
	FindActiveByID(ctx context.Context, id int) (*models.Product, error)
}

type service struct {
	repo     *Repository
	products productLoader
}

// NewService constructs a template service instance.
func NewService(repo *Repository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("template repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*TemplateDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "template name is required")
	}

	template := &models.Template{
		Name:           name,
		Description:    input.Description,
		TemplateNumber: input.TemplateNumber,
		IsActive:       true,
	}
	for position, productID := range input.ProductIDs {
		if _, err := s.products.FindActiveByID(ctx, productID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("product %d does not exist or is inactive", productID))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving template product")
		}
		template.Items = append(template.Items, models.TemplateItem{
			ProductID: productID,
			Position:  position,
		})
	}

	created, err := s.repo.Create(ctx, template)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "template name or number already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating template")
	}
	return s.Get(ctx, created.ID)
}

func (s *service) Get(ctx context.Context, id int) (*TemplateDTO, error) {
	template, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "template not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading template")
	}
	return toDTO(template, true), nil
}

func (s *service) List(ctx context.Context) ([]TemplateDTO, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing templates")
	}
	dtos := make([]TemplateDTO, 0, len(list))
	for i := range list {
		dtos = append(dtos, *toDTO(&list[i], false))
	}
	return dtos, nil
}

func (s *service) ToggleProduct(ctx context.Context, templateID, productID int, selected bool) error {
	if _, err := s.repo.FindActiveByID(ctx, templateID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "template not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading template")
	}

	if !selected {
		if err := s.repo.RemoveItem(ctx, templateID, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing template product")
		}
		return nil
	}

	if _, err := s.products.FindActiveByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "product does not exist or is inactive")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving product")
	}
	position, err := s.repo.NextPosition(ctx, templateID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "computing template position")
	}
	item := &models.TemplateItem{
		TemplateID: templateID,
		ProductID:  productID,
		Position:   position,
	}
	if err := s.repo.AddItem(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adding template product")
	}
	return nil
}

func toDTO(template *models.Template, withItems bool) *TemplateDTO {
	dto := &TemplateDTO{
		ID:             template.ID,
		TemplateNumber: template.TemplateNumber,
		Name:           template.Name,
		Description:    template.Description,
		IsActive:       template.IsActive,
	}
	if !withItems {
		return dto
	}
	for _, item := range template.Items {
		entry := TemplateItemDTO{
			ProductID: item.ProductID,
			Position:  item.Position,
		}
		if item.Product != nil {
			entry.ProductName = item.Product.Name
		}
		dto.Items = append(dto.Items, entry)
	}
	return dto
}
