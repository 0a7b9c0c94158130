package units

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

// Service exposes measurement unit administration.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*UnitDTO, error)
	Get(ctx context.Context, id int) (*UnitDTO, error)
	List(ctx context.Context) ([]UnitDTO, error)
}

// CreateInput holds the validated payload to create a unit.
type CreateInput struct {
	Name         string
	Abbreviation string
}

// UnitDTO is the read shape returned to controllers.
type UnitDTO struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

type service struct {
	repo *Repository
}

// NewService constructs a unit service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("unit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*UnitDTO, error) {
	name := strings.TrimSpace(input.Name)
	abbreviation := strings.TrimSpace(input.Abbreviation)
	if name == "" || abbreviation == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and abbreviation are required")
	}

	unit, err := s.repo.Create(ctx, &models.Unit{Name: name, Abbreviation: abbreviation})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "unit name or abbreviation already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating unit")
	}
	return toDTO(unit), nil
}

func (s *service) Get(ctx context.Context, id int) (*UnitDTO, error) {
	unit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading unit")
	}
	return toDTO(unit), nil
}

func (s *service) List(ctx context.Context) ([]UnitDTO, error) {
	units, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing units")
	}
	dtos := make([]UnitDTO, 0, len(units))
	for i := range units {
		dtos = append(dtos, *toDTO(&units[i]))
	}
	return dtos, nil
}

func toDTO(unit *models.Unit) *UnitDTO {
	return &UnitDTO{
		ID:           unit.ID,
		Name:         unit.Name,
		Abbreviation: unit.Abbreviation,
	}
}
