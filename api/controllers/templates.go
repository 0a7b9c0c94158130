package controllers

import (
	"net/http"

	"github.com/stocktakehq/stocktake-backend/api/responses"
	"github.com/stocktakehq/stocktake-backend/api/validators"
	"github.com/stocktakehq/stocktake-backend/internal/templates"
	"github.com/stocktakehq/stocktake-backend/pkg/logger"
)

type templateCreateRequest struct {
	Name           string  `json:"name" validate:"required,min=1,max=200"`
	Description    *string `json:"description,omitempty" validate:"omitempty,max=500"`
	TemplateNumber *int    `json:"template_number,omitempty" validate:"omitempty,gt=0"`
	ProductIDs     []int   `json:"product_ids,omitempty" validate:"omitempty,dive,gt=0"`
}

type templateToggleRequest struct {
	ProductID int   `json:"product_id" validate:"required,gt=0"`
	Selected  *bool `json:"selected" validate:"required"`
}

func TemplateCreate(svc templates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req templateCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		template, err := svc.Create(r.Context(), templates.CreateInput{
			Name:           req.Name,
			Description:    req.Description,
			TemplateNumber: req.TemplateNumber,
			ProductIDs:     req.ProductIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, template)
	}
}

func TemplateList(svc templates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func TemplateGet(svc templates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		template, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, template)
	}
}

// TemplateToggleProduct flips a product's membership in the template.
func TemplateToggleProduct(svc templates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req templateToggleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ToggleProduct(r.Context(), id, req.ProductID, *req.Selected); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"product_id": req.ProductID,
			"selected":   *req.Selected,
		})
	}
}
