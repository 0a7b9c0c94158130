package controllers

import (
	"net/http"
	"strings"

	"github.com/stocktakehq/stocktake-backend/api/responses"
	"github.com/stocktakehq/stocktake-backend/api/validators"
	"github.com/stocktakehq/stocktake-backend/internal/sessions"
	"github.com/stocktakehq/stocktake-backend/pkg/logger"
	"github.com/stocktakehq/stocktake-backend/pkg/pagination"
)

type sessionCreateRequest struct {
	TemplateID int `json:"template_id" validate:"required,gt=0"`
}

type sessionItemRequest struct {
	ProductID int     `json:"product_id" validate:"required,gt=0"`
	Quantity  string  `json:"quantity" validate:"required"`
	UnitID    int     `json:"unit_id" validate:"omitempty,gt=0"`
	Notes     *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type sessionSaveRequest struct {
	TemplateID int                  `json:"template_id" validate:"required,gt=0"`
	Items      []sessionItemRequest `json:"items" validate:"required,min=1,dive"`
}

func SessionCreate(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sessionCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.Create(r.Context(), req.TemplateID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

func SessionFinalize(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.Finalize(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

func SessionProgress(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		progress, err := svc.Progress(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, progress)
	}
}

// SessionUpsertItem saves one quantity edit, deleting the row when the
// quantity is zero.
func SessionUpsertItem(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req sessionItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.UpsertItem(r.Context(), sessions.UpsertItemInput{
			SessionID: id,
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			UnitID:    req.UnitID,
			Notes:     req.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SessionSaveCompleted stores an offline-completed count in one shot.
func SessionSaveCompleted(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sessionSaveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]sessions.SaveItemInput, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, sessions.SaveItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitID:    item.UnitID,
				Notes:     item.Notes,
			})
		}
		session, err := svc.SaveCompleted(r.Context(), sessions.SaveCompletedInput{
			TemplateID: req.TemplateID,
			Items:      items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

func SessionHistory(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListHistory(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func SessionDetail(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Detail(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}
