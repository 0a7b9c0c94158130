package controllers

import (
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/stocktakehq/stocktake-backend/api/responses"
	"github.com/stocktakehq/stocktake-backend/api/validators"
	"github.com/stocktakehq/stocktake-backend/internal/bulkops"
	"github.com/stocktakehq/stocktake-backend/pkg/logger"
)

type bulkUploadRequest struct {
	TemplateID *int          `json:"template_id,omitempty" validate:"omitempty,gt=0"`
	Rows       []bulkops.Row `json:"rows" validate:"required"`
}

// BulkTemplate streams the downloadable count sheet.
func BulkTemplate(svc bulkops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheet, err := svc.GenerateTemplate(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sheet.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(sheet.Data))
	}
}

// BulkUpload materializes a batch of rows into a completed session.
// It takes either the JSON shape {"template_id","rows"} or a raw
// text/csv body (the filled-in count sheet); in the CSV case the
// target template comes from the template_id query parameter.
func BulkUpload(svc bulkops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := decodeUpload(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ProcessUpload(r.Context(), *input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func decodeUpload(r *http.Request) (*bulkops.UploadInput, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
		rows, err := bulkops.ParseCSV(r.Body)
		if err != nil {
			return nil, err
		}
		templateID, err := validators.ParseQueryInt(r, "template_id", 0, 1, math.MaxInt32)
		if err != nil {
			return nil, err
		}
		input := bulkops.UploadInput{Rows: rows}
		if templateID > 0 {
			input.TemplateID = &templateID
		}
		return &input, nil
	}

	var req bulkUploadRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		return nil, err
	}
	return &bulkops.UploadInput{TemplateID: req.TemplateID, Rows: req.Rows}, nil
}
