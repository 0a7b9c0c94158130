package bulkops

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/stocktakehq/stocktake-backend/pkg/db/models"
	"github.com/stocktakehq/stocktake-backend/pkg/enums"
	pkgerrors "github.com/stocktakehq/stocktake-backend/pkg/errors"
	"github.com/stocktakehq/stocktake-backend/pkg/logger"
	"github.com/stocktakehq/stocktake-backend/pkg/metrics"
)

// csvHeader is the fixed column set of the downloadable count sheet.
// Only id and quantity drive the upload; the rest are display columns.
var csvHeader = []string{"id", "product_name", "category", "unit_abbreviation", "quantity"}

// Row is one parsed line of an uploaded count sheet.
type Row struct {
	ID               string `json:"id"`
	ProductName      string `json:"product_name"`
	Category         string `json:"category"`
	UnitAbbreviation string `json:"unit_abbreviation"`
	Quantity         string `json:"quantity"`
}

// TemplateCSV is the generated spreadsheet plus its suggested filename.
type TemplateCSV struct {
	Data     string `json:"data"`
	Filename string `json:"filename"`
}

// UploadInput carries an upload batch. TemplateID optionally names the
// template the resulting session is attached to; when nil the first
// active template is used.
type UploadInput struct {
	TemplateID *int
	Rows       []Row
}

// UploadResult reports the outcome of one upload run. Skipped rows are
// counted, never raised.
type UploadResult struct {
	SessionID int    `json:"session_id"`
	Processed int    `json:"processed_count"`
	Skipped   int    `json:"skipped_count"`
	Message   string `json:"message"`
}

// Service generates count sheets and materializes uploads into
// completed sessions.
type Service interface {
	GenerateTemplate(ctx context.Context) (*TemplateCSV, error)
	ProcessUpload(ctx context.Context, input UploadInput) (*UploadResult, error)
}

type productSource interface {
	ListActive(ctx context.Context) ([]models.Product, error)
	FindActiveByID(ctx context.Context, id int) (*models.Product, error)
}

type unitSource interface {
	FindByAbbreviation(ctx context.Context, abbreviation string) (*models.Unit, error)
}

type templateSource interface {
	FirstActive(ctx context.Context) (*models.Template, error)
	FindActiveByID(ctx context.Context, id int) (*models.Template, error)
}

type sessionSink interface {
	Create(ctx context.Context, session *models.InventorySession) (*models.InventorySession, error)
	InsertItem(ctx context.Context, item *models.InventoryItem) error
}

type service struct {
	products  productSource
	units     unitSource
	templates templateSource
	sessions  sessionSink
	log       *logger.Logger
	metrics   *metrics.BulkImportMetrics
	now       func() time.Time
}

// NewService constructs a bulk operations service instance.
func NewService(
	products productSource,
	units unitSource,
	templates templateSource,
	sessions sessionSink,
	log *logger.Logger,
	importMetrics *metrics.BulkImportMetrics,
) (Service, error) {
	if products == nil || units == nil || templates == nil || sessions == nil {
		return nil, fmt.Errorf("bulkops repositories required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		products:  products,
		units:     units,
		templates: templates,
		sessions:  sessions,
		log:       log,
		metrics:   importMetrics,
		now:       time.Now,
	}, nil
}

// GenerateTemplate renders the downloadable count sheet: one row per
// active product ordered by name, quantity left blank for offline entry.
func (s *service) GenerateTemplate(ctx context.Context) (*TemplateCSV, error) {
	products, err := s.products.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing active products")
	}

	var buf strings.Builder
	writer := csv.NewWriter(&buf)
	if err := writer.Write(csvHeader); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing csv header")
	}
	for _, product := range products {
		record := []string{
			strconv.Itoa(product.ID),
			product.Name,
			"",
			"",
			"",
		}
		if product.Category != nil {
			record[2] = *product.Category
		}
		if product.DefaultUnit != nil {
			record[3] = product.DefaultUnit.Abbreviation
		}
		if err := writer.Write(record); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing csv row")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flushing csv")
	}

	return &TemplateCSV{
		Data:     buf.String(),
		Filename: fmt.Sprintf("inventory_template_%s.csv", s.now().Format("2006-01-02")),
	}, nil
}

// ParseCSV reads an uploaded count sheet into rows. The header row is
// required and must carry the five expected columns in order.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading csv header")
	}
	for i, name := range csvHeader {
		if strings.TrimSpace(strings.ToLower(header[i])) != name {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("unexpected csv column %q, want %q", header[i], name))
		}
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading csv row")
		}
		rows = append(rows, Row{
			ID:               record[0],
			ProductName:      record[1],
			Category:         record[2],
			UnitAbbreviation: record[3],
			Quantity:         record[4],
		})
	}
}

// ProcessUpload materializes the batch into a session created already
// completed. Rows are processed independently: a bad row is skipped and
// counted, never fatal. Only the template precondition and the session
// insert itself can fail the call.
func (s *service) ProcessUpload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	start := s.now()

	template, err := s.resolveTemplate(ctx, input.TemplateID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session, err := s.sessions.Create(ctx, &models.InventorySession{
		TemplateID:  template.ID,
		Name:        fmt.Sprintf("Bulk Import %s %s", now.Format("02/01/2006"), now.Format("15:04:05")),
		Status:      enums.SessionStatusCompleted,
		StartedAt:   now,
		CompletedAt: &now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating import session")
	}

	ctx = s.log.WithSessionID(ctx, session.ID)

	var (
		processed int
		skipped   int
		rowErrs   error
	)
	for i, row := range input.Rows {
		if err := s.importRow(ctx, session.ID, row); err != nil {
			skipped++
			rowErrs = multierr.Append(rowErrs, fmt.Errorf("row %d: %w", i+1, err))
			continue
		}
		processed++
	}

	if rowErrs != nil {
		s.log.Warn(s.log.WithField(ctx, "skipped", skipped), fmt.Sprintf("bulk import skipped rows: %v", rowErrs))
	}
	s.metrics.AddProcessed("csv", processed)
	s.metrics.AddSkipped("csv", skipped)
	s.metrics.ObserveDuration("csv", s.now().Sub(start))
	s.log.Info(ctx, fmt.Sprintf("bulk import finished: %d processed, %d skipped", processed, skipped))

	return &UploadResult{
		SessionID: session.ID,
		Processed: processed,
		Skipped:   skipped,
		Message:   fmt.Sprintf("Bulk import complete. %d products processed, %d skipped.", processed, skipped),
	}, nil
}

func (s *service) resolveTemplate(ctx context.Context, templateID *int) (*models.Template, error) {
	if templateID != nil {
		template, err := s.templates.FindActiveByID(ctx, *templateID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "template not found or inactive")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving template")
		}
		return template, nil
	}
	template, err := s.templates.FirstActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNoTemplate,
				"no active templates available; create a template before bulk importing")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving default template")
	}
	return template, nil
}

// importRow applies the per-row rules: id and quantity must parse, the
// product must be active, and a unit must resolve (product default,
// overridden by a recognised abbreviation). Any failure skips the row.
func (s *service) importRow(ctx context.Context, sessionID int, row Row) error {
	productID, err := strconv.Atoi(strings.TrimSpace(row.ID))
	if err != nil {
		return fmt.Errorf("invalid product id %q", row.ID)
	}

	quantity, err := decimal.NewFromString(strings.TrimSpace(row.Quantity))
	if err != nil || !quantity.IsPositive() {
		return fmt.Errorf("invalid quantity %q", row.Quantity)
	}

	product, err := s.products.FindActiveByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product %d not found or inactive", productID)
		}
		return fmt.Errorf("loading product %d: %w", productID, err)
	}

	unitID := product.DefaultUnitID
	if abbr := strings.TrimSpace(row.UnitAbbreviation); abbr != "" {
		// An unknown abbreviation falls back to the product default;
		// a storage failure must not.
		switch unit, err := s.units.FindByAbbreviation(ctx, abbr); {
		case err == nil:
			unitID = &unit.ID
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("resolving unit %q: %w", abbr, err)
		}
	}
	if unitID == nil {
		return fmt.Errorf("no unit resolved for product %d", productID)
	}

	item := &models.InventoryItem{
		SessionID: sessionID,
		ProductID: productID,
		Quantity:  quantity,
		UnitID:    *unitID,
	}
	if err := s.sessions.InsertItem(ctx, item); err != nil {
		return fmt.Errorf("inserting item for product %d: %w", productID, err)
	}
	return nil
}
