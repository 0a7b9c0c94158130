package bulkops

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stocktakehq/stocktake-backend/internal/products"
	"github.com/stocktakehq/stocktake-backend/internal/sessions"
	"github.com/stocktakehq/stocktake-backend/internal/templates"
	"github.com/stocktakehq/stocktake-backend/internal/units"
	"github.com/stocktakehq/stocktake-backend/pkg/db/models"
	"github.com/stocktakehq/stocktake-backend/pkg/enums"
	pkgerrors "github.com/stocktakehq/stocktake-backend/pkg/errors"
	"github.com/stocktakehq/stocktake-backend/pkg/logger"
	"github.com/stocktakehq/stocktake-backend/pkg/metrics"
)

type fixture struct {
	svc  Service
	conn *gorm.DB
	kg   *models.Unit
	un   *models.Unit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Unit{},
		&models.Product{},
		&models.Template{},
		&models.TemplateItem{},
		&models.InventorySession{},
		&models.InventoryItem{},
	))

	log := logger.New(logger.Options{ServiceName: "bulkops-test", Output: io.Discard})
	svc, err := NewService(
		products.NewRepository(conn),
		units.NewRepository(conn),
		templates.NewRepository(conn),
		sessions.NewRepository(conn),
		log,
		metrics.NewBulkImportMetrics(prometheus.NewRegistry()),
	)
	require.NoError(t, err)

	kg := &models.Unit{Name: "kilogram", Abbreviation: "kg"}
	require.NoError(t, conn.Create(kg).Error)
	un := &models.Unit{Name: "each", Abbreviation: "un"}
	require.NoError(t, conn.Create(un).Error)

	return &fixture{svc: svc, conn: conn, kg: kg, un: un}
}

func (f *fixture) seedProduct(t *testing.T, id int, name string, category *string, unitID *int, active bool) {
	t.Helper()
	product := &models.Product{ID: id, Name: name, Category: category, DefaultUnitID: unitID, IsActive: active}
	require.NoError(t, f.conn.Create(product).Error)
}

func (f *fixture) seedTemplate(t *testing.T, name string) *models.Template {
	t.Helper()
	template := &models.Template{Name: name, IsActive: true}
	require.NoError(t, f.conn.Create(template).Error)
	return template
}

func (f *fixture) items(t *testing.T, sessionID int) []models.InventoryItem {
	t.Helper()
	var items []models.InventoryItem
	require.NoError(t, f.conn.Where("session_id = ?", sessionID).Order("id").Find(&items).Error)
	return items
}

func strPtr(s string) *string { return &s }

type failingUnitSource struct{}

func (failingUnitSource) FindByAbbreviation(context.Context, string) (*models.Unit, error) {
	return nil, fmt.Errorf("connection reset")
}

func (f *fixture) withUnits(t *testing.T, source unitSource) Service {
	t.Helper()
	log := logger.New(logger.Options{ServiceName: "bulkops-test", Output: io.Discard})
	svc, err := NewService(
		products.NewRepository(f.conn),
		source,
		templates.NewRepository(f.conn),
		sessions.NewRepository(f.conn),
		log,
		metrics.NewBulkImportMetrics(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	return svc
}

func TestGenerateTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedProduct(t, 1, `Olives "Kalamata", pitted`, strPtr("pantry"), &f.kg.ID, true)
	f.seedProduct(t, 2, "Apple", nil, &f.un.ID, true)
	f.seedProduct(t, 3, "Retired", nil, &f.kg.ID, false)

	sheet, err := f.svc.GenerateTemplate(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sheet.Filename, "inventory_template_"))
	assert.True(t, strings.HasSuffix(sheet.Filename, ".csv"))

	lines := strings.Split(strings.TrimRight(sheet.Data, "\n"), "\n")
	require.Len(t, lines, 3, "header plus two active products")
	assert.Equal(t, "id,product_name,category,unit_abbreviation,quantity", lines[0])
	// Ordered by name, quantity always empty, quotes doubled.
	assert.Equal(t, "2,Apple,,un,", lines[1])
	assert.Equal(t, `1,"Olives ""Kalamata"", pitted",pantry,kg,`, lines[2])
}

func TestGenerateTemplateRoundTripsThroughParse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedProduct(t, 1, `Olives "Kalamata", pitted`, strPtr("pantry"), &f.kg.ID, true)

	sheet, err := f.svc.GenerateTemplate(ctx)
	require.NoError(t, err)

	rows, err := ParseCSV(strings.NewReader(sheet.Data))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].ID)
	assert.Equal(t, `Olives "Kalamata", pitted`, rows[0].ProductName)
	assert.Equal(t, "kg", rows[0].UnitAbbreviation)
	assert.Empty(t, rows[0].Quantity)
}

func TestParseCSVRejectsBadHeader(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("foo,bar,baz,qux,quux\n1,a,b,kg,2\n"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestProcessUploadNoActiveTemplate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProcessUpload(context.Background(), UploadInput{
		Rows: []Row{{ID: "1", Quantity: "2"}},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNoTemplate, pkgerrors.As(err).Code())
}

func TestProcessUploadSkipsBadRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedTemplate(t, "Walk-in")
	f.seedProduct(t, 3, "Tomato", nil, &f.kg.ID, true)
	f.seedProduct(t, 5, "Onion", nil, &f.kg.ID, true)

	result, err := f.svc.ProcessUpload(ctx, UploadInput{
		Rows: []Row{
			{ID: "3", Quantity: "4"},
			{ID: "abc", Quantity: "2"},
			{ID: "5", Quantity: "0"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 2, result.Skipped)

	items := f.items(t, result.SessionID)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].ProductID)
	assert.True(t, items[0].Quantity.Equal(decimal.NewFromInt(4)))

	var session models.InventorySession
	require.NoError(t, f.conn.First(&session, "id = ?", result.SessionID).Error)
	assert.Equal(t, enums.SessionStatusCompleted, session.Status)
	require.NotNil(t, session.CompletedAt)
}

func TestProcessUploadUnitLookupFailureSkipsRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedTemplate(t, "Walk-in")
	f.seedProduct(t, 1, "Tomato", nil, &f.kg.ID, true)
	svc := f.withUnits(t, failingUnitSource{})

	result, err := svc.ProcessUpload(ctx, UploadInput{
		Rows: []Row{
			// Abbreviation lookup hits a broken store: skipped, never
			// silently mapped to the product default.
			{ID: "1", UnitAbbreviation: "kg", Quantity: "2"},
			// No abbreviation never touches the unit store.
			{ID: "1", Quantity: "3"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Skipped)

	items := f.items(t, result.SessionID)
	require.Len(t, items, 1)
	assert.Equal(t, f.kg.ID, items[0].UnitID)
	assert.True(t, items[0].Quantity.Equal(decimal.NewFromInt(3)))
}

func TestProcessUploadRowRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedTemplate(t, "Walk-in")
	f.seedProduct(t, 1, "Tomato", nil, &f.kg.ID, true)
	f.seedProduct(t, 2, "Retired", nil, &f.kg.ID, false)
	f.seedProduct(t, 3, "Unitless", nil, nil, true)

	result, err := f.svc.ProcessUpload(ctx, UploadInput{
		Rows: []Row{
			{ID: "1", Quantity: "2.5", UnitAbbreviation: "un"}, // override default unit
			{ID: "1", Quantity: "-3"},                          // negative quantity
			{ID: "2", Quantity: "1"},                           // inactive product
			{ID: "3", Quantity: "1"},                           // no unit resolvable
			{ID: "99", Quantity: "1"},                          // unknown product
			{ID: "3", Quantity: "1", UnitAbbreviation: "kg"},   // abbreviation rescues it
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 4, result.Skipped)

	items := f.items(t, result.SessionID)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].ProductID)
	assert.Equal(t, f.un.ID, items[0].UnitID, "explicit abbreviation overrides product default")
	assert.Equal(t, 3, items[1].ProductID)
	assert.Equal(t, f.kg.ID, items[1].UnitID)
}

func TestProcessUploadZeroValidRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedTemplate(t, "Walk-in")

	result, err := f.svc.ProcessUpload(ctx, UploadInput{
		Rows: []Row{
			{ID: "x", Quantity: "1"},
			{ID: "1", Quantity: "0"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 2, result.Skipped)
	assert.NotZero(t, result.SessionID, "the empty completed session still exists")
	assert.Empty(t, f.items(t, result.SessionID))
}

func TestProcessUploadExplicitTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedTemplate(t, "Walk-in")
	second := f.seedTemplate(t, "Bar")
	f.seedProduct(t, 1, "Tomato", nil, &f.kg.ID, true)

	result, err := f.svc.ProcessUpload(ctx, UploadInput{
		TemplateID: &second.ID,
		Rows:       []Row{{ID: "1", Quantity: "2"}},
	})
	require.NoError(t, err)

	var session models.InventorySession
	require.NoError(t, f.conn.First(&session, "id = ?", result.SessionID).Error)
	assert.Equal(t, second.ID, session.TemplateID)

	missing := 404
	_, err = f.svc.ProcessUpload(ctx, UploadInput{TemplateID: &missing})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
