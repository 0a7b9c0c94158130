package templates

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stocktakehq/stocktake-backend/internal/products"
	"github.com/stocktakehq/stocktake-backend/pkg/db/models"
	pkgerrors "github.com/stocktakehq/stocktake-backend/pkg/errors"
)

func setupTemplatesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Unit{},
		&models.Product{},
		&models.Template{},
		&models.TemplateItem{},
	))
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := setupTemplatesTestDB(t)
	svc, err := NewService(NewRepository(db), products.NewRepository(db))
	require.NoError(t, err)
	return svc, db
}

func seedProduct(t *testing.T, db *gorm.DB, name string) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, IsActive: true}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestCreateTemplateWithItems(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	flour := seedProduct(t, db, "Flour")
	sugar := seedProduct(t, db, "Sugar")

	created, err := svc.Create(ctx, CreateInput{
		Name:       "Dry Goods",
		ProductIDs: []int{sugar.ID, flour.ID},
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	require.Len(t, created.Items, 2)
	assert.Equal(t, "Sugar", created.Items[0].ProductName)
	assert.Equal(t, "Flour", created.Items[1].ProductName)
	assert.Equal(t, 0, created.Items[0].Position)
	assert.Equal(t, 1, created.Items[1].Position)
}

func TestCreateTemplateValidations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "  "})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Create(ctx, CreateInput{Name: "Ghost Items", ProductIDs: []int{999}})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreateTemplateDuplicateName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Freezer"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Name: "Freezer"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func countTemplateItems(t *testing.T, db *gorm.DB, templateID, productID int) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.TemplateItem{}).
		Where("template_id = ? AND product_id = ?", templateID, productID).
		Count(&count).Error)
	return count
}

func TestToggleProductRoundTrip(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	product := seedProduct(t, db, "Olive Oil")
	template, err := svc.Create(ctx, CreateInput{Name: "Pantry"})
	require.NoError(t, err)

	require.NoError(t, svc.ToggleProduct(ctx, template.ID, product.ID, true))
	assert.EqualValues(t, 1, countTemplateItems(t, db, template.ID, product.ID))

	require.NoError(t, svc.ToggleProduct(ctx, template.ID, product.ID, false))
	assert.EqualValues(t, 0, countTemplateItems(t, db, template.ID, product.ID))
}

func TestToggleProductIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	product := seedProduct(t, db, "Olive Oil")
	template, err := svc.Create(ctx, CreateInput{Name: "Pantry"})
	require.NoError(t, err)

	// Redundant selects never duplicate the row.
	require.NoError(t, svc.ToggleProduct(ctx, template.ID, product.ID, true))
	require.NoError(t, svc.ToggleProduct(ctx, template.ID, product.ID, true))
	assert.EqualValues(t, 1, countTemplateItems(t, db, template.ID, product.ID))

	// Redundant deselects are a no-op, not an error.
	require.NoError(t, svc.ToggleProduct(ctx, template.ID, product.ID, false))
	require.NoError(t, svc.ToggleProduct(ctx, template.ID, product.ID, false))
	assert.EqualValues(t, 0, countTemplateItems(t, db, template.ID, product.ID))
}

func TestToggleProductGuards(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	product := seedProduct(t, db, "Olive Oil")

	err := svc.ToggleProduct(ctx, 404, product.ID, true)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	template, err := svc.Create(ctx, CreateInput{Name: "Pantry"})
	require.NoError(t, err)

	err = svc.ToggleProduct(ctx, template.ID, 999, true)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestTogglePositionAppends(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	first := seedProduct(t, db, "Flour")
	second := seedProduct(t, db, "Sugar")
	template, err := svc.Create(ctx, CreateInput{Name: "Dry Goods", ProductIDs: []int{first.ID}})
	require.NoError(t, err)

	require.NoError(t, svc.ToggleProduct(ctx, template.ID, second.ID, true))

	loaded, err := svc.Get(ctx, template.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)
	assert.Equal(t, first.ID, loaded.Items[0].ProductID)
	assert.Equal(t, second.ID, loaded.Items[1].ProductID)
	assert.Greater(t, loaded.Items[1].Position, loaded.Items[0].Position)
}

func TestListTemplatesOrdered(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"Walk-in", "Bar", "Freezer"} {
		_, err := svc.Create(ctx, CreateInput{Name: name})
		require.NoError(t, err)
	}

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Bar", list[0].Name)
	assert.Equal(t, "Freezer", list[1].Name)
	assert.Equal(t, "Walk-in", list[2].Name)
}
