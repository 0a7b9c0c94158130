package products

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stocktakehq/stocktake-backend/internal/units"
	"github.com/stocktakehq/stocktake-backend/pkg/db/models"
	pkgerrors "github.com/stocktakehq/stocktake-backend/pkg/errors"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Unit{}, &models.Product{}))
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := setupProductsTestDB(t)
	svc, err := NewService(NewRepository(db), units.NewRepository(db))
	require.NoError(t, err)
	return svc, db
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func TestNewServiceRequiresDeps(t *testing.T) {
	if _, err := NewService(nil, nil); err == nil {
		t.Fatal("expected error creating service without deps")
	}
}

func TestCreateAndGetProduct(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	unit := models.Unit{Name: "kilogram", Abbreviation: "kg"}
	require.NoError(t, db.Create(&unit).Error)

	created, err := svc.Create(ctx, CreateInput{
		Name:          "  Tomato  ",
		SKU:           strPtr("SKU-001"),
		Category:      strPtr("produce"),
		DefaultUnitID: intPtr(unit.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, "Tomato", created.Name)
	assert.True(t, created.IsActive)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tomato", got.Name)
	require.NotNil(t, got.SKU)
	assert.Equal(t, "SKU-001", *got.SKU)
}

func TestCreateProductValidations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "   "})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Create(ctx, CreateInput{Name: "Onion", DefaultUnitID: intPtr(999)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Onion", SKU: strPtr("DUP-1")})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Name: "Garlic", SKU: strPtr("DUP-1")})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestUpdateProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Name: "Onion"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, UpdateInput{
		Name:     strPtr("Red Onion"),
		Category: strPtr("produce"),
		IsActive: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Red Onion", updated.Name)
	assert.False(t, updated.IsActive)

	_, err = svc.Update(ctx, created.ID, UpdateInput{Name: strPtr("  ")})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Update(ctx, 404, UpdateInput{Name: strPtr("Ghost")})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestDeactivateProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Name: "Onion"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, created.ID))

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)

	err = svc.Deactivate(ctx, 404)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListActiveOrderedByName(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	unit := models.Unit{Name: "kilogram", Abbreviation: "kg"}
	require.NoError(t, db.Create(&unit).Error)

	for _, name := range []string{"Zucchini", "Apple", "Mango"} {
		_, err := svc.Create(ctx, CreateInput{Name: name, DefaultUnitID: intPtr(unit.ID)})
		require.NoError(t, err)
	}

	list, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Apple", list[0].Name)
	assert.Equal(t, "Mango", list[1].Name)
	assert.Equal(t, "Zucchini", list[2].Name)
	require.NotNil(t, list[0].DefaultUnitAbbr)
	assert.Equal(t, "kg", *list[0].DefaultUnitAbbr)
}
