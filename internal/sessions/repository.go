package sessions

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stocktakehq/stocktake-backend/internal/repo"
	"github.com/stocktakehq/stocktake-backend/pkg/db/models"
	"github.com/stocktakehq/stocktake-backend/pkg/enums"
	"github.com/stocktakehq/stocktake-backend/pkg/pagination"
)

// Repository persists inventory sessions and their line items.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx rebinds the repository to a transaction handle.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// Create inserts a session row, optionally with preloaded items.
func (r *Repository) Create(ctx context.Context, session *models.InventorySession) (*models.InventorySession, error) {
	if err := r.DB(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// FindByID loads a session without associations.
func (r *Repository) FindByID(ctx context.Context, id int) (*models.InventorySession, error) {
	var session models.InventorySession
	if err := r.DB(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// FindDetailByID loads a session with template, items, products and units.
func (r *Repository) FindDetailByID(ctx context.Context, id int) (*models.InventorySession, error) {
	var session models.InventorySession
	err := r.DB(ctx).
		Preload("Template").
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("id")
		}).
		Preload("Items.Product").
		Preload("Items.Unit").
		First(&session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// MarkCompleted re-applies the completed status unconditionally, so
// repeated finalizations succeed with an advancing completed_at.
func (r *Repository) MarkCompleted(ctx context.Context, id int, at time.Time) error {
	return r.DB(ctx).
		Model(&models.InventorySession{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.SessionStatusCompleted,
			"completed_at": at,
		}).Error
}

// ListItems returns the persisted line items of a session.
func (r *Repository) ListItems(ctx context.Context, sessionID int) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.DB(ctx).
		Where("session_id = ?", sessionID).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpsertItem writes the line item in one statement. The unique
// (session_id, product_id) pair turns a second insert into an update,
// so concurrent upserts for the same product cannot produce two rows.
// Notes are only touched when the incoming item carries them.
func (r *Repository) UpsertItem(ctx context.Context, item *models.InventoryItem) error {
	assignments := []string{"quantity", "unit_id"}
	if item.Notes != nil {
		assignments = append(assignments, "notes")
	}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns(assignments),
		}).
		Create(item).Error
}

// InsertItem inserts without conflict handling, for freshly created
// sessions where duplicates are impossible by construction.
func (r *Repository) InsertItem(ctx context.Context, item *models.InventoryItem) error {
	return r.DB(ctx).Create(item).Error
}

// DeleteItem removes the line item for the pair if present and reports
// whether a row existed.
func (r *Repository) DeleteItem(ctx context.Context, sessionID, productID int) (bool, error) {
	res := r.DB(ctx).
		Where("session_id = ? AND product_id = ?", sessionID, productID).
		Delete(&models.InventoryItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListHistory pages sessions most recent first by (started_at, id).
// The caller passes limit+1 to detect whether a next page exists.
func (r *Repository) ListHistory(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.InventorySession, error) {
	query := r.DB(ctx).
		Preload("Template").
		Order("started_at DESC, id DESC").
		Limit(limit)
	if cursor != nil {
		query = query.Where(
			"started_at < ? OR (started_at = ? AND id < ?)",
			cursor.StartedAt, cursor.StartedAt, cursor.ID,
		)
	}
	var list []models.InventorySession
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ItemCounts returns the number of line items per session id.
func (r *Repository) ItemCounts(ctx context.Context, sessionIDs []int) (map[int]int64, error) {
	counts := make(map[int]int64, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return counts, nil
	}
	type row struct {
		SessionID int
		Total     int64
	}
	var rows []row
	err := r.DB(ctx).
		Model(&models.InventoryItem{}).
		Select("session_id, COUNT(*) AS total").
		Where("session_id IN ?", sessionIDs).
		Group("session_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.SessionID] = r.Total
	}
	return counts, nil
}
