package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stocktakehq/stocktake-backend/pkg/db"
	"github.com/stocktakehq/stocktake-backend/pkg/db/models"
	"github.com/stocktakehq/stocktake-backend/pkg/enums"
	pkgerrors "github.com/stocktakehq/stocktake-backend/pkg/errors"
	"github.com/stocktakehq/stocktake-backend/pkg/logger"
	"github.com/stocktakehq/stocktake-backend/pkg/pagination"
)

// Service drives the counting session lifecycle and the item upsert engine.
type Service interface {
	Create(ctx context.Context, templateID int) (*SessionDTO, error)
	Finalize(ctx context.Context, sessionID int) (*SessionDTO, error)
	Progress(ctx context.Context, sessionID int) ([]ItemProgress, error)
	UpsertItem(ctx context.Context, input UpsertItemInput) (*UpsertResult, error)
	SaveCompleted(ctx context.Context, input SaveCompletedInput) (*SessionDTO, error)
	ListHistory(ctx context.Context, params pagination.Params) (*HistoryPage, error)
	Detail(ctx context.Context, sessionID int) (*SessionDetailDTO, error)
}

// SessionDTO is the lifecycle read shape returned to controllers.
type SessionDTO struct {
	ID          int        `json:"id"`
	TemplateID  int        `json:"template_id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ItemProgress is one persisted count within a session.
type ItemProgress struct {
	ProductID int             `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitID    int             `json:"unit_id"`
}

// UpsertItemInput carries one interactive quantity edit. Quantity
// arrives as text, matching the form payloads that drive it.
type UpsertItemInput struct {
	SessionID int
	ProductID int
	Quantity  string
	UnitID    int
	Notes     *string
}

// UpsertResult reports what the upsert engine did with the edit.
type UpsertResult struct {
	Removed  bool            `json:"removed"`
	Quantity decimal.Decimal `json:"quantity"`
	Message  string          `json:"message"`
}

// SaveItemInput is one line of a complete-inventory save.
type SaveItemInput struct {
	ProductID int
	Quantity  string
	UnitID    int
	Notes     *string
}

// SaveCompletedInput materializes a finished count in one transaction.
type SaveCompletedInput struct {
	TemplateID int
	Items      []SaveItemInput
}

// HistoryEntry is one row of the session history listing.
type HistoryEntry struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	TemplateName string     `json:"template_name"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ItemCount    int64      `json:"item_count"`
}

// HistoryPage is a cursor-paginated slice of session history.
type HistoryPage struct {
	Entries    []HistoryEntry `json:"entries"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

// SessionDetailDTO is the historical read of one session with its items.
type SessionDetailDTO struct {
	SessionDTO
	TemplateName string          `json:"template_name"`
	Items        []DetailItemDTO `json:"items"`
}

// DetailItemDTO is one line item joined with product and unit.
type DetailItemDTO struct {
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitID      int             `json:"unit_id"`
	UnitAbbr    string          `json:"unit_abbreviation"`
	Notes       *string         `json:"notes,omitempty"`
}

type templateLoader interface {
	FindActiveByID(ctx context.Context, id int) (*models.Template, error)
}

type service struct {
	client    *db.Client
	repo      *Repository
	templates templateLoader
	log       *logger.Logger
	now       func() time.Time
}

// NewService constructs a session service instance.
func NewService(client *db.Client, repo *Repository, templates templateLoader, log *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if templates == nil {
		return nil, fmt.Errorf("template repository required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		client:    client,
		repo:      repo,
		templates: templates,
		log:       log,
		now:       time.Now,
	}, nil
}

// sessionName synthesizes the human label shown in history listings.
func sessionName(prefix string, at time.Time) string {
	return fmt.Sprintf("%s %s - %s", prefix, at.Format("02/01/2006"), at.Format("15:04:05"))
}

func (s *service) Create(ctx context.Context, templateID int) (*SessionDTO, error) {
	if _, err := s.templates.FindActiveByID(ctx, templateID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "template not found or inactive")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving template")
	}

	now := s.now()
	session := &models.InventorySession{
		TemplateID: templateID,
		Name:       sessionName("Count", now),
		Status:     enums.SessionStatusInProgress,
		StartedAt:  now,
	}
	created, err := s.repo.Create(ctx, session)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating session")
	}

	ctx = s.log.WithSessionID(ctx, created.ID)
	s.log.Info(ctx, "counting session created")
	return toSessionDTO(created), nil
}

func (s *service) Finalize(ctx context.Context, sessionID int) (*SessionDTO, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading session")
	}

	// Re-applied unconditionally: finalizing an already completed
	// session succeeds, with completed_at advancing on each call.
	now := s.now()
	if err := s.repo.MarkCompleted(ctx, session.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalizing session")
	}
	session.Status = enums.SessionStatusCompleted
	session.CompletedAt = &now

	ctx = s.log.WithSessionID(ctx, session.ID)
	s.log.Info(ctx, "counting session finalized")
	return toSessionDTO(session), nil
}

func (s *service) Progress(ctx context.Context, sessionID int) ([]ItemProgress, error) {
	if _, err := s.repo.FindByID(ctx, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading session")
	}
	items, err := s.repo.ListItems(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing session items")
	}
	progress := make([]ItemProgress, 0, len(items))
	for _, item := range items {
		progress = append(progress, ItemProgress{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitID:    item.UnitID,
		})
	}
	return progress, nil
}

// parseQuantity validates the textual quantity before any write. Zero
// is a legal "remove this row" value; negatives and garbage are not.
func parseQuantity(raw string) (decimal.Decimal, error) {
	quantity, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("quantity %q is not a number", raw))
	}
	if quantity.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	return quantity, nil
}

func (s *service) UpsertItem(ctx context.Context, input UpsertItemInput) (*UpsertResult, error) {
	quantity, err := parseQuantity(input.Quantity)
	if err != nil {
		return nil, err
	}
	remove := quantity.IsZero()
	if !remove && input.UnitID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit is required")
	}

	var result UpsertResult
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		// Status is checked inside the same transaction as the write,
		// so a concurrent finalize cannot slip between guard and write.
		session, err := txRepo.FindByID(ctx, input.SessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeSessionClosed, "session not found or already finished")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading session")
		}
		if session.Status != enums.SessionStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeSessionClosed, "session already finished")
		}

		if remove {
			if _, err := txRepo.DeleteItem(ctx, input.SessionID, input.ProductID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing session item")
			}
			result = UpsertResult{Removed: true, Quantity: decimal.Zero, Message: "item removed from count"}
			return nil
		}

		item := &models.InventoryItem{
			SessionID: input.SessionID,
			ProductID: input.ProductID,
			Quantity:  quantity,
			UnitID:    input.UnitID,
			Notes:     input.Notes,
		}
		if err := txRepo.UpsertItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving session item")
		}
		result = UpsertResult{Quantity: quantity, Message: "quantity saved"}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) SaveCompleted(ctx context.Context, input SaveCompletedInput) (*SessionDTO, error) {
	if _, err := s.templates.FindActiveByID(ctx, input.TemplateID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "template not found or inactive")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving template")
	}

	// Rows at or below zero are dropped up front, the same "zero means
	// omit" rule as the interactive path. A repeated product keeps its
	// last row; inserting both would trip the (session_id, product_id)
	// unique index.
	valid := make([]models.InventoryItem, 0, len(input.Items))
	seen := make(map[int]int, len(input.Items))
	for _, item := range input.Items {
		quantity, err := decimal.NewFromString(item.Quantity)
		if err != nil || !quantity.IsPositive() {
			continue
		}
		row := models.InventoryItem{
			ProductID: item.ProductID,
			Quantity:  quantity,
			UnitID:    item.UnitID,
			Notes:     item.Notes,
		}
		if idx, ok := seen[item.ProductID]; ok {
			valid[idx] = row
			continue
		}
		seen[item.ProductID] = len(valid)
		valid = append(valid, row)
	}
	if len(valid) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no items with a valid quantity to save")
	}

	now := s.now()
	session := &models.InventorySession{
		TemplateID:  input.TemplateID,
		Name:        sessionName("Count", now),
		Status:      enums.SessionStatusCompleted,
		StartedAt:   now,
		CompletedAt: &now,
	}
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.Create(ctx, session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating session")
		}
		for i := range valid {
			valid[i].SessionID = session.ID
			if err := txRepo.InsertItem(ctx, &valid[i]); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving session item")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.log.WithSessionID(ctx, session.ID)
	s.log.Info(ctx, fmt.Sprintf("inventory saved with %d products", len(valid)))
	return toSessionDTO(session), nil
}

func (s *service) ListHistory(ctx context.Context, params pagination.Params) (*HistoryPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	list, err := s.repo.ListHistory(ctx, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing session history")
	}

	page := &HistoryPage{Entries: make([]HistoryEntry, 0, limit)}
	hasMore := len(list) > limit
	if hasMore {
		list = list[:limit]
	}

	ids := make([]int, 0, len(list))
	for _, session := range list {
		ids = append(ids, session.ID)
	}
	counts, err := s.repo.ItemCounts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting session items")
	}

	for _, session := range list {
		entry := HistoryEntry{
			ID:          session.ID,
			Name:        session.Name,
			Status:      session.Status.String(),
			StartedAt:   session.StartedAt,
			CompletedAt: session.CompletedAt,
			ItemCount:   counts[session.ID],
		}
		if session.Template != nil {
			entry.TemplateName = session.Template.Name
		}
		page.Entries = append(page.Entries, entry)
	}
	if hasMore {
		last := list[len(list)-1]
		next := pagination.EncodeCursor(pagination.Cursor{StartedAt: last.StartedAt, ID: last.ID})
		page.NextCursor = &next
	}
	return page, nil
}

func (s *service) Detail(ctx context.Context, sessionID int) (*SessionDetailDTO, error) {
	session, err := s.repo.FindDetailByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading session")
	}

	detail := &SessionDetailDTO{SessionDTO: *toSessionDTO(session)}
	if session.Template != nil {
		detail.TemplateName = session.Template.Name
	}
	detail.Items = make([]DetailItemDTO, 0, len(session.Items))
	for _, item := range session.Items {
		dto := DetailItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitID:    item.UnitID,
			Notes:     item.Notes,
		}
		if item.Product != nil {
			dto.ProductName = item.Product.Name
		}
		if item.Unit != nil {
			dto.UnitAbbr = item.Unit.Abbreviation
		}
		detail.Items = append(detail.Items, dto)
	}
	return detail, nil
}

func toSessionDTO(session *models.InventorySession) *SessionDTO {
	return &SessionDTO{
		ID:          session.ID,
		TemplateID:  session.TemplateID,
		Name:        session.Name,
		Status:      session.Status.String(),
		StartedAt:   session.StartedAt,
		CompletedAt: session.CompletedAt,
	}
}
