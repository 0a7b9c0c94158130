package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stocktakehq/stocktake-backend/api/controllers"
	"github.com/stocktakehq/stocktake-backend/api/middleware"
	"github.com/stocktakehq/stocktake-backend/internal/bulkops"
	"github.com/stocktakehq/stocktake-backend/internal/products"
	"github.com/stocktakehq/stocktake-backend/internal/sessions"
	"github.com/stocktakehq/stocktake-backend/internal/templates"
	"github.com/stocktakehq/stocktake-backend/internal/units"
	"github.com/stocktakehq/stocktake-backend/pkg/config"
	"github.com/stocktakehq/stocktake-backend/pkg/db"
	"github.com/stocktakehq/stocktake-backend/pkg/logger"
	"github.com/stocktakehq/stocktake-backend/pkg/redis"
)

// Deps bundles everything the router mounts. RedisClient may be nil,
// in which case the idempotency guard passes requests straight through.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	RedisClient *redis.Client

	Units     units.Service
	Products  products.Service
	Templates templates.Service
	Sessions  sessions.Service
	Bulk      bulkops.Service
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.CORS(),
	)

	var idempotencyStore redis.IdempotencyStore
	if deps.RedisClient != nil {
		idempotencyStore = deps.RedisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, deps.DB, pingerOrNil(deps.RedisClient)))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, deps.Logger))

		r.Route("/units", func(r chi.Router) {
			r.Post("/", controllers.UnitCreate(deps.Units, deps.Logger))
			r.Get("/", controllers.UnitList(deps.Units, deps.Logger))
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.ProductCreate(deps.Products, deps.Logger))
			r.Get("/", controllers.ProductList(deps.Products, deps.Logger))
			r.Get("/{id}", controllers.ProductGet(deps.Products, deps.Logger))
			r.Patch("/{id}", controllers.ProductUpdate(deps.Products, deps.Logger))
			r.Delete("/{id}", controllers.ProductDeactivate(deps.Products, deps.Logger))
		})

		r.Route("/templates", func(r chi.Router) {
			r.Post("/", controllers.TemplateCreate(deps.Templates, deps.Logger))
			r.Get("/", controllers.TemplateList(deps.Templates, deps.Logger))
			r.Get("/{id}", controllers.TemplateGet(deps.Templates, deps.Logger))
			r.Post("/{id}/products", controllers.TemplateToggleProduct(deps.Templates, deps.Logger))
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", controllers.SessionCreate(deps.Sessions, deps.Logger))
			r.Post("/save", controllers.SessionSaveCompleted(deps.Sessions, deps.Logger))
			r.Get("/history", controllers.SessionHistory(deps.Sessions, deps.Logger))
			r.Get("/{id}", controllers.SessionDetail(deps.Sessions, deps.Logger))
			r.Get("/{id}/progress", controllers.SessionProgress(deps.Sessions, deps.Logger))
			r.Put("/{id}/items", controllers.SessionUpsertItem(deps.Sessions, deps.Logger))
			r.Post("/{id}/finalize", controllers.SessionFinalize(deps.Sessions, deps.Logger))
		})

		r.Route("/bulk", func(r chi.Router) {
			r.Get("/template", controllers.BulkTemplate(deps.Bulk, deps.Logger))
			r.Post("/upload", controllers.BulkUpload(deps.Bulk, deps.Logger))
		})
	})

	return r
}

func pingerOrNil(client *redis.Client) redis.Pinger {
	if client == nil {
		return nil
	}
	return client
}
