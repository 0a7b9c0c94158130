package controllers

import (
	"net/http"

	"github.com/stocktakehq/stocktake-backend/api/responses"
	"github.com/stocktakehq/stocktake-backend/pkg/config"
	"github.com/stocktakehq/stocktake-backend/pkg/db"
	pkgerrors "github.com/stocktakehq/stocktake-backend/pkg/errors"
	"github.com/stocktakehq/stocktake-backend/pkg/logger"
	"github.com/stocktakehq/stocktake-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Stocktake-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the backing stores. Redis is optional: a nil
// client is reported as disabled, not failing.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Stocktake-Env", cfg.App.Env)

		checks := map[string]string{}

		if dbP == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "database not wired"))
			return
		}
		if err := dbP.Ping(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
			return
		}
		checks["database"] = "ok"

		if redisP == nil {
			checks["redis"] = "disabled"
		} else if err := redisP.Ping(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
			return
		} else {
			checks["redis"] = "ok"
		}

		responses.WriteSuccess(w, checks)
	}
}
