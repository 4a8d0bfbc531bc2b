package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/cuzonet/cuzonet-backend/api/responses"
	"github.com/cuzonet/cuzonet-backend/pkg/config"
	pkgerrors "github.com/cuzonet/cuzonet-backend/pkg/errors"
	"github.com/cuzonet/cuzonet-backend/pkg/logger"
)

// Pinger is the database health surface the readiness probe depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cuzonet-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cuzonet-Env", cfg.App.Env)

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "database unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
