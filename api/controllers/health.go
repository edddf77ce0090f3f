package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/kasuwahq/kasuwa-backend/api/responses"
	"github.com/kasuwahq/kasuwa-backend/pkg/config"
	"github.com/kasuwahq/kasuwa-backend/pkg/db"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
	"github.com/kasuwahq/kasuwa-backend/pkg/redis"
)

const readinessTimeout = 5 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live", "env": cfg.App.Env})
	}
}

// HealthReady reports ready only when every wired dependency answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				checks["database"] = "down"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "database readiness check failed", err)
				}
			} else {
				checks["database"] = "ok"
			}
		}

		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				checks["redis"] = "down"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "redis readiness check failed", err)
				}
			} else {
				checks["redis"] = "ok"
			}
		}

		payload := map[string]any{
			"status": "ready",
			"env":    cfg.App.Env,
			"checks": checks,
		}
		if !healthy {
			payload["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, payload)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}
