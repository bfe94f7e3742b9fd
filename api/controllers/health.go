package controllers

import (
	"net/http"

	"github.com/lucasbravon/swapstay-backend/api/responses"
	"github.com/lucasbravon/swapstay-backend/pkg/config"
	"github.com/lucasbravon/swapstay-backend/pkg/db"
	pkgredis "github.com/lucasbravon/swapstay-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Swapstay-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, pinger db.Pinger, cache *pkgredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Swapstay-Env", cfg.App.Env)

		checks := map[string]string{"db": "ok", "redis": "ok"}
		healthy := true

		if pinger == nil {
			checks["db"] = "unconfigured"
			healthy = false
		} else if err := pinger.Ping(r.Context()); err != nil {
			checks["db"] = "unavailable"
			healthy = false
		}

		if cache == nil {
			checks["redis"] = "unconfigured"
			healthy = false
		} else if err := cache.Ping(r.Context()); err != nil {
			checks["redis"] = "unavailable"
			healthy = false
		}

		status := http.StatusOK
		payload := map[string]any{"status": "ready", "checks": checks}
		if !healthy {
			status = http.StatusServiceUnavailable
			payload["status"] = "degraded"
		}
		responses.WriteSuccessStatus(w, status, payload)
	}
}
