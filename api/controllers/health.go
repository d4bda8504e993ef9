package controllers

import (
	"net/http"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/api/responses"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/config"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/db"
	pkgerrors "github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/errors"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/logger"
	pkgredis "github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BigDeck-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP pkgredis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BigDeck-Env", cfg.App.Env)

		status := map[string]string{}
		healthy := true

		if dbP == nil {
			status["db"] = "skipped"
		} else if err := dbP.Ping(r.Context()); err != nil {
			status["db"] = "down"
			healthy = false
			if logg != nil {
				logg.Error(r.Context(), "readiness check failed: db", err)
			}
		} else {
			status["db"] = "up"
		}

		if redisP == nil {
			status["redis"] = "skipped"
		} else if err := redisP.Ping(r.Context()); err != nil {
			status["redis"] = "down"
			healthy = false
			if logg != nil {
				logg.Error(r.Context(), "readiness check failed: redis", err)
			}
		} else {
			status["redis"] = "up"
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(status))
			return
		}
		responses.WriteSuccess(w, status)
	}
}
