package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lucasbravon/swapstay-backend/api/controllers"
	"github.com/lucasbravon/swapstay-backend/api/middleware"
	"github.com/lucasbravon/swapstay-backend/internal/completion"
	"github.com/lucasbravon/swapstay-backend/pkg/config"
	"github.com/lucasbravon/swapstay-backend/pkg/db"
	"github.com/lucasbravon/swapstay-backend/pkg/logger"
	pkgredis "github.com/lucasbravon/swapstay-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. The router stays a pure
// wiring function so tests can hand it stubs.
type Deps struct {
	Config            *config.Config
	Logger            *logger.Logger
	DB                db.Pinger
	Redis             *pkgredis.Client
	IdempotencyStore  pkgredis.IdempotencyStore
	CompletionService completion.Service
	MetricsGatherer   prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ActingUser(logg))
		r.Use(middleware.Idempotency(deps.IdempotencyStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Post("/proposals/{proposalID}/accept", controllers.AcceptProposal(deps.CompletionService, logg))
		r.Get("/swaps/{swapID}/completion", controllers.GetCompletionStatus(deps.CompletionService, logg))
		r.Route("/completions", func(r chi.Router) {
			r.Post("/validate", controllers.ValidateConsistency(deps.CompletionService, logg))
			r.Get("/manual-intervention", controllers.ListManualInterventionAudits(deps.CompletionService, logg))
			r.Get("/{completionID}/audit", controllers.GetCompletionAudit(deps.CompletionService, logg))
		})
	})

	return r
}
