package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/signstock-backend/api/controllers"
	"github.com/angelmondragon/signstock-backend/api/middleware"
	"github.com/angelmondragon/signstock-backend/internal/ledger"
	"github.com/angelmondragon/signstock-backend/internal/signboards"
	"github.com/angelmondragon/signstock-backend/pkg/config"
	"github.com/angelmondragon/signstock-backend/pkg/logger"
	"github.com/angelmondragon/signstock-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/signstock-backend/pkg/redis"
)

// Dependencies carries everything the HTTP surface needs. Redis and
// IdempotencyStore are nil when redis is not configured.
type Dependencies struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               controllers.Pinger
	Redis            controllers.Pinger
	IdempotencyStore pkgredis.IdempotencyStore
	Signboards       signboards.Service
	Ledger           ledger.Service
	History          ledger.HistoryService
	HTTPMetrics      *metrics.HTTPMetrics
	Gatherer         prometheus.Gatherer
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/signboards", func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.IdempotencyStore, logg))

		r.Get("/", controllers.ListSignboards(deps.Signboards, logg))
		r.Post("/", controllers.CreateSignboard(deps.Signboards, logg))
		r.Delete("/", controllers.DeleteAllSignboards(deps.Signboards, logg))
		r.Post("/reset-all-quantities", controllers.ResetAllQuantities(deps.Ledger, logg))
		r.Get("/history/all", controllers.AllHistory(deps.History, logg))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", controllers.GetSignboard(deps.Signboards, logg))
			r.Put("/", controllers.UpdateSignboard(deps.Signboards, logg))
			r.Delete("/", controllers.DeleteSignboard(deps.Signboards, logg))
			r.Post("/increment", controllers.IncrementQuantity(deps.Ledger, logg))
			r.Post("/decrement", controllers.DecrementQuantity(deps.Ledger, logg))
			r.Post("/add", controllers.AddQuantity(deps.Ledger, logg))
			r.Post("/subtract", controllers.SubtractQuantity(deps.Ledger, logg))
			r.Get("/history", controllers.SignboardHistory(deps.History, logg))
		})
	})

	return r
}
