package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/sharecart-backend/api/controllers"
	sharecartcontrollers "github.com/angelmondragon/sharecart-backend/api/controllers/sharecart"
	"github.com/angelmondragon/sharecart-backend/api/middleware"
	"github.com/angelmondragon/sharecart-backend/internal/sharecart"
	"github.com/angelmondragon/sharecart-backend/pkg/config"
	"github.com/angelmondragon/sharecart-backend/pkg/enums"
	"github.com/angelmondragon/sharecart-backend/pkg/logger"
)

// RedisDeps is the slice of the Redis client the router needs.
type RedisDeps interface {
	Ping(ctx context.Context) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient RedisDeps,
	shareService sharecart.Service,
	reportService controllers.AdminReporter,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	generatePolicy := middleware.NewRateLimitPolicy(
		"generate",
		cfg.RateLimit.GenerateWindow,
		cfg.RateLimit.GenerateIPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisClient,
		}))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(cfg.Session, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))

			landing := sharecartcontrollers.Landing(shareService, cfg.ShareLinks.ResolvedRedirectURL(), logg)
			r.Get("/shared-cart/{key}", landing)
			r.Get("/shared-cart/{key}/", landing)

			r.Get("/api/public/ping", controllers.PublicPing())
		})

		r.Route("/api/v1/sharecart", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.OptionalAuth(cfg.JWT, logg))
				r.With(middleware.RateLimit(generatePolicy, redisClient, logg)).Post("/links", sharecartcontrollers.GenerateLink(shareService, logg))
				r.Get("/links/{key}", sharecartcontrollers.ViewLink(shareService, logg))
				r.Post("/links/{key}/add-all", sharecartcontrollers.AddAll(shareService, logg))
				r.Post("/items", sharecartcontrollers.AddItem(shareService, logg))
			})

			// Order hook: called by the shop backend with the buyer's session header.
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, logg))
				r.Use(middleware.RequireRole(enums.UserRoleStorefront, logg))
				r.Post("/orders", sharecartcontrollers.OrderPlaced(shareService, logg))
			})
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Get("/ping", controllers.AdminPing())
		r.Route("/v1/reports", func(r chi.Router) {
			r.Get("/referrers", controllers.AdminReferrerReport(reportService, logg))
			r.Get("/referrers.xlsx", controllers.AdminReferrerReportXLSX(reportService, logg))
		})
		r.Get("/v1/orders/{orderID}/referral", controllers.AdminOrderReferral(reportService, logg))
	})

	return r
}
