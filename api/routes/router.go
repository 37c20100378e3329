package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/api/controllers"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/api/middleware"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/activity"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/assistant"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/auth"
	product "github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/products"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/auth/session"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/config"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/db/models"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/logger"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/metrics"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error)
	Revoke(context.Context, string) error
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Dependencies are the services and infrastructure the router dispatches to.
type Dependencies struct {
	Redis          *redis.Client
	Sessions       sessionManager
	Auth           auth.Service
	Register       auth.RegisterService
	Users          userReader
	Activity       activity.Service
	Products       product.Service
	Assistant      assistant.Service
	HealthChecks   map[string]controllers.Pinger
	Gatherer       prometheus.Gatherer
	RequestMetrics *metrics.HTTPMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)
	if deps.RequestMetrics != nil {
		r.Use(middleware.Metrics(deps.RequestMetrics))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.HealthChecks, logg))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(deps.Products, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(deps.Products, logg))
		r.Post("/assistant/query", controllers.AssistantQuery(deps.Assistant, logg))
		r.Post("/assistant/image-search", controllers.AssistantImageSearch(deps.Assistant, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Register, deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Sessions, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Sessions, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.Get("/users/me", controllers.Me(deps.Users, deps.Activity, logg))
		r.Route("/activity", func(r chi.Router) {
			r.Get("/", controllers.ActivityGet(deps.Activity, logg))
			r.Post("/merge", controllers.ActivityMerge(deps.Activity, logg))
			// Idempotency keys off the full route pattern, which chi only
			// knows once the endpoint is matched.
			r.With(middleware.Idempotency(deps.Redis, logg)).Put("/cart", controllers.ActivityCart(deps.Activity, logg))
		})
		r.Post("/assistant/query", controllers.AssistantQuery(deps.Assistant, logg))
	})

	return r
}
