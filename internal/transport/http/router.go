package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jerif/verification-api/internal/application/admin"
	"github.com/jerif/verification-api/internal/config"
	"github.com/jerif/verification-api/internal/transport/http/handler"
	appmiddleware "github.com/jerif/verification-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router. ctx bounds the
// lifetime of background middleware state.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.ClientIP(cfg.App.TrustForwarded))
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Token bucket in front of the public write paths; the per-action
	// fixed window lives in the verification service.
	burstRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimit.BurstRPS), cfg.RateLimit.Burst)

	healthH := handler.NewHealthHandler()
	verifyH := handler.NewVerifyHandler(deps.Verification)
	sessionH := handler.NewSessionHandler(deps.Sessions)
	veteransH := handler.NewVeteransHandler(deps.Veterans)
	adminH := handler.NewAdminHandler(deps.Admin, deps.Campaigns, deps.Sessions)

	r.Get("/health", healthH.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.With(burstRL.Limit).Post("/verify", verifyH.Verify)
	r.With(burstRL.Limit).Get("/session", sessionH.Get)
	r.Get("/veterans", veteransH.List)

	r.Route("/admin", func(r chi.Router) {
		r.With(burstRL.Limit).Post("/auth", adminH.Login)

		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.Tokens))
			r.Use(appmiddleware.RequireRole(admin.RoleAdmin))

			r.Get("/verifications", adminH.ListVerifications)
			r.Get("/campaigns", adminH.ListCampaigns)
			r.Post("/campaigns", adminH.CreateCampaign)
			r.Post("/generate-link", adminH.GenerateLink)
		})
	})

	return r
}
