package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/infra/redis"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/usecase"
)

type Server struct {
	purchaseUC    usecase.PurchaseUseCase
	expiryUC      *usecase.ExpiryUseCase
	limiter       *redis.RateLimiter
	limiterWindow time.Duration
	auth          *AuthManager
	apiKey        string
	log           *zerolog.Logger
}

func NewServer(
	purchaseUC usecase.PurchaseUseCase,
	expiryUC *usecase.ExpiryUseCase,
	limiter *redis.RateLimiter,
	auth *AuthManager,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "web").Logger()
	return &Server{
		purchaseUC:    purchaseUC,
		expiryUC:      expiryUC,
		limiter:       limiter,
		limiterWindow: time.Minute,
		auth:          auth,
		apiKey:        apiKey,
		log:           &l,
	}
}

// Router wires every route behind its middleware chain.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/admin/login", s.handleAdminLogin)

		r.Group(func(r chi.Router) {
			r.Use(apiKeyMiddleware(s.apiKey))
			r.Post("/payments/intents", s.handleCreateIntent)
			r.Get("/payments/intents/{id}", s.handleGetIntent)
			r.Post("/payments/intents/{id}/confirm", s.handleConfirmIntent)
			r.Post("/payments/intents/{id}/cancel", s.handleCancelIntent)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)
			r.Post("/admin/expiration/run", s.handleRunExpiration)
		})
	})

	return r
}
