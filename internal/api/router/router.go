package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/govsense/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/govsense/internal/http/middleware"
	"github.com/wolfman30/govsense/internal/webchat"
	"github.com/wolfman30/govsense/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ClassifyHandler    *handlers.ClassifyHandler
	WebChat            *webchat.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// RateLimiter guards the classification endpoints when set.
	RateLimiter *httpmiddleware.RateLimiter
	// Now is the health endpoint clock; time.Now when nil.
	Now func() time.Time
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	health := handlers.Health(cfg.Now)
	r.Get("/", health)
	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ClassifyHandler != nil {
		r.Group(func(api chi.Router) {
			if cfg.RateLimiter != nil {
				api.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
			}
			api.Use(middleware.Compress(5))
			api.Post("/classify_text", cfg.ClassifyHandler.ClassifyText)
			api.Post("/classify_image", cfg.ClassifyHandler.ClassifyImage)
		})
	}

	if cfg.WebChat != nil {
		r.Get("/chat/ws", cfg.WebChat.HandleWebSocket)
	}

	return r
}
