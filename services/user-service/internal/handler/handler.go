package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/SHAN0945/SafeTrail/services/user-service/internal/config"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/usecase"
	"github.com/SHAN0945/SafeTrail/shared/ratelimit"
	"github.com/SHAN0945/SafeTrail/shared/response"
	"github.com/SHAN0945/SafeTrail/shared/validator"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type userHTTPHandler struct {
	authUsecase          usecase.AuthUsecase
	userUsecase          usecase.UserUsecase
	passwordResetUsecase usecase.PasswordResetUsecase
	validator            *validator.Validator
	stateStore           sessions.Store
	healthChecker        HealthChecker
	rateLimitCounter     ratelimit.Counter
	userServiceCfg       *config.UserServiceConfig
	logger               *zerolog.Logger
}

// NewUserHTTPHandler builds the HTTP API of the user service.
// rateLimitCounter may be nil, in which case no endpoint is throttled.
func NewUserHTTPHandler(
	authUsecase usecase.AuthUsecase,
	userUsecase usecase.UserUsecase,
	passwordResetUsecase usecase.PasswordResetUsecase,
	validator *validator.Validator,
	healthChecker HealthChecker,
	rateLimitCounter ratelimit.Counter,
	userServiceCfg *config.UserServiceConfig,
	logger *zerolog.Logger,
) http.Handler {
	h := &userHTTPHandler{
		authUsecase:          authUsecase,
		userUsecase:          userUsecase,
		passwordResetUsecase: passwordResetUsecase,
		validator:            validator,
		stateStore:           newStateStore(userServiceCfg),
		healthChecker:        healthChecker,
		rateLimitCounter:     rateLimitCounter,
		userServiceCfg:       userServiceCfg,
		logger:               logger,
	}

	return h.routes()
}

func (h *userHTTPHandler) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(hlog.NewHandler(*h.logger))
	r.Use(accessLog)
	r.Use(metrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.userServiceCfg.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(h.withSession)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/google/login", h.GoogleLogin)
			r.Get("/google/callback", h.GoogleCallback)
			r.Get("/session", h.Session)
			r.Post("/logout", h.Logout)

			r.Group(func(r chi.Router) {
				r.Use(h.rateLimit("auth"))

				r.Post("/google/token", h.GoogleToken)
				r.Post("/signup", h.SignUp)
				r.Post("/login", h.Login)
				r.Post("/password/forgot", h.ForgotPassword)
				r.Get("/password/reset", h.CheckResetToken)
				r.Post("/password/reset", h.ResetPassword)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)

			r.Patch("/users/me", h.UpdateProfile)
			r.Post("/safety/status", h.UpdateSafetyStatus)
		})
	})

	return r
}

func (h *userHTTPHandler) rateLimit(prefix string) func(http.Handler) http.Handler {
	if h.rateLimitCounter == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return ratelimit.Middleware(h.rateLimitCounter, ratelimit.Config{
		Prefix: prefix,
		Limit:  h.userServiceCfg.RateLimit.RequestsPerMin,
		Window: time.Minute,
	}, h.logger)
}

// Health reports whether the user store is reachable.
func (h *userHTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.healthChecker.Ping(ctx); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("health check failed")
		response.Raw(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	response.Raw(w, http.StatusOK, map[string]string{"status": "ok"})
}
