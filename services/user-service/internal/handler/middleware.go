package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/hlog"

	"github.com/SHAN0945/SafeTrail/services/user-service/internal/model"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/usecase"
	"github.com/SHAN0945/SafeTrail/shared/response"
)

type contextKey string

const (
	sessionUserKey  contextKey = "session_user"
	sessionTokenKey contextKey = "session_token"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safetrail_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safetrail_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	signInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safetrail_sign_ins_total",
			Help: "Total number of sign-in attempts by method and result",
		},
		[]string{"method", "result"},
	)

	safetyStatusUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safetrail_safety_status_updates_total",
			Help: "Total number of safety status changes by new status",
		},
		[]string{"status"},
	)
)

func recordSignIn(method string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	signInsTotal.WithLabelValues(method, result).Inc()
}

// metrics records request counts and latency labelled by chi route pattern,
// which keeps label cardinality bounded.
func metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// accessLog logs one line per request. Query strings are left out because
// the OAuth callback carries the authorization code there.
func accessLog(next http.Handler) http.Handler {
	return hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Str("remote_addr", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Msg("request")
	})(next)
}

// withSession resolves the session token, if any, and stores the session
// user in the request context. Invalid tokens leave the request anonymous.
func (h *userHTTPHandler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), sessionTokenKey, token)

		user, err := h.authUsecase.ResolveSession(ctx, token)
		switch {
		case err == nil:
			ctx = context.WithValue(ctx, sessionUserKey, user)
		case errors.Is(err, usecase.ErrUnauthorized):
			hlog.FromRequest(r).Debug().Err(err).Msg("ignoring invalid session token")
		default:
			hlog.FromRequest(r).Error().Err(err).Msg("failed to resolve session")
			response.Error(w, response.ErrInternal)
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *userHTTPHandler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := sessionUserFromContext(r.Context()); !ok {
			response.Error(w, response.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionToken reads the token from the Authorization header, then the session cookie.
func (h *userHTTPHandler) sessionToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}

	cookie, err := r.Cookie(h.userServiceCfg.Cookie.SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func sessionUserFromContext(ctx context.Context) (*model.SessionUser, bool) {
	user, ok := ctx.Value(sessionUserKey).(*model.SessionUser)
	return user, ok && user != nil
}

func sessionTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(sessionTokenKey).(string)
	return token
}
