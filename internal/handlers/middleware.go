package handlers

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kidshield/internal/metrics"
	"kidshield/internal/security"
	"kidshield/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const ClaimsContextKey ContextKey = "claims"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService    *service.AuthService
	authLimiter    *security.RateLimiter
	trustedProxies []*net.IPNet
	allowedOrigins []string
	logger         zerolog.Logger
}

// NewMiddleware creates a new middleware instance. A nil limiter disables
// rate limiting; trustedProxies may be empty, in which case forwarding headers
// are ignored.
func NewMiddleware(authService *service.AuthService, authLimiter *security.RateLimiter, trustedProxies []*net.IPNet, allowedOrigins []string, logger zerolog.Logger) *Middleware {
	return &Middleware{
		authService:    authService,
		authLimiter:    authLimiter,
		trustedProxies: trustedProxies,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// RequireAuth rejects requests without a valid bearer token and stores the
// verified claims in the request context
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := security.TokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			respondWithError(w, r, http.StatusUnauthorized, msgUnauthorized, nil)
			return
		}

		claims, err := m.authService.VerifyToken(token)
		if err != nil {
			respondWithError(w, r, http.StatusUnauthorized, msgUnauthorized, nil)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		logger := zerolog.Ctx(ctx).With().Str("family_id", claims.FamilyID).Logger()
		next(w, r.WithContext(logger.WithContext(ctx)))
	}
}

// ClaimsFromContext retrieves the verified token claims from the request context
func ClaimsFromContext(ctx context.Context) *security.Claims {
	claims, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	if !ok {
		return nil
	}
	return claims
}

// RateLimit limits requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.authLimiter.Allow(security.ClientIP(r, m.trustedProxies)) {
			w.Header().Set("Retry-After", "60")
			respondWithError(w, r, http.StatusTooManyRequests, msgTooManyRequest, nil)
			return
		}
		next(w, r)
	}
}

// CORS sets the cross-origin headers for allowed origins and answers preflight
// requests
func (m *Middleware) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		if allowed := m.allowedOrigin(origin); allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")
			w.Header().Set("Access-Control-Max-Age", "86400")
			if allowed != "*" {
				w.Header().Add("Vary", "Origin")
			}
		} else {
			m.logger.Warn().
				Str("origin", origin).
				Str("path", r.URL.Path).
				Msg("CORS request rejected: origin not allowed")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) allowedOrigin(origin string) string {
	for _, o := range m.allowedOrigins {
		if o == "*" {
			return "*"
		}
		if strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}

type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	if w.status == 0 {
		w.status = statusCode
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

// Logging attaches a request-scoped logger with a request id to the context,
// then logs and records metrics for every request
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		reqLogger := m.logger.With().Str("request_id", requestID).Logger()
		r = r.WithContext(reqLogger.WithContext(r.Context()))

		rw := &responseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		if rw.status == 0 {
			rw.status = http.StatusOK
		}

		elapsed := time.Since(start)
		metrics.ObserveRequest(r.Method, routeOf(r), rw.status, elapsed)

		event := reqLogger.Info()
		if rw.status >= http.StatusInternalServerError {
			event = reqLogger.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.status).
			Int("bytes", rw.bytes).
			Dur("duration", elapsed).
			Msg("request")
	})
}

// routeOf returns the matched mux pattern without its method prefix, so
// metrics are labelled by route and not by raw path
func routeOf(r *http.Request) string {
	pattern := r.Pattern
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		pattern = pattern[i+1:]
	}
	return pattern
}
