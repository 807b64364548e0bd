package rest

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/auth"
	prommetrics "github.com/bitelog/bitelog-api/internal/metrics"
	"github.com/bitelog/bitelog-api/pkg/logger"
)

const (
	requestIDKey    = "request_id"
	principalKey    = "principal"
	requestIDHeader = "X-Request-ID"
)

// RoleResolver looks up the stored role of a verified email.
type RoleResolver interface {
	Role(ctx context.Context, email string) (string, error)
}

// RequestID tags every request with an id, reusing the caller's when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// AccessLog logs one line per request.
func AccessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(requestIDKey)).
			Msg("HTTP request")
	}
}

// RequestTimeout bounds the context handed to services.
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RateLimiter limits requests per client IP.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Cleanup forgets every client once the table grows large.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.limiters) > 10000 {
		rl.limiters = make(map[string]*rate.Limiter)
	}
}

// Middleware returns the rate limiting gin handler.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getLimiter(c.ClientIP()).Allow() {
			prommetrics.RecordRateLimited()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "rate limit exceeded",
				"timestamp": time.Now().UTC(),
			})
			return
		}
		c.Next()
	}
}

// Authenticator turns bearer tokens into principals.
type Authenticator struct {
	verifier auth.Verifier
	roles    RoleResolver
	log      *logger.Logger
}

// NewAuthenticator creates a new authenticator.
func NewAuthenticator(verifier auth.Verifier, roles RoleResolver, log *logger.Logger) *Authenticator {
	return &Authenticator{verifier: verifier, roles: roles, log: log}
}

// RequireAuth rejects requests without a valid bearer token.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := a.authenticate(c)
		if err == nil && principal == nil {
			err = apperr.Unauthenticated("missing token")
		}
		if err != nil {
			a.abort(c, err)
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// OptionalAuth attaches a principal when a valid token is sent. Requests
// without a token pass as anonymous; an invalid token is still rejected.
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := a.authenticate(c)
		if err != nil {
			a.abort(c, err)
			return
		}
		if principal != nil {
			c.Set(principalKey, principal)
		}
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role. It must run after RequireAuth.
func (a *Authenticator) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !principalFrom(c).IsAdmin() {
			a.abort(c, apperr.Forbidden("admin access required"))
			return
		}
		c.Next()
	}
}

// authenticate returns nil, nil when no token was sent.
func (a *Authenticator) authenticate(c *gin.Context) (*auth.Principal, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, nil
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, apperr.Unauthenticated("authorization header must use the Bearer scheme")
	}

	ctx := c.Request.Context()
	email, err := a.verifier.Verify(ctx, strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return nil, err
	}
	role, err := a.roles.Role(ctx, email)
	if err != nil {
		return nil, err
	}
	return &auth.Principal{Email: email, Role: role}, nil
}

func (a *Authenticator) abort(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		a.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Failed to authenticate request")
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":     apperr.PublicMessage(err),
		"timestamp": time.Now().UTC(),
	})
}

// principalFrom returns the caller attached by the auth middleware, or nil.
func principalFrom(c *gin.Context) *auth.Principal {
	value, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	principal, _ := value.(*auth.Principal)
	return principal
}
