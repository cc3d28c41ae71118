package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/eyes-on-docs/app/tasks"
	"github.com/lysyi3m/eyes-on-docs/app/usage"
	"golang.org/x/time/rate"
)

const sessionCookie = "session-token"

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// identityMiddleware resolves the caller from the upstream session token,
// trying the session cookie first and the bearer token second. Callers
// without a valid token are anonymous.
func identityMiddleware(sessionSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, _ := c.Cookie(sessionCookie)

		identity := usage.Identity{Name: usage.AnonymousUser}
		for _, token := range []string{cookie, bearerToken(c)} {
			if token == "" {
				continue
			}
			resolved, err := usage.ResolveIdentity(sessionSecret, token)
			if err != nil {
				slog.Debug("Session token rejected", "error", err)
				continue
			}
			identity = resolved
			break
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

func identityFrom(c *gin.Context) usage.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(usage.Identity); ok {
			return identity
		}
	}
	return usage.Identity{Name: usage.AnonymousUser}
}

func sessionMiddleware(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if required && identityFrom(c).Anonymous() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// visitMiddleware records a visit for each successfully served feed page. The
// write happens on the worker pool and never affects the response.
func (h *Handler) visitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if h.visitRepo == nil || h.scheduler == nil || c.Writer.Status() != http.StatusOK {
			return
		}

		identity := identityFrom(c)
		req := feedRequest(c).Normalize()

		visit := usage.Visit{
			UserName:   identity.Name,
			UserEmail:  identity.Email,
			Path:       usage.PathUpdates,
			Product:    req.Product,
			Language:   req.Language,
			UpdateType: string(req.UpdateType),
			Page:       req.Page,
			Timestamp:  time.Now(),
		}

		if err := h.scheduler.EnqueueTask(tasks.NewRecordVisitTask(visit, h.visitRepo)); err != nil {
			slog.Warn("Failed to enqueue RecordVisitTask", "user", identity.Name, "error", err)
		}
	}
}

// usageGateMiddleware requires a usage token issued by POST /api/usage/auth.
func usageGateMiddleware(gate *usage.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Usage-Token")
		if token == "" {
			token = bearerToken(c)
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Usage token required",
				"message": "Provide the token from /api/usage/auth in X-Usage-Token header or Authorization: Bearer <token>",
			})
			c.Abort()
			return
		}

		if err := gate.Verify(token); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid usage token",
				"message": "The provided token is not valid or has expired",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		rate:     r,
		burst:    burst,
	}
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, l := range rl.limiters {
		if now.Sub(l.lastSeen) > 10*time.Minute {
			delete(rl.limiters, key)
		}
	}

	if l, exists := rl.limiters[ip]; exists {
		l.lastSeen = now
		return l.limiter
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters[ip] = &ipLimiter{limiter: limiter, lastSeen: now}
	return limiter
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getLimiter(c.ClientIP()).Allow() {
			retryAfter := max(int(1.0/float64(rl.rate)), 1)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts"})
			c.Abort()
			return
		}
		c.Next()
	}
}
