package http

import (
	"net/http"
	"strconv"
	"time"

	"identiscope/internal/domain"
	"identiscope/internal/infra/ratelimit"

	"github.com/gin-gonic/gin"
)

const (
	routeAnalyze        = "/analyze"
	routeDeletionSubmit = "/deletion"
	routeDeletionStatus = "/deletion/status"
	routeStats          = "/stats"
)

type routeLimit struct {
	requests int
	window   time.Duration
}

func (s *Server) initRateLimit() {
	s.limits = map[string]routeLimit{
		routeAnalyze:        {s.cfg.RateLimitAnalyzeRequests, time.Duration(s.cfg.RateLimitAnalyzeWindowSecs) * time.Second},
		routeDeletionSubmit: {s.cfg.RateLimitDeletionRequests, time.Duration(s.cfg.RateLimitDeletionWindowSecs) * time.Second},
		routeDeletionStatus: {s.cfg.RateLimitStatusRequests, time.Duration(s.cfg.RateLimitStatusWindowSecs) * time.Second},
		routeStats:          {s.cfg.RateLimitStatusRequests, time.Duration(s.cfg.RateLimitStatusWindowSecs) * time.Second},
	}
}

// limited applies the per-route fixed window. The endpoint key is the logical
// route so /deletion/<id> lookups share one counter per client.
func (s *Server) limited(routeID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.enforceRateLimit(c, routeID) {
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) enforceRateLimit(c *gin.Context, routeID string) bool {
	limit, ok := s.limits[routeID]
	if s.rateLimiter == nil || !ok || limit.requests <= 0 {
		return true
	}
	client := ratelimit.ClientKey(s.rateLimitSalt, s.edge.ClientIP(c.Request).String())

	decision := s.rateLimiter.Check(c.Request.Context(), client, routeID, limit.requests, limit.window)
	if decision.Degraded {
		if s.rateLimitFailClosed {
			writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable")
			return false
		}
		return true
	}
	writeRateLimitHeaders(c, decision, limit.window)
	if !decision.Allowed {
		writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
		return false
	}
	return true
}

func writeRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision, window time.Duration) {
	if decision.Limit > 0 {
		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			retryAfter := int64(time.Until(decision.ResetAt).Seconds() + 0.999)
			if retryAfter < 1 {
				retryAfter = 1
			}
			if ceiling := int64(window / time.Second); ceiling > 0 && retryAfter > ceiling {
				retryAfter = ceiling
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		}
	}
}
