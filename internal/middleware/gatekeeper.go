package middleware

import (
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/aman-churiwal/gatekeeper/internal/apperror"
	"github.com/aman-churiwal/gatekeeper/internal/ratelimit"
	"github.com/aman-churiwal/gatekeeper/internal/security"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RetryAfterSeconds is the fixed hint sent with every 429
const RetryAfterSeconds = 60

type GatekeeperConfig struct {
	Limiter  ratelimit.Limiter
	Recorder ratelimit.Recorder
	CORS     *security.CORS

	// APIPrefix marks routes that get rate limit metadata and CORS headers
	APIPrefix string

	// Peers allowed to set forwarding headers, empty trusts none
	TrustedProxies []netip.Prefix

	Now func() time.Time
}

// Gatekeeper admits the request against its endpoint policy, then stamps the
// security headers every later response carries. A rejected request is
// answered with 429 here and never reaches a route.
func Gatekeeper(cfg GatekeeperConfig) gin.HandlerFunc {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api"
	}
	if cfg.CORS == nil {
		cfg.CORS = security.NewCORS(false, nil)
	}

	rejectLog := &rate.Sometimes{Interval: time.Second}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		key := ClientKey(c)

		decision := cfg.Limiter.Decide(key, path, cfg.Now())
		if !decision.Allowed {
			if cfg.Recorder != nil {
				cfg.Recorder.Record(decision.Policy.Name)
			}
			rejectLog.Do(func() {
				log.Printf("[%s] rate limited %s on policy %s", c.GetString("request_id"), key, decision.Policy.Name)
			})

			c.Header("Retry-After", strconv.Itoa(RetryAfterSeconds))
			c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Policy.Requests))
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apperror.Body{
				Success: false,
				Error: apperror.ErrorBody{
					Message: "Too many requests, please try again later",
					Code:    "RATE_LIMITED",
				},
			})
			return
		}

		for name, value := range security.HeadersFor(c.Request, fromTrustedProxy(c, cfg.TrustedProxies)) {
			c.Header(name, value)
		}

		if isAPIPath(path, cfg.APIPrefix) {
			c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Policy.Requests))
			c.Header("X-RateLimit-Window", strconv.FormatInt(decision.Policy.WindowMs(), 10))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			for name, value := range cfg.CORS.HeadersFor(c.GetHeader("Origin")) {
				c.Header(name, value)
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// ClientKey is the client IP, joined with the user id when a principal is known
func ClientKey(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	if p := PrincipalFrom(c); p != nil && p.ID != "" {
		return ip + ":" + p.ID
	}
	return ip
}

func fromTrustedProxy(c *gin.Context, proxies []netip.Prefix) bool {
	if len(proxies) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(c.RemoteIP())
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func isAPIPath(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}
