package security

import (
	"net/http"
	"strings"
)

const (
	contentSecurityPolicy = "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self' data:; connect-src 'self'; object-src 'none'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'"
	permissionsPolicy     = "camera=(), microphone=(), geolocation=()"
	strictTransport       = "max-age=31536000; includeSubDomains"
)

// HeadersFor returns the security headers every response carries.
// HSTS is only sent when the request arrived over TLS.
func HeadersFor(r *http.Request, trustProxy bool) map[string]string {
	headers := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"X-XSS-Protection":        "1; mode=block",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"Permissions-Policy":      permissionsPolicy,
		"Content-Security-Policy": contentSecurityPolicy,
	}
	if IsSecure(r, trustProxy) {
		headers["Strict-Transport-Security"] = strictTransport
	}
	return headers
}

// IsSecure reports whether the request came in over TLS. X-Forwarded-Proto is
// only believed behind a trusted proxy.
func IsSecure(r *http.Request, trustProxy bool) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	if trustProxy {
		proto := strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-Proto"), ",")[0])
		return strings.EqualFold(proto, "https")
	}
	return false
}

// CORS describes the cross-origin policy for API routes
type CORS struct {
	production bool
	allowed    map[string]struct{}
}

func NewCORS(production bool, allowedOrigins []string) *CORS {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.TrimSpace(o)
		if o != "" {
			allowed[o] = struct{}{}
		}
	}
	return &CORS{production: production, allowed: allowed}
}

// HeadersFor returns the CORS headers for a request origin. Outside production
// every origin is allowed; in production only configured origins are echoed.
func (c *CORS) HeadersFor(origin string) map[string]string {
	headers := map[string]string{
		"Access-Control-Allow-Methods": "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		"Access-Control-Allow-Headers": "Authorization, Content-Type, X-CSRF-Token, X-Requested-With",
		"Access-Control-Max-Age":       "600",
	}

	if !c.production {
		headers["Access-Control-Allow-Origin"] = "*"
		return headers
	}

	headers["Vary"] = "Origin"
	origin = strings.TrimSpace(origin)
	if _, ok := c.allowed[origin]; ok && origin != "" {
		headers["Access-Control-Allow-Origin"] = origin
		headers["Access-Control-Allow-Credentials"] = "true"
	}
	return headers
}
