package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityHeadersConfig controls the browser security headers set on every
// response. Empty fields fall back to the defaults below.
type SecurityHeadersConfig struct {
	ContentSecurityPolicy string
	ReferrerPolicy        string
	PermissionsPolicy     string
	FrameAncestors        string
}

// DefaultSecurityHeadersConfig returns the header set used in production.
// Forms are embedded on customer sites through the widget, so frame-ancestors
// stays open to https origins; everything else is locked to self.
func DefaultSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		ContentSecurityPolicy: "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; " +
			"img-src 'self' data: https:; connect-src 'self' https://api.stripe.com; " +
			"base-uri 'self'; form-action 'self'",
		ReferrerPolicy:    "strict-origin-when-cross-origin",
		PermissionsPolicy: "camera=(), microphone=(), geolocation=(), payment=(self)",
		FrameAncestors:    "https:",
	}
}

// SecurityHeaders sets CSP, referrer, permissions, and content-type sniffing
// headers on every response.
func SecurityHeaders(config SecurityHeadersConfig) echo.MiddlewareFunc {
	defaults := DefaultSecurityHeadersConfig()
	if config.ContentSecurityPolicy == "" {
		config.ContentSecurityPolicy = defaults.ContentSecurityPolicy
	}
	if config.ReferrerPolicy == "" {
		config.ReferrerPolicy = defaults.ReferrerPolicy
	}
	if config.PermissionsPolicy == "" {
		config.PermissionsPolicy = defaults.PermissionsPolicy
	}
	if config.FrameAncestors == "" {
		config.FrameAncestors = defaults.FrameAncestors
	}

	csp := config.ContentSecurityPolicy + "; frame-ancestors " + config.FrameAncestors

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("Content-Security-Policy", csp)
			h.Set("Referrer-Policy", config.ReferrerPolicy)
			h.Set("Permissions-Policy", config.PermissionsPolicy)
			h.Set("X-Content-Type-Options", "nosniff")
			return next(c)
		}
	}
}
