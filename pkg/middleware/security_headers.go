package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityHeadersConfig overrides the response policies. Blank fields keep
// the defaults.
type SecurityHeadersConfig struct {
	ContentSecurityPolicy string
	ReferrerPolicy        string
	PermissionsPolicy     string
}

// DefaultSecurityHeadersConfig locks everything down: the service only
// answers JSON to the CRM and to admin tooling.
func DefaultSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'",
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "camera=(), microphone=(), geolocation=(), payment=()",
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// SecurityHeaders stamps the configured policies and nosniff on every
// response, including error responses.
func SecurityHeaders(config SecurityHeadersConfig) echo.MiddlewareFunc {
	def := DefaultSecurityHeadersConfig()
	headers := [][2]string{
		{"Content-Security-Policy", orDefault(config.ContentSecurityPolicy, def.ContentSecurityPolicy)},
		{"Referrer-Policy", orDefault(config.ReferrerPolicy, def.ReferrerPolicy)},
		{"Permissions-Policy", orDefault(config.PermissionsPolicy, def.PermissionsPolicy)},
		{echo.HeaderXContentTypeOptions, "nosniff"},
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range headers {
				h.Set(kv[0], kv[1])
			}
			return next(c)
		}
	}
}
