package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4/middleware"
)

// CORSConfig returns the CORS policy for the API. The dashboard and the
// embeddable widget each run on their own origin; extra origins (a custom
// frontend URL in staging, for example) can be appended by the caller.
func CORSConfig(extraOrigins ...string) middleware.CORSConfig {
	origins := []string{
		"http://localhost:3000",
		"https://formlift.dev",
		"https://app.formlift.dev",
		"https://embed.formlift.dev",
	}
	origins = append(origins, extraOrigins...)

	return middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowCredentials: true,
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
		},
	}
}
