package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows configured origins to call the API with cookies
// Empty origins list allows no cross-origin requests
func CORS(origins []string) func(http.Handler) http.Handler {
	// cors treats empty list as "allow all"
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		MaxAge:           3600,
		AllowCredentials: true,
	})

	return handler.Handler
}
