package httpx

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS answers preflight requests itself and tags every other response with
// the allowed origin before handing it to next. origins may contain "*".
func CORS(origins []string, next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	}).Handler(next)
}
