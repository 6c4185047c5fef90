package main

import (
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storefront-api/internal/auth"
	"github.com/joao-fontenele/storefront-api/internal/catalog"
	"github.com/joao-fontenele/storefront-api/internal/config"
	"github.com/joao-fontenele/storefront-api/internal/httpx"
	"github.com/joao-fontenele/storefront-api/internal/orders"
	"github.com/joao-fontenele/storefront-api/internal/store"
	"github.com/joao-fontenele/storefront-api/internal/telemetry"
	"github.com/joao-fontenele/storefront-api/internal/uploads"
	"github.com/joao-fontenele/storefront-api/internal/users"
)

// newRouter mounts every route and puts request logging, CORS and the
// authorization gate in front of the mux, in that order.
func newRouter(cfg *config.Config, st *store.Store, images uploads.ImageStore, uploadDir string,
	logger *slog.Logger, orderOpts ...orders.Option,
) http.Handler {
	mux := http.NewServeMux()
	wrap := telemetry.WithHTTPRoute

	catalog.NewHandler(catalog.NewService(st, images, logger), logger).Register(mux, cfg.APIURL, wrap)
	users.NewHandler(users.NewService(st, auth.NewIssuer(cfg.JWTSecret), logger), logger).Register(mux, cfg.APIURL, wrap)
	orders.NewHandler(orders.NewService(st, logger, orderOpts...), logger).Register(mux, cfg.APIURL, wrap)

	if uploadDir != "" {
		mux.Handle("GET "+uploads.PublicPath, http.StripPrefix(uploads.PublicPath, http.FileServer(http.Dir(uploadDir))))
	}

	gate := auth.NewGate(auth.PublicRoutes(cfg.APIURL), cfg.JWTSecret)
	return httpx.LogRequests(httpx.CORS(cfg.CORSOrigins, httpx.Chain(mux, logger, gate)), logger)
}
