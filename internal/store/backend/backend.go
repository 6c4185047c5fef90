// Package backend opens the record store named by a DATABASE_URL.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/joao-fontenele/storefront-api/internal/store"
	"github.com/joao-fontenele/storefront-api/internal/store/memstore"
	"github.com/joao-fontenele/storefront-api/internal/store/mongo"
	"github.com/joao-fontenele/storefront-api/internal/store/postgres"
)

// Open picks the backend from the URL scheme: postgres, mongodb or memory.
func Open(ctx context.Context, databaseURL string) (*store.Store, error) {
	scheme, _, ok := strings.Cut(databaseURL, "://")
	if !ok {
		return nil, fmt.Errorf("DATABASE_URL has no scheme")
	}

	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return postgres.Open(ctx, databaseURL)
	case "mongodb", "mongodb+srv":
		return mongo.Open(ctx, databaseURL, "")
	case "memory":
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme %q", scheme)
	}
}
