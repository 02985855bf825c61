package handlers

import (
	"database/sql"

	"github.com/shoplane/storefront-api/internal/cache"
	"github.com/shoplane/storefront-api/internal/config"
)

// Handlers holds every dependency the HTTP handlers need.
type Handlers struct {
	DB    *sql.DB
	Cache *cache.Cache
	Cfg   config.Config
}
