package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/shoplane/storefront-api/internal/auth"
	"github.com/shoplane/storefront-api/internal/cache"
	"github.com/shoplane/storefront-api/internal/config"
	"github.com/shoplane/storefront-api/internal/database"
	"github.com/shoplane/storefront-api/internal/handlers"
	"github.com/shoplane/storefront-api/internal/routes"
)

func main() {
	cfg := config.Load()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	auth.SetSecret(cfg.JWTSecret)

	db, err := database.Open(cfg.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	productCache := cache.New(cfg.RedisAddr, cfg.RedisPassword)
	defer productCache.Close()

	app := &handlers.Handlers{
		DB:    db,
		Cache: productCache,
		Cfg:   cfg,
	}

	router := routes.SetupRouter(app)

	log.Printf("Starting storefront API server on port %s...", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
