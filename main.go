package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/averose/craftmarket-backend/auth/middleware"
	"github.com/averose/craftmarket-backend/config"
	"github.com/averose/craftmarket-backend/downloads"
	"github.com/averose/craftmarket-backend/handlers"
	"github.com/averose/craftmarket-backend/initializers"
	"github.com/averose/craftmarket-backend/jobs"
	"github.com/averose/craftmarket-backend/routes"
	"github.com/averose/craftmarket-backend/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	db := initializers.ConnectToDatabase(cfg.DatabaseURL)
	backend := initializers.NewStorageBackend(cfg)

	if cfg.Storage.Driver == config.DriverLocal {
		jobs.StartLocalOrphanSweep(db, cfg.Storage.LocalDir)
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.RateLimit(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst))

	resolver := downloads.NewResolver(db)
	recorder := downloads.NewRecorder(db)

	h := routes.Handlers{
		Auth:     handlers.NewAuthHandler(db, cfg),
		Download: handlers.NewDownloadHandler(resolver, recorder, backend, cfg),
		Upload:   handlers.NewUploadHandler(backend, cfg),
		Product:  handlers.NewProductHandler(db, cfg),
	}
	if local, ok := backend.(*storage.LocalBackend); ok {
		h.Local = local
	}

	routes.Register(router, cfg.JWTSecret, h)

	log.Printf("listening on :%s", cfg.Port)
	log.Fatal(router.Run(":" + cfg.Port))
}
