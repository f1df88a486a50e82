package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/tomurashigaraki22/ripple-websocket-server/internal/config"
	"github.com/tomurashigaraki22/ripple-websocket-server/internal/database"
	"github.com/tomurashigaraki22/ripple-websocket-server/internal/routes"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}
	db, err := database.Connect(context.Background(), cfg.DBUrl, cfg.DBMaxConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 3. Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(cors.New())
	app.Use(logger.New())
	app.Use(recover.New())

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	routes.RegisterRoutes(app, db)

	// 4. Start Server
	addr := ":" + cfg.Port
	if cfg.TLSEnabled() {
		log.Printf("WebSocket server running with TLS on port %s", cfg.Port)
		if err := app.ListenTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
		return
	}

	log.Printf("WebSocket server running on port %s", cfg.Port)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
