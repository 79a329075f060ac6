package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go-pos-ledger/internal/app"
	"go-pos-ledger/internal/handler"
	"go-pos-ledger/internal/service"
	"go-pos-ledger/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Config, logger, database and state documents
	a, err := app.Open(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to start")
	}
	defer a.Close()
	log := a.Log

	// 2. Setup WebSocket Hub
	wsHub := ws.NewHub(log)
	go wsHub.Run(ctx)

	// 3. Dependency Injection (Wiring Layers)
	authService := service.NewAuthService(a.Pos, log)
	invService := service.NewInventoryService(a.Pos, wsHub, log)
	saleService := service.NewSaleService(a.Pos, wsHub, log)
	storeService := service.NewStoreService(a.Pos, wsHub)
	userService := service.NewUserService(a.Pos, wsHub)
	reportService := service.NewReportService(a.Pos)
	backupService := service.NewBackupService(a.Pos, wsHub, log)
	resetService := service.NewResetService(a.Pos, wsHub, log)
	trackerService := service.NewTrackerService(a.Tracker, wsHub, log)

	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(authService, userService),
		Inventory: handler.NewInventoryHandler(invService),
		Sale:      handler.NewSaleHandler(saleService),
		Store:     handler.NewStoreHandler(storeService),
		User:      handler.NewUserHandler(userService),
		Report:    handler.NewReportHandler(reportService),
		Backup:    handler.NewBackupHandler(backupService, resetService, a.Pos.Location()),
		Tracker:   handler.NewTrackerHandler(trackerService),
		Dashboard: handler.NewDashboardHandler(service.NewDashboardService(a.Pos)),
		Role:      handler.NewRoleHandler(),
	}

	// 4. Setup Fiber
	server := fiber.New(fiber.Config{
		AppName:   "POS Ledger v1.0",
		BodyLimit: 32 * 1024 * 1024, // backups carry the full sales history
	})

	server.Use(requestid.New())
	server.Use(logger.New(logger.Config{Output: log.Writer()}))
	server.Use(recover.New())
	server.Use(cors.New(cors.Config{AllowOrigins: a.Config.Origins()}))

	// 5. Routes
	handler.Register(server, handlers, authService, a.Config.LoginRateLimit)

	// WebSocket Route
	server.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	server.Get("/ws", websocket.New(func(c *websocket.Conn) {
		select {
		case wsHub.Register <- c:
		case <-ctx.Done():
			return
		}
		defer func() {
			select {
			case wsHub.Unregister <- c:
			case <-ctx.Done():
			}
		}()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 6. Graceful Shutdown
	go func() {
		if err := server.Listen(":" + a.Config.Port); err != nil {
			log.WithError(err).Panic("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	cancel()
	if err := server.Shutdown(); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exited")
}
