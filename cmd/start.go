package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"workspace-sync/core/loader"
	"workspace-sync/core/logger"
	"workspace-sync/core/middleware/auth"
	"workspace-sync/core/middleware/rayid"
	"workspace-sync/core/storage"
	"workspace-sync/feature/integrity"
	syncfeature "workspace-sync/feature/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "workspace-sync/docs/swagger"
)

// @title Workspace Sync API
// @version 1.0
// @description API for reconciling a Notion workspace into a tabular store.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sync server",
	Long:  `Starts the HTTP server, initializes all enabled features and schedules sync runs when configured.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load configuration, logger and clients
		a, err := bootstrap()
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		logg := a.logger
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		if err := a.cfg.Server.Validate(); err != nil {
			logg.Fatal("Invalid server configuration", zap.Error(err))
		}

		// 2. Optional report archive
		var archiveClient storage.Client
		if a.cfg.Server.ArchiveReports {
			if archiveClient, err = storage.NewClient(a.cfg.Storage); err != nil {
				logg.Fatal("Failed to create storage client", zap.Error(err))
			}
		}
		archive := syncfeature.ArchiveConfig{
			Enabled: a.cfg.Server.ArchiveReports,
			Bucket:  a.cfg.Storage.Bucket,
			Prefix:  a.cfg.Storage.ReportPrefix,
			Retain:  a.cfg.Storage.ReportRetain,
		}

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		// 3. Register features
		mgr := loader.NewManager(logg)
		syncFeature := syncfeature.NewFeature(a.engine, archiveClient, archive, logg)
		mgr.Register(syncFeature)
		mgr.Register(integrity.NewFeature(
			integrity.NewService(a.engine, a.store, a.ws, archiveClient, a.cfg.Storage, a.cfg.Sync, logg),
		))

		// RayID must be first to trace everything
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Swagger stays public
		app.Get("/swagger/*", swagger.HandlerDefault)

		app.Use(auth.New(a.cfg.Server.ApiKey))

		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 4. Scheduled runs
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if a.cfg.Server.SyncIntervalMinutes > 0 {
			go syncFeature.Service().Schedule(ctx, time.Duration(a.cfg.Server.SyncIntervalMinutes)*time.Minute)
		}

		// 5. Start server
		go func() {
			logg.Info("Starting server", zap.String("port", a.cfg.Server.Port))
			if err := app.Listen(":" + a.cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 6. Graceful shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		cancel()
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
