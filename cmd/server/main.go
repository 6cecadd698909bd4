package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sustain_score_app_go/config"
	"sustain_score_app_go/db"
	"sustain_score_app_go/handlers"
	"sustain_score_app_go/middleware"
	"sustain_score_app_go/models"
	"sustain_score_app_go/services"
	"sustain_score_app_go/services/jobs"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.DBDriver, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(&models.Project{}, &models.TaxonomyVersion{}, &models.AuditLog{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Taxonomy: the latest published version, or the seed document on first start
	seed, err := services.LoadTaxonomySeed(cfg.TaxonomyPath)
	if err != nil {
		log.Fatalf("Failed to read taxonomy: %v", err)
	}
	taxonomy := services.NewTaxonomyService(db.DB)
	if err := taxonomy.Load(ctx, seed); err != nil {
		log.Fatalf("Failed to load taxonomy: %v", err)
	}

	projects := services.NewProjectService(services.NewGormProjectStore(db.DB), taxonomy, db.DB)
	if notifier := services.NewEmailNotifier(cfg); notifier != nil {
		projects.Notifier = notifier
	}
	sessions := services.NewSessionRegistry()
	storage := services.InitializeStorage(cfg)

	app := handlers.NewApp(cfg, projects, sessions, storage)
	exports := middleware.NewExportRateLimiter()

	// Background jobs: idle session pruning and the nightly report archive
	scheduler, err := jobs.StartScheduler(cfg, jobs.Deps{Sessions: sessions, Projects: projects, Storage: storage})
	if err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	if _, err := scheduler.AddFunc("@every 5m", func() { exports.Sweep() }); err != nil {
		log.Printf("[CRON] Failed to schedule rate limit sweep: %v", err)
	}
	defer scheduler.Stop()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomiddleware.RequestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{AllowOrigins: cfg.AllowedOrigins}))

	handlers.Register(e, app, exports)

	// Start server
	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
}
