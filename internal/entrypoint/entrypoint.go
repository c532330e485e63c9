package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/config"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/database"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/database/books"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/database/syncservers"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/fingerprint"
	http_controllers "github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/http"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/koreader"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/scheduler"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/settingsstore"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/syncer"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Run wires the sync engine and serves the host-facing HTTP API.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Everbound sync engine v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	booksRepo := books.NewRepository(db.DB)
	serversRepo := syncservers.NewRepository(db.DB)
	settingsStore := settingsstore.New(db)

	method := fingerprint.MethodBinary
	if cfg.Sync.Fingerprint == string(fingerprint.MethodFilename) {
		method = fingerprint.MethodFilename
	}
	client := koreader.NewClientWithMethod(method)

	debounce := cfg.Sync.Debounce
	if debounce <= 0 {
		debounce = syncer.DefaultDebounce
	}
	coordinator := syncer.NewCoordinatorWithDebounce(booksRepo, serversRepo, settingsStore, client, debounce)

	shelfSync := scheduler.NewShelfSyncScheduler(booksRepo, settingsStore, coordinator)
	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	defer cancelScheduler()
	if err := shelfSync.Start(schedulerCtx); err != nil {
		log.Printf("WARNING: shelf sync scheduler failed to start: %v", err)
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Sync:     http_controllers.NewSyncController(coordinator, booksRepo),
		Servers:  http_controllers.NewServersController(serversRepo, client),
		Settings: http_controllers.NewSettingsController(settingsStore),
		Health:   http_controllers.NewHealthController(db, version),
	})

	Serve(router, cfg, func(ctx context.Context) {
		shelfSync.Stop()
	})
}

// Serve runs the HTTP server until interrupted, then shuts down gracefully.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop the shelf sync scheduler)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}
