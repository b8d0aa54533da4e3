/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the disbursement verification server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from the environment, then apply flags
  2. Build the logger, normalizer and eligibility engine
  3. Initialize the verification store (SQLite or memory)
  4. Wire the narrative enricher (genai when a key is set, Redis cache when
     an address is set, template otherwise)
  5. Start the refresh scheduler
  6. Configure HTTP router and start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides DISBURSEMENT_PORT)
  -db      SQLite database path (overrides DISBURSEMENT_DB)
           Use ":memory:" for in-memory SQLite, "memory" for no SQLite

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, close cache and database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/disbursement.db"

  # Strict renditions, English number formatting
  DISBURSEMENT_STRICT_RENDITIONS=true DISBURSEMENT_LOCALE=en-US ./server

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/disbursement-engine/api"
	"github.com/warp/disbursement-engine/cache"
	"github.com/warp/disbursement-engine/config"
	"github.com/warp/disbursement-engine/narrative"
	"github.com/warp/disbursement-engine/store/sqlite"
	"github.com/warp/disbursement-engine/verification"
	memstore "github.com/warp/disbursement-engine/verification/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, `SQLite database path ("memory" for no database)`)
	flag.Parse()
	cfg.Port, cfg.DBPath = *port, *dbPath

	logger, err := newLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	engine, err := cfg.Engine()
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	normalizer := cfg.Normalizer()

	// Initialize store
	var store verification.Store
	if cfg.UsesMemoryStore() {
		store = memstore.NewMemory()
		logger.Warn("using in-memory store; saved verifications are lost on exit")
	} else {
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer db.Close()
		store = db
	}

	svc := verification.NewService(store, engine, normalizer, logger.Named("verification"))

	enricher, closeEnricher := newEnricher(cfg, logger.Named("narrative"))
	defer closeEnricher()
	enricher.Normalizer = normalizer

	scheduler := verification.NewRefreshScheduler(svc, cfg.RefreshInterval)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(svc, enricher, logger.Named("api"))
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("db", cfg.DBPath),
			zap.String("locale", normalizer.Locale.Tag.String()),
			zap.String("rendition_rule", string(engine.Policy.RenditionRule)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newEnricher picks the narrative generator and cache from the configuration.
// The returned func releases whatever was opened.
func newEnricher(cfg config.Config, logger *zap.Logger) (*narrative.Enricher, func()) {
	closers := []func() error{}
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Debug("close failed", zap.Error(err))
			}
		}
	}

	var c cache.Cache
	if cfg.RedisAddr != "" {
		r := cache.NewRedis(cfg.RedisAddr, cfg.CacheTTL)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := r.Ping(ctx)
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, using memory cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			r.Close()
			c = cache.NewMemory()
		} else {
			closers = append(closers, r.Close)
			c = r
		}
	} else {
		c = cache.NewMemory()
	}

	var primary narrative.Generator
	if cfg.GenAIAPIKey != "" {
		g, err := narrative.NewGenAIGenerator(context.Background(), cfg.GenAIAPIKey, cfg.GenAIModel)
		if err != nil {
			logger.Warn("genai unavailable, using template narratives", zap.Error(err))
		} else {
			primary = g
			logger.Info("narratives via genai", zap.String("model", g.Name()))
		}
	}

	return narrative.NewEnricher(primary, c, cfg.NarrativeTimeout, logger), closeAll
}
