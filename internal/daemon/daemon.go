package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EmanAguilera/fiambond/internal/api"
	"github.com/EmanAguilera/fiambond/internal/app/lifecycle"
	"github.com/EmanAguilera/fiambond/internal/infra/cache"
	"github.com/EmanAguilera/fiambond/internal/infra/sqlite"
)

// Run starts the FiamBond daemon and blocks until SIGINT/SIGTERM or a fatal
// server error.
func Run(cfg Config) error {
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	db, err := sqlite.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	log.Printf("storage: sqlite at %s", cfg.Storage.DataDir)

	var backend cache.Cache
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rc.Ping(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		defer rc.Close()
		backend = rc
		log.Printf("cache: redis at %s", cfg.Redis.Addr)
	} else {
		backend = cache.NewMock()
		log.Printf("cache: in-process")
	}

	engine := lifecycle.New(db, db, db, cache.NewBalances(backend))

	srv := api.NewServer(engine, db, db, db)
	if cfg.Metrics.Enabled {
		srv.EnableMetrics()
	}
	if cfg.RateLimit.Enabled {
		limiter := api.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, time.Minute)
		defer limiter.Stop()
		srv.SetRateLimiter(limiter)
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("api: listening on http://%s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case sig := <-quit:
		log.Printf("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
