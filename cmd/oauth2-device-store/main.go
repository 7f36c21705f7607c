// Command oauth2-device-store runs the verification and approval service for
// the device authorization grant: users visit it on a second device, enter
// their user code, and approve or deny the waiting session. Token issuance
// happens in the protocol engine, which shares the same store through the
// repository package.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"

	"github.com/wrale/oauth2-device-store/devicecode"
	"github.com/wrale/oauth2-device-store/repository"
)

// Version is set by the build process
var Version = "dev"

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		logger.Fatalf("Error loading configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("Error creating store: %v", err)
	}
	defer cleanup()

	repo := repository.New(store,
		repository.ClientManagerFunc(lookupClient),
		repository.StringScopeConverter{},
		repository.ClientRepositoryFunc(buildClientEntity),
		repository.WithVerificationURI(cfg.BaseURL+"/device"),
		repository.WithDefaultInterval(int(cfg.PollInterval.Seconds())),
	)

	sweeper := devicecode.NewSweeper(store, cfg.SweepInterval, logger)
	go sweeper.Run(ctx)

	srv := newServer(cfg, repo, store, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Printf("Server listening on port %d", cfg.Port)
		serverErrors <- httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatalf("Error starting server: %v", err)

	case <-shutdown:
		logger.Println("Starting shutdown")
		cancel() // stop the sweeper

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Error shutting down server: %v", err)
			if err := httpServer.Close(); err != nil {
				logger.Printf("Error closing server: %v", err)
			}
		}
	}
}

// newStore builds the configured store backend and returns a cleanup
// function for its connections.
func newStore(ctx context.Context, cfg Config) (devicecode.Store, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		return devicecode.NewMemoryStore(), func() {}, nil

	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing Redis URL: %w", err)
		}
		client := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connecting to Redis: %w", err)
		}
		cleanup := func() {
			if err := client.Close(); err != nil {
				log.Printf("Error closing Redis connection: %v", err)
			}
		}
		return devicecode.NewRedisStore(client), cleanup, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to Postgres: %w", err)
		}
		store := devicecode.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// lookupClient resolves client references for persisted drafts. Client
// registration lives in the engine, so the service accepts any identifier
// the engine already vetted.
func lookupClient(_ context.Context, id string) (*repository.Client, error) {
	return &repository.Client{ID: id}, nil
}

// buildClientEntity materializes client entities for outward translation.
func buildClientEntity(_ context.Context, id string) (repository.ClientEntity, error) {
	return repository.StaticClient(id), nil
}
