package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cocity-api/config"
	"cocity-api/db"
	"cocity-api/handler"
	"cocity-api/logger"
	"cocity-api/repository"
	"cocity-api/router"
	"cocity-api/service"

	"github.com/redis/go-redis/v9"
)

// Stores are the persistence collaborators of the auth and profile stacks.
type Stores struct {
	Users    repository.IUserRepository
	Tokens   repository.ITokenRepository
	Profiles repository.IProfileRepository
}

// NewHandler wires services, handlers and routes on top of stores.
func NewHandler(cfg *config.Config, stores Stores, clock service.Clock) (http.Handler, error) {
	tokenService, err := service.NewTokenService(cfg.JWT, clock)
	if err != nil {
		return nil, err
	}
	passwordService, err := service.NewPasswordService(cfg.Password)
	if err != nil {
		return nil, err
	}
	refreshService := service.NewRefreshTokenService(stores.Tokens, tokenService, clock)
	authService := service.NewAuthService(stores.Users, passwordService, tokenService, refreshService, clock)
	profileService := service.NewProfileService(stores.Users, stores.Profiles)

	return router.NewRouter(handler.NewAuthHandler(authService), handler.NewUserHandler(profileService), tokenService), nil
}

// newTokenStore picks the refresh token store named by token_store.driver.
// The returned closer releases the redis client, if one was opened.
func newTokenStore(ctx context.Context, cfg *config.Config, database *sql.DB) (repository.ITokenRepository, func(), error) {
	if cfg.TokenStore.Driver != config.TokenStoreRedis {
		return repository.NewTokenRepository(database), func() {}, nil
	}

	rdb, err := db.ConnectRedis(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewRedisTokenRepository(rdb), func() { closeRedis(rdb) }, nil
}

func closeRedis(rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		logger.Log.WithError(err).Warn("Failed to close redis client")
	}
}

func Run() {
	logger.Init()
	if err := config.LoadConfig("."); err != nil {
		logger.Log.Fatalf("Error loading configuration: %v", err)
	}
	cfg := &config.AppConfig
	logger.InitWithLevel(cfg.Log.Level)
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect(cfg)
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		logger.Log.Fatalf("Error running migrations: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tokens, closeTokens, err := newTokenStore(ctx, cfg, database)
	if err != nil {
		logger.Log.Fatalf("Error connecting to the token store: %v", err)
	}
	defer closeTokens()
	logger.Log.WithField("driver", cfg.TokenStore.Driver).Info("Refresh token store ready")

	stores := Stores{
		Users:    repository.NewUserRepository(database),
		Tokens:   tokens,
		Profiles: repository.NewProfileRepository(database),
	}
	h, err := NewHandler(cfg, stores, service.SystemClock{})
	if err != nil {
		logger.Log.Fatalf("Error building the auth stack: %v", err)
	}

	port := cfg.Server.Port
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Log.WithError(err).Error("Failed to start server")
		os.Exit(1)
	case <-ctx.Done():
	}

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
		return
	}

	logger.Log.Info("Server exited properly")
}
