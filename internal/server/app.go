// Package server wires the auth core together: configuration, logging,
// store bootstrap with migrations, the auth service, and the background
// session sweeper, plus graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vaultkeep/vaultkeep/internal/logging"
	"github.com/vaultkeep/vaultkeep/internal/server/config"
	"github.com/vaultkeep/vaultkeep/internal/server/repositories/repomanager"
	"github.com/vaultkeep/vaultkeep/internal/server/services"
	"github.com/vaultkeep/vaultkeep/internal/server/sweeper"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	authService *services.AuthService
	sweeper     *sweeper.Sweeper
}

// NewApp builds the application from config: opens the database, runs
// migrations, and constructs the service layer.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With("app", cfg.AppName)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	authService, err := services.NewAuthService(db, rm, logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("auth service init error: %w", err)
	}

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		authService: authService,
		sweeper:     sweeper.New(db, rm, logger, cfg.SweepInterval),
	}, nil
}

// AuthService exposes the service layer to the consuming transport.
func (app *App) AuthService() *services.AuthService {
	return app.authService
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the background workers and blocks until an OS signal or ctx
// cancellation, then closes the store.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting", "debug", app.config.Debug)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err)
	}
	app.logger.Info(ctx, "stopped")
}
