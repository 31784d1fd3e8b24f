package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vaultkeep/vaultkeep/internal/admincli"
	"github.com/vaultkeep/vaultkeep/internal/logging"
	"github.com/vaultkeep/vaultkeep/internal/server/config"
	"github.com/vaultkeep/vaultkeep/internal/server/repositories/repomanager"
	"github.com/vaultkeep/vaultkeep/internal/server/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db open error: %w", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	authService, err := services.NewAuthService(db, rm, logger, cfg)
	if err != nil {
		return err
	}

	app := admincli.NewApp(authService, os.Stdin, os.Stdout)
	return app.Run(ctx, commandArgs(os.Args[1:]))
}

// commandArgs strips the config-level flags so only the subcommand and its
// own flags reach the CLI dispatcher.
func commandArgs(args []string) []string {
	out := make([]string, 0, len(args))
	skip := map[string]bool{"-d": true, "-s": true, "-t": true, "-r": true, "-l": true, "-c": true, "-config": true}
	for i := 0; i < len(args); i++ {
		if skip[args[i]] {
			i++ // consume the flag's value as well
			continue
		}
		out = append(out, args[i])
	}
	return out
}
