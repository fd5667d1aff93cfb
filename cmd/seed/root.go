package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"digital-checkout/internal/config"
	pg "digital-checkout/internal/infra/db/postgres"
	"digital-checkout/internal/infra/logging"
)

var rootCmd = &cobra.Command{
	Use:          "seed",
	Short:        "Seed the checkout database with catalog data, credits and dev tokens",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "overall deadline for the command")
}

// env is what every subcommand needs: loaded config, a logger and a deadline.
type env struct {
	cfg *config.Config
	log *zerolog.Logger
	ctx context.Context
}

func loadEnv(cmd *cobra.Command) (*env, context.CancelFunc, error) {
	path, _ := cmd.Flags().GetString("config")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	cfg, err := config.LoadConfig(path, false)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	return &env{cfg: cfg, log: logging.New(cfg.Log, false), ctx: ctx}, cancel, nil
}

// connect opens the pool and makes sure the schema exists.
func (e *env) connect() (*pgxpool.Pool, error) {
	if e.cfg.Storage.Driver != "postgres" {
		return nil, fmt.Errorf("seeding needs storage.driver=postgres, got %q", e.cfg.Storage.Driver)
	}
	pool, err := pg.Connect(e.ctx, e.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if err := pg.ApplySchema(e.ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
