// Command migrate applies schema migrations to the configured database.
//
// Usage:
//
//	migrate [-dir migrations] <up|down|status|version>
//
// The database DSN comes from the regular application configuration
// (DATABASE_DSN or config.yaml).
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/mic-e/abrechnung/internal/app"
	"github.com/mic-e/abrechnung/internal/config"
)

func main() {
	dirFlag := flag.String("dir", "migrations", "directory with migration files")
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(*dirFlag))
	if err != nil {
		logger.Error("create migration provider", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := run(ctx, provider, command); err != nil {
		logger.Error("migration failed",
			slog.String("command", command),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("migration completed", slog.String("command", command))
}

func run(ctx context.Context, provider *goose.Provider, command string) error {
	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("applied %s\n", r.Source.Path)
		}
		return nil
	case "down":
		_, err := provider.Down(ctx)
		return err
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			state := "pending"
			if s.State == goose.StateApplied {
				state = "applied"
			}
			fmt.Printf("%-10s %s\n", state, s.Source.Path)
		}
		return nil
	case "version":
		version, err := provider.GetDBVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("version %d\n", version)
		return nil
	default:
		return fmt.Errorf("unknown command %q (want up, down, status or version)", command)
	}
}
