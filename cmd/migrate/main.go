package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/onetop21/mcp-server-hub-sub003/internal/config"
	domainerrors "github.com/onetop21/mcp-server-hub-sub003/internal/domain/errors"
	"github.com/onetop21/mcp-server-hub-sub003/internal/infrastructure/migrations"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall deadline for the chosen action")
	flag.Parse()

	// Positional args: [action]
	action := "up"
	if args := flag.Args(); len(args) >= 1 && args[0] != "" {
		action = strings.ToLower(args[0])
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.Database.URL(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	if err != nil {
		log.Fatalf("connect: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	runner := migrations.NewRunner(db)

	switch action {
	case "up":
		if err := runner.Run(ctx); err != nil {
			log.Fatalf("up: %v", err)
		}
		log.Println("Up migrations completed.")

	case "rollback":
		rolled, err := rollback(ctx, runner)
		if err != nil {
			log.Fatalf("rollback: %v", err)
		}
		if !rolled {
			log.Println("Ledger is empty. Nothing to roll back.")
			return
		}
		log.Println("Rolled back the most recent migration.")

	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			log.Fatalf("status: %v", err)
		}
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied " + s.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%-40s %s\n", s.Name, state)
		}

	case "ping":
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			log.Fatalf("ping: %v", err)
		}
		log.Println("Database reachable.")

	default:
		log.Printf("unknown action %q. Use: up | rollback | status | ping", action)
		os.Exit(2)
	}
}

// rollback reports whether a migration was actually rolled back; an empty
// ledger is not an error.
func rollback(ctx context.Context, runner *migrations.Runner) (bool, error) {
	err := runner.RollbackLast(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domainerrors.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
