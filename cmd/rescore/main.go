// Command rescore rebuilds every user's leaderboard stats from the
// solutions, comments and votes tables.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emilythestrangee/designarena/backend/internal/config"
	"github.com/emilythestrangee/designarena/backend/internal/database"
	"github.com/emilythestrangee/designarena/backend/internal/score"
)

func main() {
	cfg, err := config.Load()
	if err != nil && !errors.Is(err, config.ErrMissingJWTSecret) {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	n, err := score.RebuildAll(ctx, db.GetDB())
	if err != nil {
		log.Printf("❌ Rebuilt %d users before failing: %v", n, err)
		db.Close()
		os.Exit(1)
	}
	log.Printf("✅ Rebuilt stats for %d users in %s", n, time.Since(start).Round(time.Millisecond))
}
