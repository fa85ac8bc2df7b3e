package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/geocoder89/garbagewatch/internal/config"
	"github.com/geocoder89/garbagewatch/internal/db"
	"github.com/geocoder89/garbagewatch/internal/observability"
)

func main() {
	command := flag.String("command", "up", "migrate command (up|status|down)")
	timeout := flag.Duration("timeout", time.Minute, "command timeout")
	target := flag.Int64("target", 0, "target version for down command (optional)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env).With("component", "migrate")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		log.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	m := db.NewMigrator(pool, log)

	switch *command {
	case "up":
		err = m.Up(ctx)
	case "status":
		err = m.Status(ctx)
	case "down":
		err = m.Down(ctx, *target)
	default:
		err = fmt.Errorf("unsupported command %q", *command)
	}

	if err != nil {
		log.Error("migration command failed", "command", *command, "err", err)
		pool.Close()
		os.Exit(1)
	}

	log.Info("migration command completed", "command", *command)
}
