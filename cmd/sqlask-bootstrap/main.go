package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sqlask/sqlask/internal/config"
	"github.com/sqlask/sqlask/internal/store"
	"github.com/sqlask/sqlask/internal/store/seed"
)

func main() {
	direction := flag.String("direction", "reset", "seed direction: up|down|reset")
	steps := flag.Int("steps", 0, "number of seed steps; 0 means all for up, 1 for down")
	dir := flag.String("dir", "", "directory holding a sql/ folder of seed files; empty uses the built-in seeds")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "dotenv error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv("sqlask-bootstrap")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	fileStore, err := store.New(store.Config{Driver: cfg.Store.Driver, Path: cfg.Store.Path, Create: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "store error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	runner := seed.NewRunner()
	if *dir != "" {
		runner = seed.NewRunnerFromFS(os.DirFS(*dir))
	}
	if *direction == "reset" {
		summary, err := runner.Bootstrap(ctx, fileStore)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("rolled back %d seed(s), applied %d seed(s) in %s\n", summary.RolledBack, summary.Applied, cfg.Store.Path)
		return
	}

	db, err := fileStore.Open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store open error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	switch *direction {
	case "up":
		applied, err := runner.Up(ctx, db, *steps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed up failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("applied %d seed(s)\n", applied)
	case "down":
		rolledBack, err := runner.Down(ctx, db, *steps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed down failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("rolled back %d seed(s)\n", rolledBack)
	default:
		fmt.Fprintf(os.Stderr, "invalid direction: %s\n", *direction)
		os.Exit(2)
	}
}
