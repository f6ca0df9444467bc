package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sqlask/sqlask/internal/cli/sqlaskctl"
	"github.com/sqlask/sqlask/internal/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "dotenv error: %v\n", err)
		os.Exit(1)
	}
	options, err := sqlaskctl.OptionsFromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}
	options.Stdout = os.Stdout
	options.Stderr = os.Stderr
	options.Spinner = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := sqlaskctl.Run(ctx, os.Args[1:], options)
	stop()
	os.Exit(code)
}
