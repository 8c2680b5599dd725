package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wakegate/wakegate/internal/config"
	"github.com/wakegate/wakegate/internal/debughttp"
	ilog "github.com/wakegate/wakegate/internal/log"
	"github.com/wakegate/wakegate/internal/registry"
	"github.com/wakegate/wakegate/internal/server"
	"github.com/wakegate/wakegate/internal/store/sqlite"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// A missing .env file is fine; environment variables still apply.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "dotenv error:", err)
		return 2
	}

	cfg, err := config.ParseFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return 2
	}
	logger := ilog.New(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db error:", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	reg, err := registry.Open(cfg.RegistryPath, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "registry error:", err)
		return 1
	}
	logger.Info("registry loaded", "path", cfg.RegistryPath, "domains", len(reg.Snapshot().Domains))

	if err := debughttp.Start(ctx, cfg.PprofAddr, logger); err != nil {
		fmt.Fprintln(os.Stderr, "pprof error:", err)
		return 1
	}

	s := server.New(cfg, reg, store, logger)
	if err := s.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "server error:", err)
		return 1
	}
	logger.Info("shutdown complete")
	return 0
}
