package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/abrezinsky/zoolo/internal/app"
	"github.com/abrezinsky/zoolo/internal/config"
	"github.com/abrezinsky/zoolo/internal/logger"
	"github.com/abrezinsky/zoolo/internal/repository"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	yellow = "\033[33m"
	green  = "\033[32m"
	cyan   = "\033[36m"
	bold   = "\033[1m"
)

var (
	version = "dev"
)

// printBanner shows the brand and where the server listens
func printBanner(cfg *config.Config) {
	fmt.Printf("\n  %s%s%s %s%s\n", bold, yellow, cfg.Brand, version, reset)
	fmt.Printf("  %sport%s %d  %sdb%s %s  %stz%s %s\n\n",
		cyan, reset, cfg.Port,
		cyan, reset, cfg.DB,
		cyan, reset, cfg.Timezone)
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "zoolo: %v\n", err)
		os.Exit(2)
	}

	if cfg.ShowVersion {
		fmt.Printf("zoolo %s (sqlite %s)\n", version, repository.Version())
		os.Exit(0)
	}

	printBanner(cfg)

	appLog := logger.NewWithFormat(os.Stdout, logger.ParseLevel(cfg.LogLevel), logger.ParseFormat(cfg.LogFormat))
	if cfg.HTTPLog {
		appLog.EnableHTTPLogging()
	}

	a, err := app.New(appLog, cfg)
	if err != nil {
		log.Fatal("Failed to initialize application: ", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	password, created, err := a.Bootstrap(ctx)
	if err != nil {
		log.Fatal("Failed to create operator account: ", err)
	}
	if created {
		appLog.Info("Operator account created", "username", cfg.AdminUser)
		fmt.Printf("%s  Operator password: %s%s%s\n\n", green, yellow, password, reset)
	}

	if err := a.Run(ctx, cfg.Addr()); err != nil {
		appLog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
