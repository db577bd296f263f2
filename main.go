package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/madisoncarter1234/fleetv3/internal/infrastructure/config"
	"github.com/madisoncarter1234/fleetv3/internal/infrastructure/telemetry"
	"github.com/madisoncarter1234/fleetv3/internal/service/audit"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	configPath := flag.String("config", "", "path to YAML configuration file")
	batchPath := flag.String("batch", "", "path to normalized batch JSON (default stdin)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(telemetry.SetupLogger(cfg.LogLevel))

	if err := run(ctx, cfg, *batchPath); err != nil {
		slog.Error("audit run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, batchPath string) error {
	slog.Info("starting fleet audit engine",
		"version", cfg.Version,
		"environment", cfg.Environment)

	var req audit.AuditRequest
	if batchPath != "" {
		data, err := os.ReadFile(batchPath)
		if err != nil {
			return fmt.Errorf("reading batch file: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("parsing batch file %s: %w", batchPath, err)
		}
	} else {
		if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
			return fmt.Errorf("parsing batch from stdin: %w", err)
		}
	}

	svc, err := audit.NewService(cfg, slog.Default())
	if err != nil {
		return err
	}

	report, err := svc.Run(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
