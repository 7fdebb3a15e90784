package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tuannm99/coldb/internal"
	"github.com/tuannm99/coldb/internal/engine"
	"github.com/tuannm99/coldb/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	workDir := flag.String("data-dir", "", "Working directory for database files (overrides config)")
	describe := flag.Bool("describe", false, "Print the recovered catalog as JSON and exit")
	wipe := flag.Bool("wipe", false, "Delete every table image before starting")
	flag.Parse()

	cfg, err := internal.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *workDir != "" {
		cfg.Storage.Workdir = *workDir
	}

	closeLog, err := logging.Setup(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := engine.Open(ctx, cfg)
	if err != nil {
		slog.Error("coldbd.open", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if *wipe {
		if err := db.DeleteAll(); err != nil {
			slog.Error("coldbd.wipe", "err", err)
			os.Exit(1)
		}
	}

	if *describe {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(db.Catalog().Describe()); err != nil {
			slog.Error("coldbd.describe", "err", err)
		}
		return
	}

	fmt.Printf("%s started with data directory: %s\n", cfg.AppName, cfg.Storage.Workdir)
	<-ctx.Done()
	fmt.Println("Shutting down...")
}
