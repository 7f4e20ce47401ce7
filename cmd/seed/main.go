package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-api/internal/repository"
	"github.com/noah-isme/enrollment-api/internal/seed"
	"github.com/noah-isme/enrollment-api/pkg/config"
	"github.com/noah-isme/enrollment-api/pkg/database"
	"github.com/noah-isme/enrollment-api/pkg/logger"
)

func main() {
	catalogPath := flag.String("catalog", "", "JSON catalog file; the built-in catalog is used when empty")
	migrate := flag.Bool("migrate", false, "apply the schema before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	entries := seed.DefaultCatalog
	if *catalogPath != "" {
		f, err := os.Open(*catalogPath)
		if err != nil {
			logr.Fatal("open catalog", zap.Error(err))
		}
		entries, err = seed.Decode(f)
		_ = f.Close()
		if err != nil {
			logr.Fatal("read catalog", zap.String("path", *catalogPath), zap.Error(err))
		}
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if *migrate || cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, cfg.Database.Driver); err != nil {
			logr.Fatal("failed to apply schema", zap.Error(err))
		}
	}

	if _, err := seed.Apply(ctx, repository.NewProvider(db, logr, nil), entries, logr); err != nil {
		logr.Fatal("seed failed", zap.Error(err))
	}
}
