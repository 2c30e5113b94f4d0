package main

import (
	"context"
	"flag"
	"os"

	"github.com/gartstein/empleados/internal/employee/config"
	"github.com/gartstein/empleados/internal/employee/db"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML configuration file")
	dir := flag.String("dir", "migrations", "directory holding the SQL migrations")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	repo, err := db.Connect(context.Background(), cfg.DBConfig(), nil, cfg.DBConnectTimeout, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer repo.Close()

	if err := repo.MigrateUp(*dir); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}
	logger.Info("Migrations applied successfully", zap.String("dir", *dir))
}
