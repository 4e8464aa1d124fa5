// cmd/server/app.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/farmchain/internal/config"
	"github.com/javajoker/farmchain/internal/database"
	"github.com/javajoker/farmchain/internal/i18n"
	"github.com/javajoker/farmchain/internal/registry"
	"github.com/javajoker/farmchain/internal/services"
)

var errNeedsDatabase = errors.New("command requires PERSISTENCE_DRIVER=postgres")

// app holds what every command shares once configuration is loaded.
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	registry *registry.Registry
	users    database.UserStore
	storage  *services.StorageService
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogging(cfg)
	return cfg, nil
}

func setupLogging(cfg *config.Config) {
	logrus.SetOutput(os.Stdout)

	if cfg.Log.Format == "json" || (cfg.Log.Format == "" && cfg.IsProduction()) {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logrus.WithField("level", cfg.Log.Level).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if !cfg.Database.UsesDatabase() {
		return nil, errNeedsDatabase
	}
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// newApp restores the registry from the database, or starts an empty one
// when running on the memory driver.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := i18n.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize i18n: %w", err)
	}

	storage, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, storage: storage}

	if !cfg.Database.UsesDatabase() {
		logrus.Warn("Running with in-memory persistence; products are lost on exit")
		a.registry = registry.New()
		a.users = database.NewMemoryUserStore()
		return a, nil
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	a.db = db

	if err := database.RunMigrations(db); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	store := database.NewProductStore(db, 5*time.Second)
	snapshot, err := store.Load(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	reg, err := registry.Restore(snapshot, registry.WithJournal(store))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to restore registry: %w", err)
	}
	a.registry = reg
	a.users = database.NewUserStore(db)

	logrus.WithFields(logrus.Fields{
		"products": reg.Len(),
		"next_id":  reg.NextID(),
	}).Info("Registry restored")

	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		database.Close(a.db)
	}
}
