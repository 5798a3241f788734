// Package bootstrap opens the donation store selected by configuration.
// It is shared by the API server and the seed command.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kashyap0729/good-will-hunting/internal/config"
	"github.com/kashyap0729/good-will-hunting/internal/database"
	"github.com/kashyap0729/good-will-hunting/internal/repository"
)

// Store is an opened donation store plus its lifecycle hooks
type Store struct {
	repository.DonationStore
	Driver string
	Ping   func(ctx context.Context) error
	Close  func() error
}

// OpenStore connects the configured driver and applies migrations
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		mem := repository.NewMemoryDonationRepository()
		mem.SetLockWait(cfg.Donations.LockWait)
		slog.Warn("using in-memory store; data is lost on restart")
		return &Store{
			DonationStore: mem,
			Driver:        config.DriverMemory,
			Ping:          func(context.Context) error { return nil },
			Close:         func() error { return nil },
		}, nil

	case config.DriverSurreal:
		db := database.NewSurrealDB(database.Config{
			Host:      cfg.Database.Host,
			Port:      cfg.Database.Port,
			User:      cfg.Database.User,
			Password:  cfg.Database.Password,
			Namespace: cfg.Database.Namespace,
			Database:  cfg.Database.Database,
		})
		if err := db.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connect surrealdb: %w", err)
		}
		if err := database.ApplySurreal(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate surrealdb: %w", err)
		}
		slog.Info("connected to database",
			slog.String("driver", config.DriverSurreal),
			slog.String("host", cfg.Database.Host),
			slog.String("database", cfg.Database.Database),
		)
		return &Store{
			DonationStore: repository.NewDonationRepository(db),
			Driver:        config.DriverSurreal,
			Ping:          db.Ping,
			Close:         db.Close,
		}, nil

	case config.DriverPostgres:
		db, err := database.OpenPostgres(ctx, database.PostgresConfig{
			DSN:             cfg.Postgres.DSN,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.Postgres.Migrate {
			if err := database.ApplyPostgres(ctx, db); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		slog.Info("connected to database", slog.String("driver", config.DriverPostgres))
		return &Store{
			DonationStore: repository.NewPostgresDonationRepository(db),
			Driver:        config.DriverPostgres,
			Ping:          db.PingContext,
			Close:         db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
