// Package db opens the repository backend selected by configuration.
package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/unionportal/ballot-system/internal/core/ports"
	"github.com/unionportal/ballot-system/internal/infrastructure/config"
	"github.com/unionportal/ballot-system/internal/infrastructure/db/memory"
	mongodb "github.com/unionportal/ballot-system/internal/infrastructure/db/mongo"
	"github.com/unionportal/ballot-system/internal/infrastructure/db/postgres"
)

// Stores bundles the repositories of one backend.
type Stores struct {
	Driver     string
	Codes      ports.CodeRepository
	Identities ports.IdentityRepository
	Ballots    ports.BallotRepository

	// Ping checks the backend; nil for the in-memory store.
	Ping  func(ctx context.Context) error
	Close func(ctx context.Context) error
}

// Open connects to the backend named by cfg.StoreDriver and prepares its
// schema or indexes.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return openMemory(), nil
	case config.DriverMongo:
		return openMongo(ctx, cfg.Mongo)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg.Postgres, log)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func openMemory() *Stores {
	store := memory.NewStore()
	return &Stores{
		Driver:     config.DriverMemory,
		Codes:      store,
		Identities: store.Identities(),
		Ballots:    store,
		Close:      func(context.Context) error { return nil },
	}
}

func openMongo(ctx context.Context, cfg config.MongoConfig) (*Stores, error) {
	client, database, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.URI, Database: cfg.Database})
	if err != nil {
		return nil, err
	}
	if err := mongodb.EnsureIndexes(ctx, database); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &Stores{
		Driver:     config.DriverMongo,
		Codes:      mongodb.NewCodeRepository(database),
		Identities: mongodb.NewIdentityRepository(database),
		Ballots:    mongodb.NewBallotRepository(database),
		Ping: func(ctx context.Context) error {
			return database.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
		},
		Close: client.Disconnect,
	}, nil
}

func openPostgres(ctx context.Context, cfg config.PostgresConfig, log zerolog.Logger) (*Stores, error) {
	pool, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.DSN}, log)
	if err != nil {
		return nil, err
	}
	if err := postgres.AutoMigrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Stores{
		Driver:     config.DriverPostgres,
		Codes:      postgres.NewCodeRepository(pool),
		Identities: postgres.NewIdentityRepository(pool),
		Ballots:    postgres.NewBallotRepository(pool),
		Ping:       pool.Ping,
		Close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}
