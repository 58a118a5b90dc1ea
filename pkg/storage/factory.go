package storage

import (
	"fmt"

	"github.com/absmach/flcoord/pkg/storage/badger"
	"github.com/absmach/flcoord/pkg/storage/postgres"
	"github.com/absmach/flcoord/pkg/storage/sqlite"
)

type Config struct {
	Type string `env:"FLCOORD_STORAGE_TYPE" envDefault:"fs"`

	FSPath string `env:"FLCOORD_DATA_DIR" envDefault:"./data"`

	PostgresHost    string `env:"FLCOORD_POSTGRES_HOST"    envDefault:"localhost"`
	PostgresPort    string `env:"FLCOORD_POSTGRES_PORT"    envDefault:"5432"`
	PostgresUser    string `env:"FLCOORD_POSTGRES_USER"    envDefault:"flcoord"`
	PostgresPass    string `env:"FLCOORD_POSTGRES_PASS"    envDefault:"flcoord"`
	PostgresDB      string `env:"FLCOORD_POSTGRES_DB"      envDefault:"flcoord"`
	PostgresSSLMode string `env:"FLCOORD_POSTGRES_SSLMODE" envDefault:"disable"`

	SQLitePath string `env:"FLCOORD_SQLITE_PATH" envDefault:"./flcoord.db"`

	BadgerPath string `env:"FLCOORD_BADGER_PATH" envDefault:"./data/badger"`
}

// NewRoundStore opens the configured backend and enforces that every
// submission carries exactly dim values.
func NewRoundStore(cfg Config, dim int) (RoundStore, error) {
	var (
		store RoundStore
		err   error
	)

	switch cfg.Type {
	case "postgres":
		store, err = newPostgresStore(cfg)
	case "sqlite":
		store, err = newSQLiteStore(cfg)
	case "badger":
		store, err = newBadgerStore(cfg)
	case "fs":
		store, err = NewFSStorage(cfg.FSPath)
	case "memory":
		store = NewInMemoryStorage()
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	return WithDimension(store, dim), nil
}

func newPostgresStore(cfg Config) (RoundStore, error) {
	db, err := postgres.NewDatabase(
		cfg.PostgresHost,
		cfg.PostgresPort,
		cfg.PostgresUser,
		cfg.PostgresPass,
		cfg.PostgresDB,
		cfg.PostgresSSLMode,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return postgres.NewSubmissionRepository(db), nil
}

func newSQLiteStore(cfg Config) (RoundStore, error) {
	db, err := sqlite.NewDatabase(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	return sqlite.NewSubmissionRepository(db), nil
}

func newBadgerStore(cfg Config) (RoundStore, error) {
	db, err := badger.NewDatabase(cfg.BadgerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return badger.NewSubmissionRepository(db), nil
}
