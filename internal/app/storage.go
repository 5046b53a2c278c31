package app

import (
	"context"
	"errors"
	"fmt"

	"vendorq/internal/config"
	"vendorq/internal/infra/persistence/memory"
	"vendorq/internal/infra/persistence/postgres"
	"vendorq/internal/infra/persistence/sqlite"
	"vendorq/internal/secrets"
	"vendorq/pkg/domain"
)

// CredentialSource resolves database credentials from a secret.
type CredentialSource interface {
	DatabaseCredentials(ctx context.Context, secretID string) (secrets.Credentials, error)
}

// OpenStore selects a backend from cfg.StorageDriver (default sqlite).
// The postgres driver needs either VENDORQ_POSTGRES_DSN or DB_SECRET_ARN
// plus DB_HOST and DB_NAME.
func OpenStore(ctx context.Context, cfg *config.Config, creds CredentialSource) (domain.PersistentStore, error) {
	driver := cfg.StorageDriver
	if driver == "" {
		driver = config.StorageSQLite
	}
	switch driver {
	case config.StorageMemory:
		return memory.NewStore(), nil
	case config.StorageSQLite:
		return sqlite.NewStore(ctx, cfg.SQLitePath)
	case config.StoragePostgres:
		dsn, err := PostgresDSN(ctx, cfg, creds)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(ctx, dsn, postgres.Options{ApplySchema: cfg.ApplySchema})
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// PostgresDSN returns the explicit DSN when set, otherwise builds one from
// the credential secret and DB_HOST/DB_PORT/DB_NAME.
func PostgresDSN(ctx context.Context, cfg *config.Config, creds CredentialSource) (string, error) {
	if cfg.PostgresDSN != "" {
		return cfg.PostgresDSN, nil
	}
	if cfg.DBSecretARN == "" {
		return "", errors.New("postgres storage requires VENDORQ_POSTGRES_DSN or DB_SECRET_ARN")
	}
	if cfg.DBHost == "" || cfg.DBName == "" {
		return "", errors.New("DB_HOST and DB_NAME are required with DB_SECRET_ARN")
	}
	if creds == nil {
		return "", errors.New("no credential source configured")
	}
	c, err := creds.DatabaseCredentials(ctx, cfg.DBSecretARN)
	if err != nil {
		return "", fmt.Errorf("resolve database credentials: %w", err)
	}
	return postgres.ConnInfo{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Database: cfg.DBName,
		User:     c.Username,
		Password: c.Password,
		SSLMode:  cfg.DBSSLMode,
	}.DSN(), nil
}
