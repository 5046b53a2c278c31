// Package config reads process settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"vendorq/internal/blob"
	"vendorq/internal/secrets"
)

// Storage drivers accepted by VENDORQ_STORAGE_DRIVER.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config holds every setting the binary consumes.
type Config struct {
	HTTPAddr string

	StorageDriver string
	SQLitePath    string
	PostgresDSN   string
	ApplySchema   bool

	DBSecretARN string
	DBHost      string
	DBPort      int
	DBName      string
	DBSSLMode   string

	AWSRegion        string
	SecretsEndpoint  string
	SecretsAccessKey string
	SecretsSecretKey string

	ArchiveDriver    string
	ArchiveFSRoot    string
	ArchiveBucket    string
	ArchiveRegion    string
	ArchiveEndpoint  string
	ArchivePathStyle bool
	ArchiveAccessKey string
	ArchiveSecretKey string

	FieldsFile string
	LogLevel   string
	GELFAddr   string
}

// Load reads the environment, applying defaults for unset keys.
func Load() *Config {
	region := getEnv("AWS_REGION", secrets.DefaultRegion)
	return &Config{
		HTTPAddr: getEnv("VENDORQ_HTTP_ADDR", ":8080"),

		StorageDriver: strings.ToLower(getEnv("VENDORQ_STORAGE_DRIVER", StorageSQLite)),
		SQLitePath:    getEnv("VENDORQ_SQLITE_PATH", "vendorq.db"),
		PostgresDSN:   getEnv("VENDORQ_POSTGRES_DSN", ""),
		ApplySchema:   getEnvBool("VENDORQ_APPLY_SCHEMA", false),

		DBSecretARN: getEnv("DB_SECRET_ARN", ""),
		DBHost:      getEnv("DB_HOST", ""),
		DBPort:      getEnvInt("DB_PORT", 5432),
		DBName:      getEnv("DB_NAME", ""),
		DBSSLMode:   getEnv("DB_SSLMODE", "require"),

		AWSRegion:        region,
		SecretsEndpoint:  getEnv("VENDORQ_SECRETS_ENDPOINT", ""),
		SecretsAccessKey: getEnv("VENDORQ_SECRETS_ACCESS_KEY_ID", ""),
		SecretsSecretKey: getEnv("VENDORQ_SECRETS_SECRET_ACCESS_KEY", ""),

		ArchiveDriver:    strings.ToLower(getEnv("VENDORQ_ARCHIVE_DRIVER", string(blob.DriverNone))),
		ArchiveFSRoot:    getEnv("VENDORQ_ARCHIVE_FS_ROOT", "./archive"),
		ArchiveBucket:    getEnv("VENDORQ_ARCHIVE_S3_BUCKET", ""),
		ArchiveRegion:    getEnv("VENDORQ_ARCHIVE_S3_REGION", region),
		ArchiveEndpoint:  getEnv("VENDORQ_ARCHIVE_S3_ENDPOINT", ""),
		ArchivePathStyle: getEnvBool("VENDORQ_ARCHIVE_S3_PATH_STYLE", false),
		ArchiveAccessKey: getEnv("VENDORQ_ARCHIVE_S3_ACCESS_KEY_ID", ""),
		ArchiveSecretKey: getEnv("VENDORQ_ARCHIVE_S3_SECRET_ACCESS_KEY", ""),

		FieldsFile: getEnv("VENDORQ_FIELDS_FILE", ""),
		LogLevel:   getEnv("VENDORQ_LOG_LEVEL", "info"),
		GELFAddr:   getEnv("VENDORQ_GELF_ADDR", ""),
	}
}

// Archive returns the blob store settings for the submission archive.
func (c *Config) Archive() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.ArchiveDriver),
		FSRoot: c.ArchiveFSRoot,
		S3: blob.S3Config{
			Bucket:          c.ArchiveBucket,
			Region:          c.ArchiveRegion,
			Endpoint:        c.ArchiveEndpoint,
			PathStyle:       c.ArchivePathStyle,
			AccessKeyID:     c.ArchiveAccessKey,
			SecretAccessKey: c.ArchiveSecretKey,
		},
	}
}

// Secrets returns the Secrets Manager settings.
func (c *Config) Secrets() secrets.Config {
	return secrets.Config{
		Region:          c.AWSRegion,
		Endpoint:        c.SecretsEndpoint,
		AccessKeyID:     c.SecretsAccessKey,
		SecretAccessKey: c.SecretsSecretKey,
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
