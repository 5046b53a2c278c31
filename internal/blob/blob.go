// Package blob selects the object store that receives submission archives and
// re-exports the core blob abstractions for callers outside internal/infra.
package blob

import (
	"context"
	"fmt"
	"strings"

	"vendorq/internal/blob/core"
	fsstore "vendorq/internal/infra/blob/fs"
	memorystore "vendorq/internal/infra/blob/memory"
	s3store "vendorq/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
	// S3Config configures the S3 driver.
	S3Config = s3store.Config
)

const (
	// DriverNone disables archiving.
	DriverNone Driver = "none"
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrExists is returned by Put when the key is taken.
	ErrExists = core.ErrExists
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = core.ErrNotFound
)

// Config selects and configures a driver.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open builds the configured store. It returns a nil Store for DriverNone
// and for an empty driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch Driver(strings.ToLower(string(cfg.Driver))) {
	case "", DriverNone:
		return nil, nil
	case DriverMemory:
		return memorystore.New(), nil
	case DriverFilesystem:
		return fsstore.New(cfg.FSRoot)
	case DriverS3:
		return s3store.New(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
	}
}
