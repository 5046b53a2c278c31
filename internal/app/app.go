// Package app assembles the questionnaire service, its storage, archive,
// and HTTP surface from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	adapter "vendorq/internal/adapters/questionnaire"
	"vendorq/internal/blob"
	"vendorq/internal/config"
	"vendorq/internal/observability"
	"vendorq/internal/questionnaire"
	"vendorq/internal/secrets"
	"vendorq/pkg/domain"
)

// App is a fully wired service instance.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Catalog    questionnaire.Catalog
	Store      domain.PersistentStore
	Archive    blob.Store              // nil when archiving is disabled
	History    *blob.SubmissionArchive // nil when archiving is disabled
	Metrics    *observability.Metrics
	Service    *questionnaire.Service
	Dispatcher *adapter.Dispatcher
}

type options struct {
	logger *slog.Logger
	creds  CredentialSource
}

// Option customises New.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithCredentialSource replaces the Secrets Manager credential source.
func WithCredentialSource(c CredentialSource) Option { return func(o *options) { o.creds = c } }

// New opens storage and the archive and builds the service and dispatcher.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.creds == nil {
		o.creds = secrets.NewManager(cfg.Secrets())
	}

	catalog := questionnaire.DefaultCatalog()
	if cfg.FieldsFile != "" {
		c, err := questionnaire.LoadCatalog(cfg.FieldsFile)
		if err != nil {
			return nil, fmt.Errorf("load field catalog: %w", err)
		}
		catalog = c
	}

	store, err := OpenStore(ctx, cfg, o.creds)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	archive, err := blob.Open(ctx, cfg.Archive())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open archive: %w", err)
	}

	metrics := observability.NewMetrics()
	svcOpts := []questionnaire.Option{
		questionnaire.WithCatalog(catalog),
		questionnaire.WithMetrics(metrics),
		questionnaire.WithLogger(o.logger),
	}
	var history *blob.SubmissionArchive
	if archive != nil {
		history = blob.NewSubmissionArchive(archive)
		svcOpts = append(svcOpts, questionnaire.WithArchive(history))
	}
	svc := questionnaire.NewService(store, svcOpts...)

	o.logger.Info("questionnaire service ready",
		"storage", cfg.StorageDriver, "archive", cfg.ArchiveDriver, "fields", len(catalog))
	return &App{
		Config:     cfg,
		Logger:     o.logger,
		Catalog:    catalog,
		Store:      store,
		Archive:    archive,
		History:    history,
		Metrics:    metrics,
		Service:    svc,
		Dispatcher: adapter.NewDispatcher(svc, adapter.WithDispatcherLogger(o.logger)),
	}, nil
}

// Router returns the HTTP surface with /metrics wired to the app registry
// and the history route mounted when archiving is enabled.
func (a *App) Router() http.Handler {
	opts := adapter.RouterOptions{
		Logger:   a.Logger,
		Catalog:  a.Catalog,
		Metrics:  a.Metrics.Handler(),
		Observer: a.Metrics,
	}
	if a.History != nil {
		opts.History = a.History
	}
	return adapter.NewRouter(a.Dispatcher, opts)
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
