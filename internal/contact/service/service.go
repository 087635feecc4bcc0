package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ContactStore,Enricher,AuditPublisher

import (
	"context"
	"io"
	"log/slog"

	"agenda/internal/audit"
	contactmetrics "agenda/internal/contact/metrics"
	"agenda/internal/contact/models"
	"agenda/internal/enrich"
)

// ContactStore is the storage collaborator. Implementations signal a missing
// id with sentinel.ErrNotFound and a duplicate phone with
// sentinel.ErrAlreadyUsed.
type ContactStore interface {
	FindByID(ctx context.Context, id string) (models.Contact, error)
	FindAll(ctx context.Context) ([]models.Contact, error)
	Insert(ctx context.Context, c models.Contact) (string, error)
	DeleteByID(ctx context.Context, id string) (int, error)
	FindAndUpdate(ctx context.Context, id string, upd models.Update) (models.Contact, error)
}

// Enricher is the enrichment pipeline: the strict write-time path and the
// tolerant read-time path.
type Enricher interface {
	FromPhone(ctx context.Context, telefono string) (enrich.Enrichment, error)
	LocalTime(ctx context.Context, capital string) (string, bool)
}

// AuditPublisher records contact mutations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the contact resolver layer: it runs the enrichment pipeline at
// write time, persists through the store, and recomputes hora_capital for
// every contact it returns.
type Service struct {
	store    ContactStore
	enricher Enricher
	logger   *slog.Logger
	metrics  *contactmetrics.Metrics
	audit    AuditPublisher

	// Upper bound on concurrent time recomputations during a list read.
	listConcurrency int
}

type serviceConfig struct {
	metrics         *contactmetrics.Metrics
	audit           AuditPublisher
	listConcurrency int
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

// WithMetrics wires prometheus metrics for the contact module.
func WithMetrics(m *contactmetrics.Metrics) Option {
	return func(cfg *serviceConfig) { cfg.metrics = m }
}

// WithAuditPublisher wires an audit sink for contact mutations.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(cfg *serviceConfig) { cfg.audit = p }
}

// WithListConcurrency bounds parallel hora_capital recomputation on list
// reads. Values below 1 are ignored.
func WithListConcurrency(n int) Option {
	return func(cfg *serviceConfig) {
		if n >= 1 {
			cfg.listConcurrency = n
		}
	}
}

// New builds the contact service. Logger may be nil.
func New(store ContactStore, enricher Enricher, logger *slog.Logger, opts ...Option) *Service {
	cfg := &serviceConfig{listConcurrency: 8}
	for _, opt := range opts {
		opt(cfg)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store:           store,
		enricher:        enricher,
		logger:          logger,
		metrics:         cfg.metrics,
		audit:           cfg.audit,
		listConcurrency: cfg.listConcurrency,
	}
}
