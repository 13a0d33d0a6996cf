// Package provider is the data-access layer for tracks, track points and
// markers.
//
// Every entry point takes a resource locator, resolves it with the router,
// validates caller fragments and values, and runs against the store.
// Mutations run one at a time, each inside a single transaction, and publish
// a change notification for the request locator once the transaction has
// committed. Deletes feed the true number of removed rows, cascades included,
// into a persistent counter and compact the database when it grows past the
// threshold.
package provider

import (
	"errors"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/roach88/trackstore/internal/errs"
	"github.com/roach88/trackstore/internal/metrics"
	"github.com/roach88/trackstore/internal/querysql"
	"github.com/roach88/trackstore/internal/resource"
	"github.com/roach88/trackstore/internal/store"
)

// DefaultVacuumThreshold is the cumulative number of deleted rows above
// which a delete compacts the database.
const DefaultVacuumThreshold = 10000

// Notifier receives the locator of every committed mutation.
type Notifier interface {
	NotifyChange(uri string)
}

// DeletionCounter persists the cumulative number of deleted rows.
type DeletionCounter interface {
	TotalRowsDeleted() int64
	AddTotalRowsDeleted(n int64) (int64, error)
	ResetTotalRowsDeleted() error
}

// Provider serves insert, bulk insert, update, delete and query requests.
//
// Thread-safety: Provider is safe for concurrent use. Mutations serialize on
// an internal mutex; queries do not take it.
type Provider struct {
	mu sync.Mutex

	store    *store.Store
	router   *resource.Router
	compiler *querysql.SQLCompiler
	counter  DeletionCounter
	notifier Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	vacuumThreshold int64
}

// Option configures a Provider.
type Option func(*Provider)

// WithRouter sets the router, and with it the locator authority.
func WithRouter(r *resource.Router) Option {
	return func(p *Provider) {
		p.router = r
	}
}

// WithNotifier sets the receiver of change notifications.
func WithNotifier(n Notifier) Option {
	return func(p *Provider) {
		p.notifier = n
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Provider) {
		p.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// WithVacuumThreshold sets the deleted-row count above which a delete runs
// VACUUM. Non-positive values are ignored.
//
// Use WithVacuumThreshold(5) in tests to exercise compaction.
func WithVacuumThreshold(n int64) Option {
	return func(p *Provider) {
		if n > 0 {
			p.vacuumThreshold = n
		}
	}
}

// New creates a Provider over s. counter receives deleted-row totals and
// must not be nil.
func New(s *store.Store, counter DeletionCounter, opts ...Option) *Provider {
	p := &Provider{
		store:           s,
		router:          resource.NewRouter(resource.DefaultAuthority),
		compiler:        querysql.NewSQLCompiler(),
		counter:         counter,
		notifier:        nopNotifier{},
		logger:          zerolog.Nop(),
		vacuumThreshold: DefaultVacuumThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "provider").Logger()
	return p
}

// Router returns the router used to resolve and build locators.
func (p *Provider) Router() *resource.Router {
	return p.router
}

// TypeOf returns the type string of the resource a locator addresses.
func (p *Provider) TypeOf(uri string) (string, error) {
	m, err := p.router.Resolve(uri)
	if err != nil {
		return "", err
	}
	return p.router.TypeOf(m.Kind)
}

// notify publishes a committed change.
func (p *Provider) notify(uri string) {
	p.notifier.NotifyChange(uri)
	if p.metrics != nil {
		p.metrics.RecordNotification()
	}
}

// observe records the outcome of one call. table is empty when the locator
// did not resolve.
func (p *Provider) observe(op string, m resource.Match, err error, start time.Time) {
	table := ""
	if t := m.Kind.Table(); t != nil {
		table = t.Name
	}
	if p.metrics != nil {
		p.metrics.RecordOperation(op, table, err, time.Since(start))
	}
	if err == nil {
		return
	}
	switch errs.CodeOf(err) {
	case errs.CodeInvalidInput, errs.CodeUnknownResource:
		p.logger.Warn().Err(err).Str("op", op).Str("table", table).Msg("rejected request")
	default:
		p.logger.Error().Err(err).Str("op", op).Str("table", table).Msg("request failed")
	}
}

// storeError classifies a driver error. Foreign key violations become
// referential errors.
func storeError(op, message string, err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
		return errs.Referential(op, "referenced track does not exist", err)
	}
	return errs.Store(op, message, err)
}

type nopNotifier struct{}

func (nopNotifier) NotifyChange(string) {}
