package dao

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/graffiticode/graffiticode/engine/infra/postgres"
	"github.com/graffiticode/graffiticode/engine/infra/redis"
	"github.com/graffiticode/graffiticode/engine/infra/sqlite"
	"github.com/graffiticode/graffiticode/engine/task"
	"github.com/graffiticode/graffiticode/pkg/config"
	"github.com/graffiticode/graffiticode/pkg/logger"
	"github.com/sethvargo/go-retry"
)

// Kind names a DAO backend.
type Kind string

const (
	KindMemory Kind = "memory"
	// KindFirestore selects the persistent backend. The name is kept for
	// compatibility with existing deployments.
	KindFirestore Kind = "firestore"
)

// Persistent drivers selectable through storage.driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
)

// ErrUnknownKind is returned for backend names that are not exactly a Kind.
var ErrUnknownKind = errors.New("unknown dao kind")

// ParseKind maps s to a Kind. Matching is exact and case-sensitive.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindMemory, KindFirestore:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

func (k Kind) String() string {
	return string(k)
}

// RepositoryOpener connects a persistent repository.
type RepositoryOpener func(ctx context.Context, cfg *config.Config) (task.Repository, error)

// Decorator wraps every DAO the factory builds.
type Decorator func(kind Kind, d DAO) DAO

// Factory builds DAOs lazily and caches one instance per kind.
type Factory struct {
	cfg        *config.Config
	openRepo   RepositoryOpener
	decorators []Decorator
	mu         sync.Mutex
	instances  map[Kind]DAO
}

// Option configures a Factory.
type Option func(*Factory)

// WithRepositoryOpener overrides how the persistent repository is connected.
func WithRepositoryOpener(open RepositoryOpener) Option {
	return func(f *Factory) {
		f.openRepo = open
	}
}

// WithDecorator adds a wrapper applied to every created DAO.
func WithDecorator(d Decorator) Option {
	return func(f *Factory) {
		f.decorators = append(f.decorators, d)
	}
}

// NewFactory returns a factory using cfg, or the defaults when cfg is nil.
func NewFactory(cfg *config.Config, opts ...Option) *Factory {
	if cfg == nil {
		cfg = config.Default()
	}
	f := &Factory{
		cfg:       cfg,
		openRepo:  OpenRepository,
		instances: make(map[Kind]DAO),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the cached DAO for kind, building it on first use.
func (f *Factory) Create(ctx context.Context, kind Kind) (DAO, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.instances[kind]; ok {
		return d, nil
	}
	d, err := f.build(ctx, kind)
	if err != nil {
		return nil, err
	}
	for _, decorate := range f.decorators {
		d = decorate(kind, d)
	}
	f.instances[kind] = d
	logger.FromContext(ctx).Info("DAO initialized", "kind", kind, "driver", f.driverLabel(kind))
	return d, nil
}

// CreateByName parses name and returns the matching DAO.
func (f *Factory) CreateByName(ctx context.Context, name string) (DAO, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return f.Create(ctx, kind)
}

func (f *Factory) build(ctx context.Context, kind Kind) (DAO, error) {
	switch kind {
	case KindMemory:
		return NewMemory(), nil
	case KindFirestore:
		repo, err := f.openRepo(ctx, f.cfg)
		if err != nil {
			return nil, err
		}
		return NewPersistent(repo), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func (f *Factory) driverLabel(kind Kind) string {
	if kind == KindMemory {
		return "memory"
	}
	return f.cfg.Storage.Driver
}

// Close closes every cached DAO and empties the cache.
func (f *Factory) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	for kind, d := range f.instances {
		if err := d.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s dao: %w", kind, err))
		}
		delete(f.instances, kind)
	}
	return errors.Join(errs...)
}

// OpenRepository connects the persistent driver named by cfg.Storage.Driver,
// retrying the connection with exponential backoff.
func OpenRepository(ctx context.Context, cfg *config.Config) (task.Repository, error) {
	log := logger.FromContext(ctx)
	var repo task.Repository
	backoff := retry.WithMaxRetries(cfg.Storage.ConnectRetries, retry.NewExponential(connectBackoff(cfg)))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := openDriver(ctx, cfg)
		if err != nil {
			if errors.Is(err, errUnknownDriver) {
				return err
			}
			log.Warn("Storage connection failed; retrying", "driver", cfg.Storage.Driver, "error", err)
			return retry.RetryableError(err)
		}
		repo = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open %s repository: %w", cfg.Storage.Driver, err)
	}
	return repo, nil
}

var errUnknownDriver = errors.New("unknown storage driver")

func connectBackoff(cfg *config.Config) time.Duration {
	if cfg.Storage.ConnectBackoff > 0 {
		return cfg.Storage.ConnectBackoff
	}
	return defaultConnectBackoff
}

const defaultConnectBackoff = 250 * time.Millisecond

func openDriver(ctx context.Context, cfg *config.Config) (task.Repository, error) {
	migrate := cfg.Storage.AutoMigrate
	switch cfg.Storage.Driver {
	case DriverPostgres:
		return postgres.OpenRepository(ctx, postgres.NewConfig(&cfg.Postgres), migrate)
	case DriverSQLite:
		return sqlite.OpenRepository(ctx, sqlite.NewConfig(&cfg.SQLite), migrate)
	case DriverRedis:
		return redis.OpenRepository(ctx, redis.NewConfig(&cfg.Redis))
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownDriver, cfg.Storage.Driver)
	}
}
