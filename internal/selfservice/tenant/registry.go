// Package tenant maps a company (tenant) name onto its own database and hands
// out request-scoped repositories bound to one pooled connection.
package tenant

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/selfservice/internal/selfservice/db"
	e "github.com/gartstein/selfservice/internal/selfservice/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Placeholder is replaced by the tenant name in Config.DSNTemplate.
const Placeholder = "{tenant}"

var validName = regexp.MustCompile(`^[A-Za-z0-9_]{1,63}$`)

type Config struct {
	// Driver is "postgres" or "sqlite".
	Driver      string
	DSNTemplate string
	// Allowed restricts the tenants that may be resolved. Empty allows any well-formed name.
	Allowed         []string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// Registry keeps one connection pool per tenant database.
type Registry struct {
	cfg     Config
	logger  *zap.Logger
	allowed map[string]struct{}
	open    func(dsn string) gorm.Dialector

	// opening collapses concurrent first uses of one tenant into a single connect.
	opening singleflight.Group

	mu    sync.Mutex
	pools map[string]*gorm.DB
}

func NewRegistry(cfg Config, logger *zap.Logger) (*Registry, error) {
	var open func(dsn string) gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		open = postgres.Open
	case "sqlite":
		open = sqlite.Open
	default:
		return nil, fmt.Errorf("unsupported tenant driver %q", cfg.Driver)
	}
	if !strings.Contains(cfg.DSNTemplate, Placeholder) {
		return nil, fmt.Errorf("tenant DSN template must contain %s", Placeholder)
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 5 * time.Second
	}

	allowed := make(map[string]struct{}, len(cfg.Allowed))
	for _, name := range cfg.Allowed {
		allowed[name] = struct{}{}
	}

	return &Registry{
		cfg:     cfg,
		logger:  logger.Named("tenant"),
		allowed: allowed,
		open:    open,
		pools:   make(map[string]*gorm.DB),
	}, nil
}

// Resolve returns the pooled handle of the tenant's database, opening it on first use.
func (r *Registry) Resolve(ctx context.Context, name string) (*gorm.DB, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("%w: malformed tenant name", e.ErrTenantUnavailable)
	}
	if len(r.allowed) > 0 {
		if _, ok := r.allowed[name]; !ok {
			return nil, fmt.Errorf("%w: unknown tenant %q", e.ErrTenantUnavailable, name)
		}
	}

	if pool, ok := r.cached(name); ok {
		return pool, nil
	}

	// Connect without holding r.mu.
	v, err, _ := r.opening.Do(name, func() (interface{}, error) {
		if pool, ok := r.cached(name); ok {
			return pool, nil
		}
		pool, err := r.connect(ctx, name)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.pools[name] = pool
		r.mu.Unlock()
		r.logger.Info("tenant database opened", zap.String("tenant", name))
		return pool, nil
	})
	if err != nil {
		r.logger.Warn("tenant database unavailable", zap.String("tenant", name), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", e.ErrTenantUnavailable, name, err)
	}
	return v.(*gorm.DB), nil
}

func (r *Registry) cached(name string) (*gorm.DB, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool, ok := r.pools[name]
	return pool, ok
}

func (r *Registry) connect(ctx context.Context, name string) (*gorm.DB, error) {
	dsn := strings.ReplaceAll(r.cfg.DSNTemplate, Placeholder, name)
	pool, err := gorm.Open(r.open(dsn), &gorm.Config{
		DisableAutomaticPing: true,
		TranslateError:       true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, err
	}
	if r.cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(r.cfg.MaxOpenConns)
	}
	if r.cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(r.cfg.MaxIdleConns)
	}
	if r.cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(r.cfg.ConnMaxLifetime)
	}
	if r.cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(r.cfg.ConnMaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, r.cfg.PingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return pool, nil
}

// WithTenant runs fn with a repository pinned to a single connection of the
// tenant's pool. The connection goes back to the pool when fn returns, on every path.
func (r *Registry) WithTenant(ctx context.Context, name string, fn func(repo *db.Repository) error) error {
	pool, err := r.Resolve(ctx, name)
	if err != nil {
		return err
	}

	acquired := false
	err = pool.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		acquired = true
		return fn(db.NewRepository(conn))
	})
	if err != nil && !acquired {
		return fmt.Errorf("%w: %s: %v", e.ErrTenantUnavailable, name, err)
	}
	return err
}

// WaitReady retries Resolve with exponential backoff until the tenant
// database answers or maxWait elapses.
func (r *Registry) WaitReady(ctx context.Context, name string, maxWait time.Duration) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxWait

	return backoff.Retry(func() error {
		_, err := r.Resolve(ctx, name)
		if err != nil && !validName.MatchString(name) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
}

// Tenants returns the names of the currently opened tenant databases.
func (r *Registry) Tenants() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.pools))
	for name := range r.pools {
		names = append(names, name)
	}
	return names
}

// Close closes every tenant pool.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, pool := range r.pools {
		sqlDB, err := pool.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close tenant %s: %w", name, err)
		}
		delete(r.pools, name)
	}
	return firstErr
}
