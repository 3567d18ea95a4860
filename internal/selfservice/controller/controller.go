// Package controller implements the self-service business logic: the
// profile aggregate, document handling, the leave ledger and the derived
// notifications. Every operation runs against the caller's tenant database
// through a TenantStore and never caches records between calls.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gartstein/selfservice/internal/selfservice/db"
	e "github.com/gartstein/selfservice/internal/selfservice/errors"
	"github.com/gartstein/selfservice/internal/selfservice/events"
	"go.uber.org/zap"
)

// TenantStore resolves a tenant and runs fn against a repository bound to
// one connection of that tenant's database.
type TenantStore interface {
	WithTenant(ctx context.Context, tenant string, fn func(repo *db.Repository) error) error
}

// BlobStore keeps uploaded file contents, namespaced per tenant.
type BlobStore interface {
	Save(ctx context.Context, tenant, name string, content []byte) error
	Delete(ctx context.Context, tenant, name string) error
	Exists(ctx context.Context, tenant, name string) (bool, error)
	Read(ctx context.Context, tenant, name string) ([]byte, error)
}

// Notifier delivers a message to a manager. Failures are never fatal to the caller.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

type EventProducer interface {
	Produce(event events.Event) error
}

// LoginLimiter throttles login attempts.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) bool
	Reset(ctx context.Context, key string)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Dependencies groups the collaborators of SelfService. Producer, Limiter and
// Clock are optional.
type Dependencies struct {
	Tenants  TenantStore
	Blobs    BlobStore
	Notifier Notifier
	Producer EventProducer
	Limiter  LoginLimiter
	Clock    Clock
}

type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type SelfService struct {
	tenants   TenantStore
	blobs     BlobStore
	notifier  Notifier
	producer  EventProducer
	limiter   LoginLimiter
	clock     Clock
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewSelfService(deps Dependencies, cfg Config, logger *zap.Logger) *SelfService {
	clock := deps.Clock
	if clock == nil {
		clock = systemClock{}
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SelfService{
		tenants:   deps.Tenants,
		blobs:     deps.Blobs,
		notifier:  deps.Notifier,
		producer:  deps.Producer,
		limiter:   deps.Limiter,
		clock:     clock,
		jwtSecret: cfg.JWTSecret,
		tokenTTL:  ttl,
		logger:    logger.Named("selfservice"),
	}
}

// publish emits a domain event after the data change has been committed.
func (s *SelfService) publish(eventType events.EventType, tenant, employeeID string, payload interface{}) {
	if s.producer == nil {
		return
	}
	event, err := events.NewEvent(eventType, tenant, employeeID, payload)
	if err != nil {
		s.logger.Error("Failed to build event", zap.Error(err), zap.String("event_type", string(eventType)))
		return
	}
	_ = s.producer.Produce(event)
}

// notify sends a best-effort message; failures are only logged.
func (s *SelfService) notify(ctx context.Context, tenant, employeeID, to, subject, body string) {
	if s.notifier == nil || to == "" {
		return
	}
	if err := s.notifier.Send(ctx, to, subject, body); err != nil {
		s.logger.Warn("Failed to notify manager",
			zap.Error(err),
			zap.String("tenant", tenant),
			zap.String("employee_id", employeeID),
			zap.String("subject", subject),
		)
	}
}

// wrap keeps classified errors as they are and labels anything else.
func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		e.ErrNotFound, e.ErrInvalidInput, e.ErrInvalidRange, e.ErrUnsupportedFileType,
		e.ErrInvalidCredentials, e.ErrConflict, e.ErrInsufficientBalance,
		e.ErrTenantUnavailable, e.ErrBlobStorage, e.ErrTooManyAttempts,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// requireEmployee returns e.ErrNotFound when the employee does not exist.
func requireEmployee(ctx context.Context, repo *db.Repository, employeeID string) error {
	if employeeID == "" {
		return fmt.Errorf("%w: employee id required", e.ErrInvalidInput)
	}
	exists, err := repo.EmployeeExists(ctx, employeeID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: employee %s", e.ErrNotFound, employeeID)
	}
	return nil
}
