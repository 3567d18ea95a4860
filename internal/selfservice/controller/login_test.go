package controller

import (
	"context"
	"strings"
	"testing"

	"github.com/gartstein/selfservice/internal/selfservice/auth"
	"github.com/gartstein/selfservice/internal/selfservice/db"
	e "github.com/gartstein/selfservice/internal/selfservice/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingLimiter allows max attempts per key until Reset.
type countingLimiter struct {
	max      int
	attempts map[string]int
	resets   []string
}

func (l *countingLimiter) Allow(_ context.Context, key string) bool {
	l.attempts[key]++
	return l.attempts[key] <= l.max
}

func (l *countingLimiter) Reset(_ context.Context, key string) {
	delete(l.attempts, key)
	l.resets = append(l.resets, key)
}

func TestLogin(t *testing.T) {
	f := newFixture(t, nil)

	summary, err := f.svc.Login(context.Background(), testTenant, "  "+testEmail+" ", testPassword)
	require.NoError(t, err)
	assert.Equal(t, testEmployee, summary.EmployeeID)
	assert.Equal(t, "Acme Corp", summary.CompanyName)
	assert.Equal(t, "Login successful", summary.Message)

	claims, err := auth.ValidateToken(summary.Token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, testTenant, claims.Tenant)
	assert.Equal(t, testEmployee, claims.EmployeeID)
}

func TestLoginCompanyNameFallsBackToTenant(t *testing.T) {
	f := newFixture(t, nil)
	f.repo(t, func(repo *db.Repository) error {
		return repo.Exec(context.Background(), "DELETE FROM companies")
	})

	summary, err := f.svc.Login(context.Background(), testTenant, testEmail, testPassword)
	require.NoError(t, err)
	assert.Equal(t, testTenant, summary.CompanyName)
}

func TestLoginRejected(t *testing.T) {
	tests := []struct {
		name          string
		tenant, email string
		password      string
		wantErr       error
	}{
		{"wrong password", testTenant, testEmail, "wrong", e.ErrInvalidCredentials},
		{"unknown email", testTenant, "eve@acme.test", testPassword, e.ErrInvalidCredentials},
		{"missing password", testTenant, testEmail, "", e.ErrInvalidInput},
		{"missing tenant", "", testEmail, testPassword, e.ErrInvalidInput},
		{"unknown tenant", "globex", testEmail, testPassword, e.ErrTenantUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			summary, err := f.svc.Login(context.Background(), tt.tenant, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, summary)
		})
	}
}

func TestLoginLimiter(t *testing.T) {
	f := newFixture(t, nil)
	limiter := &countingLimiter{max: 2, attempts: map[string]int{}}
	f.svc.limiter = limiter
	ctx := context.Background()
	key := testTenant + ":" + strings.ToLower(testEmail)

	_, err := f.svc.Login(ctx, testTenant, testEmail, "wrong")
	assert.ErrorIs(t, err, e.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, testTenant, strings.ToUpper(testEmail), testPassword)
	assert.ErrorIs(t, err, e.ErrInvalidCredentials, "emails are matched exactly")
	assert.Equal(t, 2, limiter.attempts[key])

	_, err = f.svc.Login(ctx, testTenant, testEmail, testPassword)
	assert.ErrorIs(t, err, e.ErrTooManyAttempts)
	assert.Empty(t, limiter.resets)

	limiter.attempts[key] = 0
	_, err = f.svc.Login(ctx, testTenant, testEmail, testPassword)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, limiter.resets)
	assert.Zero(t, limiter.attempts[key])
}
