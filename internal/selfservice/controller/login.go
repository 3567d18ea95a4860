package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gartstein/selfservice/internal/selfservice/auth"
	"github.com/gartstein/selfservice/internal/selfservice/db"
	e "github.com/gartstein/selfservice/internal/selfservice/errors"
	"github.com/gartstein/selfservice/internal/selfservice/models"
	"go.uber.org/zap"
)

// Login verifies the password hash of the employee with the given email in the
// tenant's database and issues a bearer token.
func (s *SelfService) Login(ctx context.Context, tenant, email, password string) (*models.LoginSummary, error) {
	email = strings.TrimSpace(email)
	if tenant == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: missing required fields", e.ErrInvalidInput)
	}

	limitKey := tenant + ":" + strings.ToLower(email)
	if s.limiter != nil && !s.limiter.Allow(ctx, limitKey) {
		return nil, e.ErrTooManyAttempts
	}

	var summary models.LoginSummary
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		employee, err := repo.GetEmployeeByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, e.ErrNotFound) {
				return e.ErrInvalidCredentials
			}
			return err
		}
		if err := auth.CheckPassword(employee.PasswordHash, password); err != nil {
			return err
		}

		companyName, err := repo.GetCompanyName(ctx, employee.CompanyID)
		if err != nil {
			if !errors.Is(err, e.ErrNotFound) {
				return err
			}
			companyName = tenant
		}

		summary = models.LoginSummary{
			EmployeeID:  employee.ID,
			Email:       employee.Email,
			FirstName:   employee.FirstName,
			LastName:    employee.LastName,
			Designation: employee.Designation,
			Location:    employee.Location,
			CompanyID:   employee.CompanyID,
			CompanyName: companyName,
			Message:     "Login successful",
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, e.ErrInvalidCredentials) {
			s.logger.Info("Login rejected", zap.String("tenant", tenant))
		}
		return nil, wrap(err, "login")
	}

	token, err := auth.GenerateToken(auth.Claims{Tenant: tenant, EmployeeID: summary.EmployeeID}, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	summary.Token = token
	if s.limiter != nil {
		s.limiter.Reset(ctx, limitKey)
	}
	return &summary, nil
}
