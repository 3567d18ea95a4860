package controller

import (
	"context"

	"github.com/gartstein/selfservice/internal/selfservice/db"
	"github.com/gartstein/selfservice/internal/selfservice/models"
)

func (s *SelfService) ListCompanyJobs(ctx context.Context, tenant string) ([]models.Job, error) {
	var jobs []models.Job
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		var err error
		jobs, err = repo.ListCompanyJobs(ctx)
		return err
	})
	if err != nil {
		return nil, wrap(err, "list company jobs")
	}
	return jobs, nil
}

// ListInvitations returns the promoted jobs the employee's email was invited to.
func (s *SelfService) ListInvitations(ctx context.Context, tenant, employeeID string) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		employee, err := repo.GetEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		invitations, err = repo.ListInvitations(ctx, employee.Email)
		return err
	})
	if err != nil {
		return nil, wrap(err, "list invitations")
	}
	return invitations, nil
}

// ListNotifications reads the inputs of AssembleNotifications in one tenant call.
func (s *SelfService) ListNotifications(ctx context.Context, tenant, employeeID string) ([]models.Notification, error) {
	var (
		invitations []models.Invitation
		profile     *models.Profile
	)
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		employee, err := repo.GetEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		if invitations, err = repo.ListInvitations(ctx, employee.Email); err != nil {
			return err
		}
		profile, err = loadProfile(ctx, repo, employeeID)
		return err
	})
	if err != nil {
		return nil, wrap(err, "list notifications")
	}
	return AssembleNotifications(s.clock.Now(), invitations, profile), nil
}
