package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/gartstein/selfservice/internal/selfservice/db"
	e "github.com/gartstein/selfservice/internal/selfservice/errors"
	"github.com/gartstein/selfservice/internal/selfservice/events"
	"github.com/gartstein/selfservice/internal/selfservice/models"
)

// GetTerminationRequest returns the stored request with defaults filled in.
func (s *SelfService) GetTerminationRequest(ctx context.Context, tenant, employeeID string) (*models.TerminationRequest, error) {
	var req *models.TerminationRequest
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		var err error
		req, err = repo.GetTerminationRequest(ctx, employeeID)
		return err
	})
	if err != nil {
		return nil, wrap(err, "get termination request")
	}
	if !req.Status.Valid() {
		req.Status = models.StatusPending
	}
	if req.NoticePeriod == "" {
		req.NoticePeriod = models.DefaultNoticePeriod
	}
	return req, nil
}

// SubmitTerminationRequest stores the employee's single termination request.
// A second submission fails with e.ErrConflict and leaves the first untouched.
func (s *SelfService) SubmitTerminationRequest(ctx context.Context, tenant, employeeID string, req models.TerminationRequest) (*models.TerminationRequest, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return nil, fmt.Errorf("%w: reason required", e.ErrInvalidInput)
	}
	if req.LastWorkingDate != "" {
		if _, err := LeaveDays(req.LastWorkingDate, req.LastWorkingDate); err != nil {
			return nil, err
		}
	}
	if req.NoticePeriod == "" {
		req.NoticePeriod = models.DefaultNoticePeriod
	}
	req.Status = models.StatusPending
	req.RequestDate = s.clock.Now().UTC()

	var manager string
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		employee, err := repo.GetEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		manager = employee.ManagerEmail
		return repo.CreateTerminationRequest(ctx, employeeID, &req)
	})
	if err != nil {
		return nil, wrap(err, "submit termination request")
	}

	s.notify(ctx, tenant, employeeID, manager, "New Termination Request",
		fmt.Sprintf("Employee %s has submitted a termination request. Please review it in the management portal.", employeeID))
	s.publish(events.TerminationRequested, tenant, employeeID, req)
	return &req, nil
}
