package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gartstein/selfservice/internal/selfservice/db"
	e "github.com/gartstein/selfservice/internal/selfservice/errors"
	"github.com/gartstein/selfservice/internal/selfservice/events"
	"github.com/gartstein/selfservice/internal/selfservice/models"
	"github.com/google/uuid"
)

const (
	dateLayout    = "2006-01-02"
	secondsPerDay = 24 * 60 * 60
)

// LeaveDays returns the inclusive number of calendar days between two YYYY-MM-DD dates.
func LeaveDays(start, end string) (int, error) {
	from, err := time.Parse(dateLayout, start)
	if err != nil {
		return 0, fmt.Errorf("%w: start date %q", e.ErrInvalidInput, start)
	}
	to, err := time.Parse(dateLayout, end)
	if err != nil {
		return 0, fmt.Errorf("%w: end date %q", e.ErrInvalidInput, end)
	}
	if to.Before(from) {
		return 0, fmt.Errorf("%w: end date %s is before start date %s", e.ErrInvalidRange, end, start)
	}
	// Unix seconds avoid the ~292 year saturation of time.Duration.
	return int((to.Unix()-from.Unix())/secondsPerDay) + 1, nil
}

func (s *SelfService) GetLeaveBalance(ctx context.Context, tenant, employeeID string) (models.LeaveBalance, error) {
	var balance models.LeaveBalance
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		var err error
		balance, err = repo.GetLeaveBalance(ctx, employeeID)
		return err
	})
	if err != nil {
		return nil, wrap(err, "get leave balance")
	}
	return balance, nil
}

func (s *SelfService) ListLeaveRequests(ctx context.Context, tenant, employeeID string) ([]models.LeaveRequest, error) {
	var requests []models.LeaveRequest
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		if err := requireEmployee(ctx, repo, employeeID); err != nil {
			return err
		}
		var err error
		requests, err = repo.ListLeaveRequests(ctx, employeeID)
		return err
	})
	if err != nil {
		return nil, wrap(err, "list leave requests")
	}
	return requests, nil
}

// SubmitLeaveRequest debits the balance and records a pending request in one
// transaction holding the employee row lock. The manager is notified after commit.
func (s *SelfService) SubmitLeaveRequest(ctx context.Context, tenant string, input *models.LeaveRequestInput) (*models.LeaveRequest, error) {
	if input == nil || strings.TrimSpace(input.LeaveType) == "" {
		return nil, fmt.Errorf("%w: leave type required", e.ErrInvalidInput)
	}
	days, err := LeaveDays(input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}

	request := models.LeaveRequest{
		ID:          uuid.NewString(),
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		LeaveType:   input.LeaveType,
		Reason:      input.Reason,
		Days:        days,
		Status:      models.StatusPending,
		RequestDate: s.clock.Now().UTC(),
	}

	var manager string
	err = s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		return repo.WithTransaction(ctx, func(tx *db.Repository) error {
			balance, err := tx.GetLeaveBalanceForUpdate(ctx, input.EmployeeID)
			if err != nil {
				return err
			}
			if err := balance.Debit(input.LeaveType, days); err != nil {
				return err
			}
			employee, err := tx.GetEmployee(ctx, input.EmployeeID)
			if err != nil {
				return err
			}
			manager = employee.ManagerEmail
			if err := tx.SetLeaveBalance(ctx, input.EmployeeID, balance); err != nil {
				return err
			}
			_, err = tx.AppendLeaveRequest(ctx, input.EmployeeID, request)
			return err
		})
	})
	if err != nil {
		return nil, wrap(err, "submit leave request")
	}

	s.notify(ctx, tenant, input.EmployeeID, manager, "New Leave Request",
		fmt.Sprintf("Employee %s has requested %s leave from %s to %s.",
			input.EmployeeID, input.LeaveType, input.StartDate, input.EndDate))
	s.publish(events.LeaveRequested, tenant, input.EmployeeID, request)
	return &request, nil
}
