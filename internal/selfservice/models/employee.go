// Package models defines the core domain models of the self-service backend:
// employees, their profile documents, leave ledger entries and the derived
// notification items.
package models

import (
	"fmt"

	e "github.com/gartstein/selfservice/internal/selfservice/errors"
)

// Employee is the identity record of a tenant's employee. JSON keys follow
// the stored column names.
type Employee struct {
	// ID is the tenant-scoped employee identifier.
	ID string `json:"employee_id"`
	// Email is unique within the tenant and used for login and invitations.
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Designation string `json:"designation"`
	Location    string `json:"location"`
	// CompanyID references the tenant's company row.
	CompanyID string `json:"comp_id"`
	// ManagerEmail receives leave and termination notifications.
	ManagerEmail string `json:"manager_email,omitempty"`
	// PasswordHash is a bcrypt hash and never leaves the service.
	PasswordHash string `json:"-"`
	// LeaveBalance is the per-type leave ledger.
	LeaveBalance LeaveBalance `json:"-"`
}

// LoginSummary is returned after a successful credential check.
type LoginSummary struct {
	EmployeeID  string `json:"employeeId"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Designation string `json:"designation"`
	Location    string `json:"location"`
	CompanyID   string `json:"compId"`
	CompanyName string `json:"companyName"`
	Token       string `json:"token,omitempty"`
	Message     string `json:"message"`
}

// LeaveEntry tracks one leave type. Used + Remaining always equals Allocated.
type LeaveEntry struct {
	Allocated int `json:"allocated"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

// LeaveBalance maps a leave type name to its ledger entry.
type LeaveBalance map[string]LeaveEntry

// Debit moves days from remaining to used for the given leave type.
// The balance is left untouched when the debit is rejected.
func (b LeaveBalance) Debit(leaveType string, days int) error {
	if days <= 0 {
		return fmt.Errorf("%w: leave must span at least one day", e.ErrInvalidRange)
	}
	entry, ok := b[leaveType]
	if !ok {
		return fmt.Errorf("%w: unknown leave type %q", e.ErrInvalidInput, leaveType)
	}
	if entry.Remaining < days {
		return fmt.Errorf("%w: %d %s day(s) remaining, %d requested",
			e.ErrInsufficientBalance, entry.Remaining, leaveType, days)
	}
	entry.Used += days
	entry.Remaining -= days
	b[leaveType] = entry
	return nil
}

// Credit returns days to the remaining pool, e.g. when a request is rejected.
func (b LeaveBalance) Credit(leaveType string, days int) error {
	entry, ok := b[leaveType]
	if !ok {
		return fmt.Errorf("%w: unknown leave type %q", e.ErrInvalidInput, leaveType)
	}
	if days <= 0 || days > entry.Used {
		return fmt.Errorf("%w: cannot credit %d day(s) of %s", e.ErrInvalidInput, days, leaveType)
	}
	entry.Used -= days
	entry.Remaining += days
	b[leaveType] = entry
	return nil
}
