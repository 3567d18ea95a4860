package db

import (
	"github.com/gartstein/selfservice/internal/selfservice/db/models"
	domain "github.com/gartstein/selfservice/internal/selfservice/models"
)

func employeeToRow(employee *domain.Employee) *models.Employee {
	return &models.Employee{
		ID:           employee.ID,
		Email:        employee.Email,
		FirstName:    employee.FirstName,
		LastName:     employee.LastName,
		Designation:  employee.Designation,
		Location:     employee.Location,
		CompanyID:    employee.CompanyID,
		PasswordHash: employee.PasswordHash,
		ManagerEmail: employee.ManagerEmail,
		LeaveBalance: employee.LeaveBalance,
	}
}

func rowToEmployee(row *models.Employee) *domain.Employee {
	return &domain.Employee{
		ID:           row.ID,
		Email:        row.Email,
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		Designation:  row.Designation,
		Location:     row.Location,
		CompanyID:    row.CompanyID,
		ManagerEmail: row.ManagerEmail,
		PasswordHash: row.PasswordHash,
		LeaveBalance: row.LeaveBalance,
	}
}

func rowToProfile(row *models.Profile) *domain.Profile {
	return &domain.Profile{
		EmployeeID:         row.EmployeeID,
		MobileNumber:       deref(row.MobileNumber),
		Department:         deref(row.Department),
		ProjectSummary:     deref(row.ProjectSummary),
		WorkExperience:     deref(row.WorkExperience),
		ResumePath:         deref(row.ResumePath),
		Skills:             nonNil(row.Skills),
		Education:          nonNil(row.Education),
		Achievements:       nonNil(row.Achievements),
		Certificates:       nonNil(row.Certificates),
		LeaveRequests:      nonNil(row.LeaveRequests),
		TerminationRequest: row.TerminationRequest,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
