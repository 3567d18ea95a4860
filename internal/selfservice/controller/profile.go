package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gartstein/selfservice/internal/selfservice/db"
	e "github.com/gartstein/selfservice/internal/selfservice/errors"
	"github.com/gartstein/selfservice/internal/selfservice/events"
	"github.com/gartstein/selfservice/internal/selfservice/models"
)

// GetProfile joins the employee identity with the profile document. A profile
// that was never written reads as empty.
func (s *SelfService) GetProfile(ctx context.Context, tenant, employeeID string) (*models.ProfileView, error) {
	var view models.ProfileView
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		employee, err := repo.GetEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		profile, err := loadProfile(ctx, repo, employeeID)
		if err != nil {
			return err
		}
		view = models.ProfileView{Employee: *employee, Profile: *profile}
		return nil
	})
	if err != nil {
		return nil, wrap(err, "get profile")
	}
	return &view, nil
}

func loadProfile(ctx context.Context, repo *db.Repository, employeeID string) (*models.Profile, error) {
	profile, err := repo.GetProfile(ctx, employeeID)
	if errors.Is(err, e.ErrNotFound) {
		return emptyProfile(employeeID), nil
	}
	return profile, err
}

func emptyProfile(employeeID string) *models.Profile {
	return &models.Profile{
		EmployeeID:    employeeID,
		Skills:        []string{},
		Education:     []models.Education{},
		Achievements:  []models.Achievement{},
		Certificates:  []models.Certificate{},
		LeaveRequests: []models.LeaveRequest{},
	}
}

// UpdateProfile upserts the scalar profile fields present in update.
func (s *SelfService) UpdateProfile(ctx context.Context, tenant string, update *models.ProfileUpdate) error {
	if update == nil || update.Empty() {
		return fmt.Errorf("%w: no profile fields supplied", e.ErrInvalidInput)
	}
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		if err := requireEmployee(ctx, repo, update.EmployeeID); err != nil {
			return err
		}
		return repo.UpdateProfile(ctx, update)
	})
	if err != nil {
		return wrap(err, "update profile")
	}
	s.publish(events.ProfileUpdated, tenant, update.EmployeeID, map[string]string{"section": "profile"})
	return nil
}

// UpdateEducation replaces the whole education history.
func (s *SelfService) UpdateEducation(ctx context.Context, tenant, employeeID string, education []models.Education) error {
	if education == nil {
		return fmt.Errorf("%w: education required", e.ErrInvalidInput)
	}
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		if err := requireEmployee(ctx, repo, employeeID); err != nil {
			return err
		}
		return repo.SetEducation(ctx, employeeID, education)
	})
	if err != nil {
		return wrap(err, "update education")
	}
	s.publish(events.ProfileUpdated, tenant, employeeID, map[string]string{"section": "education"})
	return nil
}

// UpdateSkills replaces the skill list and returns the list as stored.
// Blank and duplicate entries are dropped.
func (s *SelfService) UpdateSkills(ctx context.Context, tenant, employeeID string, skills []string) ([]string, error) {
	if skills == nil {
		return nil, fmt.Errorf("%w: skills required", e.ErrInvalidInput)
	}
	cleaned := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(skill)]; dup {
			continue
		}
		seen[strings.ToLower(skill)] = struct{}{}
		cleaned = append(cleaned, skill)
	}

	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		if err := requireEmployee(ctx, repo, employeeID); err != nil {
			return err
		}
		return repo.SetSkills(ctx, employeeID, cleaned)
	})
	if err != nil {
		return nil, wrap(err, "update skills")
	}
	s.publish(events.ProfileUpdated, tenant, employeeID, map[string]string{"section": "skills"})
	return cleaned, nil
}
