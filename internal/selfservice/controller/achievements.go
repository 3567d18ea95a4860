package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/gartstein/selfservice/internal/selfservice/db"
	e "github.com/gartstein/selfservice/internal/selfservice/errors"
	"github.com/gartstein/selfservice/internal/selfservice/models"
)

// ListAchievements returns the achievements together with the certificates.
func (s *SelfService) ListAchievements(ctx context.Context, tenant, employeeID string) (*models.AchievementsView, error) {
	var view models.AchievementsView
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		if err := requireEmployee(ctx, repo, employeeID); err != nil {
			return err
		}
		profile, err := loadProfile(ctx, repo, employeeID)
		if err != nil {
			return err
		}
		view = models.AchievementsView{Achievements: profile.Achievements, Certificates: profile.Certificates}
		return nil
	})
	if err != nil {
		return nil, wrap(err, "list achievements")
	}
	return &view, nil
}

func validateAchievement(a *models.Achievement) error {
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		return fmt.Errorf("%w: achievement title required", e.ErrInvalidInput)
	}
	return nil
}

// AddAchievement appends an achievement and returns it with its new id.
func (s *SelfService) AddAchievement(ctx context.Context, tenant, employeeID string, achievement models.Achievement) (*models.Achievement, error) {
	if err := validateAchievement(&achievement); err != nil {
		return nil, err
	}
	achievement.ID = 0

	var added models.Achievement
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		if err := requireEmployee(ctx, repo, employeeID); err != nil {
			return err
		}
		var err error
		added, err = repo.AddAchievement(ctx, employeeID, achievement)
		return err
	})
	if err != nil {
		return nil, wrap(err, "add achievement")
	}
	return &added, nil
}

// UpdateAchievement replaces the achievement with the given id.
func (s *SelfService) UpdateAchievement(ctx context.Context, tenant, employeeID string, achievement models.Achievement) (*models.Achievement, error) {
	if err := validateAchievement(&achievement); err != nil {
		return nil, err
	}

	var updated models.Achievement
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		var err error
		updated, err = repo.UpdateAchievement(ctx, employeeID, achievement)
		return err
	})
	if err != nil {
		return nil, wrap(err, "update achievement")
	}
	return &updated, nil
}

// DeleteAchievement removes one achievement; its id is never handed out again.
func (s *SelfService) DeleteAchievement(ctx context.Context, tenant, employeeID string, achievementID int) error {
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		return repo.DeleteAchievement(ctx, employeeID, achievementID)
	})
	return wrap(err, "delete achievement")
}
