package controller

import (
	"context"
	"testing"
	"time"

	"github.com/gartstein/selfservice/internal/selfservice/db"
	dbmodels "github.com/gartstein/selfservice/internal/selfservice/db/models"
	e "github.com/gartstein/selfservice/internal/selfservice/errors"
	"github.com/gartstein/selfservice/internal/selfservice/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeProfile() *models.Profile {
	return &models.Profile{
		MobileNumber:   "555-0100",
		Department:     "R&D",
		ProjectSummary: "Payroll",
		WorkExperience: "5 years",
		ResumePath:     "E1_cv.pdf",
		Skills:         []string{"Go"},
		Education:      []models.Education{{Level: "college"}},
	}
}

func TestAssembleNotificationsCompleteness(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(p *models.Profile)
		kind    models.NotificationType
		message string
	}{
		{"mobile first", func(p *models.Profile) { p.MobileNumber = ""; p.Skills = nil },
			models.NotificationProfileCompletion, "Please add your mobile number to complete your profile."},
		{"blank department", func(p *models.Profile) { p.Department = "   " },
			models.NotificationProfileCompletion, "Please add your department to complete your profile."},
		{"project summary", func(p *models.Profile) { p.ProjectSummary = "" },
			models.NotificationProfileCompletion, "Please add a project summary to complete your profile."},
		{"work experience", func(p *models.Profile) { p.WorkExperience = "" },
			models.NotificationProfileCompletion, "Please add your work experience to complete your profile."},
		{"skills", func(p *models.Profile) { p.Skills = []string{}; p.ResumePath = "" },
			models.NotificationSkillsUpdate, "Add your key skills to improve your job matches."},
		{"education", func(p *models.Profile) { p.Education = nil },
			models.NotificationEducationUpdate, "Add your education details to complete your profile."},
		{"resume", func(p *models.Profile) { p.ResumePath = "" },
			models.NotificationResumeUpload, "Upload your resume to apply for jobs more easily."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := completeProfile()
			tt.mutate(profile)

			got := AssembleNotifications(now, nil, profile)
			require.Len(t, got, 1)
			assert.Equal(t, tt.kind, got[0].Type)
			assert.Equal(t, tt.message, got[0].Message)
			assert.Equal(t, now, got[0].Timestamp)
		})
	}
}

func TestAssembleNotificationsCompleteProfile(t *testing.T) {
	got := AssembleNotifications(time.Now(), nil, completeProfile())
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestAssembleNotificationsNilProfile(t *testing.T) {
	got := AssembleNotifications(time.Now(), nil, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "Complete Your Profile", got[0].Title)
	assert.Equal(t, "Please add your mobile number to complete your profile.", got[0].Message)
}

func TestAssembleNotificationsInvitationWindow(t *testing.T) {
	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	cutoff := now.Add(-InvitationWindow)
	invitations := []models.Invitation{
		{Title: "Fresh", ApplicationDate: now.Add(-time.Hour)},
		{Title: "Exactly thirty days", ApplicationDate: cutoff},
		{Title: "Just inside", ApplicationDate: cutoff.Add(time.Second)},
		{Title: "Stale", ApplicationDate: now.AddDate(0, 0, -45)},
	}

	got := AssembleNotifications(now, invitations, completeProfile())
	require.Len(t, got, 2)
	assert.Equal(t, "You have been invited to apply for the position of Fresh", got[0].Message)
	assert.Equal(t, "You have been invited to apply for the position of Just inside", got[1].Message)
	for _, n := range got {
		assert.Equal(t, models.NotificationJobApplication, n.Type)
		assert.Equal(t, "New Job Application", n.Title)
	}
}

func TestAssembleNotificationsOrdering(t *testing.T) {
	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	invitations := []models.Invitation{
		{Title: "Older", ApplicationDate: now.AddDate(0, 0, -10)},
		{Title: "Newer", ApplicationDate: now.AddDate(0, 0, -1)},
	}
	profile := completeProfile()
	profile.ResumePath = ""

	got := AssembleNotifications(now, invitations, profile)
	require.Len(t, got, 3)
	assert.Equal(t, models.NotificationResumeUpload, got[0].Type)
	assert.Equal(t, "You have been invited to apply for the position of Newer", got[1].Message)
	assert.Equal(t, "You have been invited to apply for the position of Older", got[2].Message)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Timestamp.After(got[i-1].Timestamp))
	}
}

func seedJobs(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	f.repo(t, func(repo *db.Repository) error {
		if err := repo.CreateCompany(ctx, "C2", "Globex"); err != nil {
			return err
		}
		for _, job := range []models.Job{
			{ID: "J1", CompanyID: "C1", Title: "Backend Engineer", CreatedAt: f.now.AddDate(0, 0, -3)},
			{ID: "J2", CompanyID: "C1", Title: "Data Analyst", CreatedAt: f.now.AddDate(0, 0, -1)},
			{ID: "J3", CompanyID: "X9", Title: "Orphan", CreatedAt: f.now},
		} {
			job := job
			if err := repo.CreateJob(ctx, &job); err != nil {
				return err
			}
		}
		for _, promotion := range []dbmodels.JobPromotion{
			{JobID: "J1", CompanyID: "C1", Title: "Backend Engineer", CreatedAt: f.now.AddDate(0, 0, -2),
				CandidateEmails: []dbmodels.Candidate{{Email: testEmail}, {Email: "bob@acme.test"}}},
			{JobID: "P2", CompanyID: "C2", Title: "Staff Engineer", CreatedAt: f.now.AddDate(0, 0, -45),
				CandidateEmails: []dbmodels.Candidate{{Email: testEmail}}},
			{JobID: "P3", CompanyID: "C1", Title: "Not For Ada", CreatedAt: f.now,
				CandidateEmails: []dbmodels.Candidate{{Email: "bob@acme.test"}}},
		} {
			promotion := promotion
			if err := repo.CreatePromotion(ctx, &promotion); err != nil {
				return err
			}
		}
		return nil
	})
}

func TestListCompanyJobs(t *testing.T) {
	f := newFixture(t, nil)
	seedJobs(t, f)

	jobs, err := f.svc.ListCompanyJobs(context.Background(), testTenant)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "J2", jobs[0].ID)
	assert.Equal(t, "J1", jobs[1].ID)
}

func TestListInvitations(t *testing.T) {
	f := newFixture(t, nil)
	seedJobs(t, f)

	invitations, err := f.svc.ListInvitations(context.Background(), testTenant, testEmployee)
	require.NoError(t, err)
	require.Len(t, invitations, 2)
	assert.Equal(t, "J1", invitations[0].JobID)
	assert.Equal(t, "Acme Corp", invitations[0].CompanyName)
	assert.Equal(t, "P2", invitations[1].JobID)
	assert.Equal(t, "Globex", invitations[1].CompanyName)
	for _, inv := range invitations {
		assert.Equal(t, models.InvitedStatus, inv.Status)
	}

	_, err = f.svc.ListInvitations(context.Background(), testTenant, "nobody")
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestListNotifications(t *testing.T) {
	f := newFixture(t, nil)
	seedJobs(t, f)
	ctx := context.Background()

	got, err := f.svc.ListNotifications(ctx, testTenant, testEmployee)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.NotificationProfileCompletion, got[0].Type)
	assert.Equal(t, f.now, got[0].Timestamp)
	assert.Equal(t, "You have been invited to apply for the position of Backend Engineer", got[1].Message)

	require.NoError(t, f.svc.UpdateProfile(ctx, testTenant, &models.ProfileUpdate{
		EmployeeID:     testEmployee,
		MobileNumber:   strPtr("555-0100"),
		Department:     strPtr("R&D"),
		ProjectSummary: strPtr("Payroll"),
		WorkExperience: strPtr("5 years"),
	}))
	got, err = f.svc.ListNotifications(ctx, testTenant, testEmployee)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.NotificationSkillsUpdate, got[0].Type)
}
