package db

import (
	"context"
	"testing"
	"time"

	"github.com/gartstein/selfservice/internal/selfservice/db/models"
	e "github.com/gartstein/selfservice/internal/selfservice/errors"
	domain "github.com/gartstein/selfservice/internal/selfservice/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupTestDB initializes a private in-memory SQLite database for testing.
func SetupTestDB(t *testing.T) *Repository {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to open test database")

	repo := NewRepository(db)
	require.NoError(t, repo.Migrate(context.Background()), "failed to migrate test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return repo
}

func seedEmployee(t *testing.T, repo *Repository, id string) *domain.Employee {
	t.Helper()
	ctx := context.Background()
	_ = repo.CreateCompany(ctx, "c1", "Acme")
	employee := &domain.Employee{
		ID:        id,
		Email:     id + "@acme.test",
		FirstName: "Ada",
		LastName:  "Lovelace",
		CompanyID: "c1",
		LeaveBalance: domain.LeaveBalance{
			"annual": {Allocated: 10, Used: 0, Remaining: 10},
		},
	}
	require.NoError(t, repo.CreateEmployee(ctx, employee))
	return employee
}

func TestCreateAndGetEmployee(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	seedEmployee(t, repo, "E1")

	got, err := repo.GetEmployee(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "E1@acme.test", got.Email)
	assert.Equal(t, 10, got.LeaveBalance["annual"].Remaining)

	byEmail, err := repo.GetEmployeeByEmail(ctx, "E1@acme.test")
	require.NoError(t, err)
	assert.Equal(t, "E1", byEmail.ID)

	exists, err := repo.EmployeeExists(ctx, "E1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGetEmployeeNotFound(t *testing.T) {
	repo := SetupTestDB(t)

	_, err := repo.GetEmployee(context.Background(), "missing")
	assert.ErrorIs(t, err, e.ErrNotFound)

	exists, err := repo.EmployeeExists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateEmployeeDuplicate(t *testing.T) {
	repo := SetupTestDB(t)
	seedEmployee(t, repo, "E1")

	err := repo.CreateEmployee(context.Background(), &domain.Employee{ID: "E1", Email: "other@acme.test"})
	assert.ErrorIs(t, err, e.ErrConflict)
}

func TestGetCompanyName(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateCompany(ctx, "c1", "Acme"))

	name, err := repo.GetCompanyName(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", name)

	_, err = repo.GetCompanyName(ctx, "c2")
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestGetProfileMissing(t *testing.T) {
	repo := SetupTestDB(t)
	seedEmployee(t, repo, "E1")

	_, err := repo.GetProfile(context.Background(), "E1")
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestUpdateProfileCreatesThenUpdates(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	seedEmployee(t, repo, "E1")

	mobile := "555-0100"
	require.NoError(t, repo.UpdateProfile(ctx, &domain.ProfileUpdate{EmployeeID: "E1", MobileNumber: &mobile}))

	dept := "R&D"
	require.NoError(t, repo.UpdateProfile(ctx, &domain.ProfileUpdate{EmployeeID: "E1", Department: &dept}))

	profile, err := repo.GetProfile(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "555-0100", profile.MobileNumber, "earlier field must survive a partial update")
	assert.Equal(t, "R&D", profile.Department)
	assert.Empty(t, profile.Skills)
	assert.NotNil(t, profile.Achievements)
}

func TestUpdateProfileEmpty(t *testing.T) {
	repo := SetupTestDB(t)

	err := repo.UpdateProfile(context.Background(), &domain.ProfileUpdate{EmployeeID: "E1"})
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

func TestSetSkillsAndEducation(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	seedEmployee(t, repo, "E1")

	require.NoError(t, repo.SetSkills(ctx, "E1", []string{"go", "sql"}))
	require.NoError(t, repo.SetEducation(ctx, "E1", []domain.Education{{Level: "college", Institution: "MIT"}}))
	require.NoError(t, repo.SetSkills(ctx, "E1", []string{"go"}))

	profile, err := repo.GetProfile(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, profile.Skills)
	require.Len(t, profile.Education, 1)
	assert.Equal(t, "MIT", profile.Education[0].Institution)
}

func TestResumePath(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	seedEmployee(t, repo, "E1")

	_, err := repo.GetResumePathForUpdate(ctx, "E1")
	assert.ErrorIs(t, err, e.ErrNotFound)

	require.NoError(t, repo.SetResumePath(ctx, "E1", "E1_cv.pdf"))
	path, err := repo.GetResumePathForUpdate(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "E1_cv.pdf", path)

	require.NoError(t, repo.ClearResumePath(ctx, "E1"))
	path, err = repo.GetResumePathForUpdate(ctx, "E1")
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestAchievementIDsAreNeverReused(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	seedEmployee(t, repo, "E1")

	first, err := repo.AddAchievement(ctx, "E1", domain.Achievement{Title: "A"})
	require.NoError(t, err)
	second, err := repo.AddAchievement(ctx, "E1", domain.Achievement{Title: "B"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)

	require.NoError(t, repo.DeleteAchievement(ctx, "E1", 1))
	third, err := repo.AddAchievement(ctx, "E1", domain.Achievement{Title: "C"})
	require.NoError(t, err)
	assert.Equal(t, 3, third.ID)

	require.NoError(t, repo.DeleteAchievement(ctx, "E1", 3))
	require.NoError(t, repo.DeleteAchievement(ctx, "E1", 2))
	fourth, err := repo.AddAchievement(ctx, "E1", domain.Achievement{Title: "D"})
	require.NoError(t, err)
	assert.Equal(t, 4, fourth.ID, "an emptied collection must not restart numbering")
}

func TestUpdateAndDeleteAchievementNotFound(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	seedEmployee(t, repo, "E1")

	_, err := repo.UpdateAchievement(ctx, "E1", domain.Achievement{ID: 7})
	assert.ErrorIs(t, err, e.ErrNotFound, "no profile row yet")

	_, err = repo.AddAchievement(ctx, "E1", domain.Achievement{Title: "A"})
	require.NoError(t, err)

	_, err = repo.UpdateAchievement(ctx, "E1", domain.Achievement{ID: 7})
	assert.ErrorIs(t, err, e.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteAchievement(ctx, "E1", 7), e.ErrNotFound)

	updated, err := repo.UpdateAchievement(ctx, "E1", domain.Achievement{ID: 1, Title: "A2", Quarter: "Q2"})
	require.NoError(t, err)
	assert.Equal(t, "A2", updated.Title)

	profile, err := repo.GetProfile(ctx, "E1")
	require.NoError(t, err)
	require.Len(t, profile.Achievements, 1)
	assert.Equal(t, "Q2", profile.Achievements[0].Quarter)
}

func TestCertificateLifecycle(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	seedEmployee(t, repo, "E1")

	cert, err := repo.AddCertificate(ctx, "E1", domain.Certificate{Filename: "E1_20240101000000_aws.pdf", UploadDate: time.Now().UTC()})
	require.NoError(t, err)
	assert.Equal(t, 1, cert.ID)

	found, err := repo.FindCertificate(ctx, "E1", cert.ID, true)
	require.NoError(t, err)
	assert.Equal(t, cert.Filename, found.Filename)

	removed, err := repo.RemoveCertificate(ctx, "E1", cert.ID)
	require.NoError(t, err)
	assert.Equal(t, cert.Filename, removed.Filename)

	_, err = repo.FindCertificate(ctx, "E1", cert.ID, false)
	assert.ErrorIs(t, err, e.ErrNotFound)

	next, err := repo.AddCertificate(ctx, "E1", domain.Certificate{Filename: "x.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 2, next.ID)
}

func TestLeaveBalanceRoundTrip(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	seedEmployee(t, repo, "E1")

	balance, err := repo.GetLeaveBalanceForUpdate(ctx, "E1")
	require.NoError(t, err)
	require.NoError(t, balance.Debit("annual", 3))
	require.NoError(t, repo.SetLeaveBalance(ctx, "E1", balance))

	stored, err := repo.GetLeaveBalance(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, domain.LeaveEntry{Allocated: 10, Used: 3, Remaining: 7}, stored["annual"])

	_, err = repo.GetLeaveBalance(ctx, "missing")
	assert.ErrorIs(t, err, e.ErrNotFound)
	assert.ErrorIs(t, repo.SetLeaveBalance(ctx, "missing", balance), e.ErrNotFound)
}

func TestLeaveRequests(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	seedEmployee(t, repo, "E1")

	requests, err := repo.ListLeaveRequests(ctx, "E1")
	require.NoError(t, err)
	assert.Empty(t, requests)

	_, err = repo.AppendLeaveRequest(ctx, "E1", domain.LeaveRequest{ID: "r1", LeaveType: "annual", Days: 2, Status: domain.StatusPending})
	require.NoError(t, err)
	_, err = repo.AppendLeaveRequest(ctx, "E1", domain.LeaveRequest{ID: "r2", LeaveType: "annual", Days: 1, Status: domain.StatusPending})
	require.NoError(t, err)

	requests, err = repo.ListLeaveRequests(ctx, "E1")
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "r1", requests[0].ID)
	assert.Equal(t, "r2", requests[1].ID)
}

func TestTerminationRequestIsSingleton(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	seedEmployee(t, repo, "E1")

	_, err := repo.GetTerminationRequest(ctx, "E1")
	assert.ErrorIs(t, err, e.ErrNotFound)

	req := &domain.TerminationRequest{Reason: "relocation", Status: domain.StatusPending}
	require.NoError(t, repo.CreateTerminationRequest(ctx, "E1", req))

	err = repo.CreateTerminationRequest(ctx, "E1", &domain.TerminationRequest{Reason: "again"})
	assert.ErrorIs(t, err, e.ErrConflict)

	stored, err := repo.GetTerminationRequest(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "relocation", stored.Reason)
}

func TestListInvitationsByMembership(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateCompany(ctx, "c1", "Acme"))

	now := time.Now().UTC()
	require.NoError(t, repo.CreatePromotion(ctx, &models.JobPromotion{
		JobID: "J1", CompanyID: "c1", Title: "Engineer",
		CandidateEmails: []models.Candidate{{Email: "a@acme.test"}, {Email: "b@acme.test"}},
		CreatedAt:       now.Add(-time.Hour),
	}))
	require.NoError(t, repo.CreatePromotion(ctx, &models.JobPromotion{
		JobID: "J2", CompanyID: "c1", Title: "Analyst",
		CandidateEmails: []models.Candidate{{Email: "b@acme.test"}},
		CreatedAt:       now,
	}))

	invitations, err := repo.ListInvitations(ctx, "a@acme.test")
	require.NoError(t, err)
	require.Len(t, invitations, 1)
	assert.Equal(t, "J1", invitations[0].JobID)
	assert.Equal(t, "Acme", invitations[0].CompanyName)
	assert.Equal(t, domain.InvitedStatus, invitations[0].Status)

	invitations, err = repo.ListInvitations(ctx, "b@acme.test")
	require.NoError(t, err)
	require.Len(t, invitations, 2)
	assert.Equal(t, "J2", invitations[0].JobID, "newest first")

	invitations, err = repo.ListInvitations(ctx, "nobody@acme.test")
	require.NoError(t, err)
	assert.Empty(t, invitations)
}

func TestListCompanyJobs(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateCompany(ctx, "c1", "Acme"))

	now := time.Now().UTC()
	require.NoError(t, repo.CreateJob(ctx, &domain.Job{ID: "J1", CompanyID: "c1", Title: "Old", CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, repo.CreateJob(ctx, &domain.Job{ID: "J2", CompanyID: "c1", Title: "New", CreatedAt: now}))
	require.NoError(t, repo.CreateJob(ctx, &domain.Job{ID: "J3", CompanyID: "other", Title: "Foreign", CreatedAt: now}))

	jobs, err := repo.ListCompanyJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "J2", jobs[0].ID)
}

func TestWithTransactionRollsBack(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	seedEmployee(t, repo, "E1")

	err := repo.WithTransaction(ctx, func(tx *Repository) error {
		require.NoError(t, tx.SetSkills(ctx, "E1", []string{"go"}))
		return e.ErrConflict
	})
	assert.ErrorIs(t, err, e.ErrConflict)

	_, err = repo.GetProfile(ctx, "E1")
	assert.ErrorIs(t, err, e.ErrNotFound, "profile insert must be rolled back")
}
