// Package db implements the tenant-scoped repository over GORM. A Repository
// wraps the connection of exactly one tenant database; the tenant registry
// decides which one.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gartstein/selfservice/internal/selfservice/db/models"
	e "github.com/gartstein/selfservice/internal/selfservice/errors"
	domain "github.com/gartstein/selfservice/internal/selfservice/models"
	"gorm.io/gorm"
)

var (
	achievements = Collection{
		Table:   models.ProfilesTable,
		Key:     models.EmployeeKey,
		Column:  models.ColumnAchievements,
		Counter: models.ColumnAchievementSeq,
	}
	certificates = Collection{
		Table:   models.ProfilesTable,
		Key:     models.EmployeeKey,
		Column:  models.ColumnCertificates,
		Counter: models.ColumnCertificateSeq,
	}
	leaveRequests = Collection{
		Table:  models.ProfilesTable,
		Key:    models.EmployeeKey,
		Column: models.ColumnLeaveRequests,
	}

	achievementIDs = &IDPolicy[domain.Achievement]{
		Get: func(a domain.Achievement) int { return a.ID },
		Set: func(a *domain.Achievement, id int) { a.ID = id },
	}
	certificateIDs = &IDPolicy[domain.Certificate]{
		Get: func(c domain.Certificate) int { return c.ID },
		Set: func(c *domain.Certificate, id int) { c.ID = id },
	}
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the tenant schema.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (r *Repository) CreateCompany(ctx context.Context, id, name string) error {
	return r.db.WithContext(ctx).Create(&models.Company{ID: id, Name: name}).Error
}

func (r *Repository) CreateEmployee(ctx context.Context, employee *domain.Employee) error {
	result := r.db.WithContext(ctx).Create(employeeToRow(employee))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: employee already exists", e.ErrConflict)
		}
		return result.Error
	}
	return nil
}

func (r *Repository) CreateJob(ctx context.Context, job *domain.Job) error {
	return r.db.WithContext(ctx).Create(&models.Job{
		ID:             job.ID,
		CompanyID:      job.CompanyID,
		Title:          job.Title,
		Description:    job.Description,
		Location:       job.Location,
		Department:     job.Department,
		AdditionalInfo: job.AdditionalInfo,
		CreatedAt:      job.CreatedAt,
	}).Error
}

func (r *Repository) CreatePromotion(ctx context.Context, promotion *models.JobPromotion) error {
	return r.db.WithContext(ctx).Create(promotion).Error
}

func (r *Repository) GetEmployee(ctx context.Context, id string) (*domain.Employee, error) {
	return r.findEmployee(ctx, "employee_id = ?", id)
}

func (r *Repository) GetEmployeeByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	return r.findEmployee(ctx, "email = ?", email)
}

func (r *Repository) findEmployee(ctx context.Context, query string, arg string) (*domain.Employee, error) {
	var row models.Employee
	result := r.db.WithContext(ctx).Take(&row, query, arg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return rowToEmployee(&row), nil
}

func (r *Repository) EmployeeExists(ctx context.Context, id string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Employee{}).
		Where("employee_id = ?", id).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) GetCompanyName(ctx context.Context, id string) (string, error) {
	var company models.Company
	result := r.db.WithContext(ctx).Take(&company, "comp_id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", e.ErrNotFound
		}
		return "", result.Error
	}
	return company.Name, nil
}

// ListCompanyJobs returns the jobs posted by the tenant's own company.
func (r *Repository) ListCompanyJobs(ctx context.Context) ([]domain.Job, error) {
	var rows []models.Job
	result := r.db.WithContext(ctx).
		Where("comp_id IN (?)", r.db.Model(&models.Company{}).Select("comp_id")).
		Order("created_at DESC").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	jobs := make([]domain.Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, domain.Job{
			ID:             row.ID,
			CompanyID:      row.CompanyID,
			Title:          row.Title,
			Description:    row.Description,
			Location:       row.Location,
			Department:     row.Department,
			AdditionalInfo: row.AdditionalInfo,
			CreatedAt:      row.CreatedAt,
		})
	}
	return jobs, nil
}

type invitationRow struct {
	models.JobPromotion
	CompanyName string `gorm:"column:comp_name"`
}

// ListInvitations returns the promoted jobs whose candidate list contains email, newest first.
func (r *Repository) ListInvitations(ctx context.Context, email string) ([]domain.Invitation, error) {
	membership, arg, err := r.candidateMembership(email)
	if err != nil {
		return nil, err
	}
	var rows []invitationRow
	result := r.db.WithContext(ctx).
		Table("job_promotions").
		Select("job_promotions.*, companies.comp_name").
		Joins("JOIN companies ON companies.comp_id = job_promotions.comp_id").
		Where(membership, arg).
		Order("job_promotions.created_at DESC").
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	invitations := make([]domain.Invitation, 0, len(rows))
	for _, row := range rows {
		invitations = append(invitations, domain.Invitation{
			JobID:              row.JobID,
			Title:              row.Title,
			Description:        row.Description,
			Location:           row.Location,
			AdditionalInfo:     row.AdditionalInfo,
			CompanyName:        row.CompanyName,
			Department:         row.Department,
			Status:             domain.InvitedStatus,
			ApplicationDate:    row.CreatedAt,
			PsyQuestions:       row.PsyQuestions,
			CaseStudyQuestions: row.CaseStudyQuestions,
			GDData:             row.GDData,
			MBTIData:           row.MBTIData,
		})
	}
	return invitations, nil
}

// candidateMembership builds the JSON membership predicate for the active dialect.
func (r *Repository) candidateMembership(email string) (string, interface{}, error) {
	switch r.db.Dialector.Name() {
	case "postgres":
		probe, err := json.Marshal([]models.Candidate{{Email: email}})
		if err != nil {
			return "", nil, err
		}
		return "job_promotions.candidate_emails::jsonb @> ?::jsonb", string(probe), nil
	case "sqlite":
		return "EXISTS (SELECT 1 FROM json_each(job_promotions.candidate_emails) " +
			"WHERE json_extract(json_each.value, '$.email') = ?)", email, nil
	default:
		return "", nil, fmt.Errorf("unsupported dialect %q", r.db.Dialector.Name())
	}
}

// GetProfile returns the profile document, or e.ErrNotFound when it was never written.
func (r *Repository) GetProfile(ctx context.Context, employeeID string) (*domain.Profile, error) {
	var row models.Profile
	result := r.db.WithContext(ctx).Take(&row, "employee_id = ?", employeeID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return rowToProfile(&row), nil
}

// UpdateProfile upserts the scalar fields present in update.
func (r *Repository) UpdateProfile(ctx context.Context, update *domain.ProfileUpdate) error {
	fields := map[string]interface{}{}
	if update.MobileNumber != nil {
		fields["mobile_number"] = *update.MobileNumber
	}
	if update.Department != nil {
		fields["department"] = *update.Department
	}
	if update.ProjectSummary != nil {
		fields["project_summary"] = *update.ProjectSummary
	}
	if update.WorkExperience != nil {
		fields["work_experience"] = *update.WorkExperience
	}
	return UpsertFields(ctx, r.db, models.ProfilesTable, models.EmployeeKey, update.EmployeeID, fields)
}

func (r *Repository) SetSkills(ctx context.Context, employeeID string, skills []string) error {
	if skills == nil {
		skills = []string{}
	}
	return UpsertFields(ctx, r.db, models.ProfilesTable, models.EmployeeKey, employeeID,
		map[string]interface{}{models.ColumnSkills: skills})
}

func (r *Repository) SetEducation(ctx context.Context, employeeID string, education []domain.Education) error {
	if education == nil {
		education = []domain.Education{}
	}
	return UpsertFields(ctx, r.db, models.ProfilesTable, models.EmployeeKey, employeeID,
		map[string]interface{}{models.ColumnEducation: education})
}

func (r *Repository) SetResumePath(ctx context.Context, employeeID, path string) error {
	return UpsertFields(ctx, r.db, models.ProfilesTable, models.EmployeeKey, employeeID,
		map[string]interface{}{models.ColumnResumePath: path})
}

// GetResumePathForUpdate locks the profile row and returns its resume path ("" when none).
func (r *Repository) GetResumePathForUpdate(ctx context.Context, employeeID string) (string, error) {
	var path sql.NullString
	err := ownerRow(r.db.WithContext(ctx), models.ProfilesTable, models.EmployeeKey, employeeID, true).
		Select(models.ColumnResumePath).
		Row().
		Scan(&path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", e.ErrNotFound
		}
		return "", err
	}
	return path.String, nil
}

func (r *Repository) ClearResumePath(ctx context.Context, employeeID string) error {
	result := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("employee_id = ?", employeeID).
		Update(models.ColumnResumePath, nil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) AddAchievement(ctx context.Context, employeeID string, a domain.Achievement) (domain.Achievement, error) {
	return AppendToCollection(ctx, r.db, achievements, employeeID, a, achievementIDs)
}

func (r *Repository) UpdateAchievement(ctx context.Context, employeeID string, a domain.Achievement) (domain.Achievement, error) {
	return ReplaceInCollection(ctx, r.db, achievements, employeeID,
		func(existing domain.Achievement) bool { return existing.ID == a.ID },
		func(existing *domain.Achievement) { *existing = a },
	)
}

func (r *Repository) DeleteAchievement(ctx context.Context, employeeID string, id int) error {
	_, err := RemoveFromCollection(ctx, r.db, achievements, employeeID,
		func(existing domain.Achievement) bool { return existing.ID == id })
	return err
}

func (r *Repository) AddCertificate(ctx context.Context, employeeID string, c domain.Certificate) (domain.Certificate, error) {
	return AppendToCollection(ctx, r.db, certificates, employeeID, c, certificateIDs)
}

// FindCertificate looks a certificate up by id, optionally locking the profile row.
func (r *Repository) FindCertificate(ctx context.Context, employeeID string, id int, lock bool) (*domain.Certificate, error) {
	read := ReadDocument[[]domain.Certificate]
	if lock {
		read = ReadDocumentForUpdate[[]domain.Certificate]
	}
	certs, err := read(ctx, r.db, models.ProfilesTable, models.EmployeeKey, employeeID, models.ColumnCertificates)
	if err != nil {
		return nil, err
	}
	if certs != nil {
		for _, c := range *certs {
			if c.ID == id {
				return &c, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: certificate %d", e.ErrNotFound, id)
}

func (r *Repository) RemoveCertificate(ctx context.Context, employeeID string, id int) (domain.Certificate, error) {
	return RemoveFromCollection(ctx, r.db, certificates, employeeID,
		func(existing domain.Certificate) bool { return existing.ID == id })
}

// GetLeaveBalance returns the employee's ledger; an unset ledger is empty.
func (r *Repository) GetLeaveBalance(ctx context.Context, employeeID string) (domain.LeaveBalance, error) {
	return r.leaveBalance(ctx, employeeID, false)
}

// GetLeaveBalanceForUpdate is GetLeaveBalance holding the employee row lock.
func (r *Repository) GetLeaveBalanceForUpdate(ctx context.Context, employeeID string) (domain.LeaveBalance, error) {
	return r.leaveBalance(ctx, employeeID, true)
}

func (r *Repository) leaveBalance(ctx context.Context, employeeID string, lock bool) (domain.LeaveBalance, error) {
	read := ReadDocument[domain.LeaveBalance]
	if lock {
		read = ReadDocumentForUpdate[domain.LeaveBalance]
	}
	balance, err := read(ctx, r.db, models.EmployeesTable, models.EmployeeKey, employeeID, models.ColumnLeaveBalance)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return domain.LeaveBalance{}, nil
	}
	return *balance, nil
}

func (r *Repository) SetLeaveBalance(ctx context.Context, employeeID string, balance domain.LeaveBalance) error {
	return WriteDocument(ctx, r.db, models.EmployeesTable, models.EmployeeKey, employeeID, models.ColumnLeaveBalance, balance)
}

// ListLeaveRequests returns the employee's leave requests; a missing profile has none.
func (r *Repository) ListLeaveRequests(ctx context.Context, employeeID string) ([]domain.LeaveRequest, error) {
	requests, err := ReadDocument[[]domain.LeaveRequest](ctx, r.db, models.ProfilesTable, models.EmployeeKey, employeeID, models.ColumnLeaveRequests)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return []domain.LeaveRequest{}, nil
		}
		return nil, err
	}
	if requests == nil {
		return []domain.LeaveRequest{}, nil
	}
	return *requests, nil
}

func (r *Repository) AppendLeaveRequest(ctx context.Context, employeeID string, req domain.LeaveRequest) (domain.LeaveRequest, error) {
	return AppendToCollection[domain.LeaveRequest](ctx, r.db, leaveRequests, employeeID, req, nil)
}

// GetTerminationRequest returns e.ErrNotFound when the employee has none.
func (r *Repository) GetTerminationRequest(ctx context.Context, employeeID string) (*domain.TerminationRequest, error) {
	req, err := ReadDocument[domain.TerminationRequest](ctx, r.db, models.ProfilesTable, models.EmployeeKey, employeeID, models.ColumnTerminationRequest)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, e.ErrNotFound
	}
	return req, nil
}

// CreateTerminationRequest stores req unless one already exists (e.ErrConflict).
func (r *Repository) CreateTerminationRequest(ctx context.Context, employeeID string, req *domain.TerminationRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := EnsureRow(ctx, tx, models.ProfilesTable, models.EmployeeKey, employeeID); err != nil {
			return err
		}
		existing, err := ReadDocumentForUpdate[domain.TerminationRequest](ctx, tx, models.ProfilesTable, models.EmployeeKey, employeeID, models.ColumnTerminationRequest)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: a termination request already exists", e.ErrConflict)
		}
		return WriteDocument(ctx, tx, models.ProfilesTable, models.EmployeeKey, employeeID, models.ColumnTerminationRequest, req)
	})
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}
