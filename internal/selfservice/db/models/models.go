// Package models contains the per-tenant persistence models,
// configured to work using GORM as the ORM. Document columns are stored as
// JSON text through GORM's json serializer so the same schema works on
// Postgres and SQLite.
package models

import (
	"time"

	domain "github.com/gartstein/selfservice/internal/selfservice/models"
)

// Table and column names shared with the document store adapter.
const (
	EmployeesTable = "employees"
	ProfilesTable  = "profiles"

	EmployeeKey = "employee_id"

	ColumnLeaveBalance       = "leave_balance"
	ColumnSkills             = "skills"
	ColumnEducation          = "education"
	ColumnAchievements       = "achievements"
	ColumnCertificates       = "certificates"
	ColumnLeaveRequests      = "leave_requests"
	ColumnTerminationRequest = "termination_request"
	ColumnResumePath         = "resume_path"
	ColumnAchievementSeq     = "achievement_seq"
	ColumnCertificateSeq     = "certificate_seq"
)

// Company is the tenant's own company row.
type Company struct {
	ID   string `gorm:"column:comp_id;primaryKey;size:64"`
	Name string `gorm:"column:comp_name;size:255"`
}

// Employee is the identity row of an employee.
type Employee struct {
	ID           string              `gorm:"column:employee_id;primaryKey;size:64"`
	Email        string              `gorm:"column:email;size:255;uniqueIndex"`
	FirstName    string              `gorm:"column:first_name;size:255"`
	LastName     string              `gorm:"column:last_name;size:255"`
	Designation  string              `gorm:"column:designation;size:255"`
	Location     string              `gorm:"column:location;size:255"`
	CompanyID    string              `gorm:"column:comp_id;size:64;index"`
	PasswordHash string              `gorm:"column:password_hash;size:255"`
	ManagerEmail string              `gorm:"column:manager_email;size:255"`
	LeaveBalance domain.LeaveBalance `gorm:"column:leave_balance;type:text;serializer:json"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the lazily created self-service document of an employee.
type Profile struct {
	EmployeeID         string                     `gorm:"column:employee_id;primaryKey;size:64"`
	MobileNumber       *string                    `gorm:"column:mobile_number;size:32"`
	Department         *string                    `gorm:"column:department;size:255"`
	ProjectSummary     *string                    `gorm:"column:project_summary;type:text"`
	WorkExperience     *string                    `gorm:"column:work_experience;type:text"`
	ResumePath         *string                    `gorm:"column:resume_path;size:512"`
	Skills             []string                   `gorm:"column:skills;type:text;serializer:json"`
	Education          []domain.Education         `gorm:"column:education;type:text;serializer:json"`
	Achievements       []domain.Achievement       `gorm:"column:achievements;type:text;serializer:json"`
	Certificates       []domain.Certificate       `gorm:"column:certificates;type:text;serializer:json"`
	LeaveRequests      []domain.LeaveRequest      `gorm:"column:leave_requests;type:text;serializer:json"`
	TerminationRequest *domain.TerminationRequest `gorm:"column:termination_request;type:text;serializer:json"`
	AchievementSeq     int                        `gorm:"column:achievement_seq;not null;default:0"`
	CertificateSeq     int                        `gorm:"column:certificate_seq;not null;default:0"`
}

// Job is a company job posting.
type Job struct {
	ID             string    `gorm:"column:job_id;primaryKey;size:64"`
	CompanyID      string    `gorm:"column:comp_id;size:64;index"`
	Title          string    `gorm:"column:job_title;size:255"`
	Description    string    `gorm:"column:job_description;type:text"`
	Location       string    `gorm:"column:job_location;size:255"`
	Department     string    `gorm:"column:department;size:255"`
	AdditionalInfo string    `gorm:"column:additional_info;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

// Candidate is one invited email of a promoted job.
type Candidate struct {
	Email string `json:"email"`
}

// JobPromotion is a job pushed to selected candidate emails.
type JobPromotion struct {
	ID                 uint        `gorm:"column:id;primaryKey"`
	JobID              string      `gorm:"column:job_id;size:64;index"`
	CompanyID          string      `gorm:"column:comp_id;size:64"`
	Title              string      `gorm:"column:job_title;size:255"`
	Description        string      `gorm:"column:job_description;type:text"`
	Location           string      `gorm:"column:job_location;size:255"`
	Department         string      `gorm:"column:department;size:255"`
	AdditionalInfo     string      `gorm:"column:additional_info;type:text"`
	CandidateEmails    []Candidate `gorm:"column:candidate_emails;type:text;serializer:json"`
	PsyQuestions       string      `gorm:"column:psy_questions;type:text"`
	CaseStudyQuestions string      `gorm:"column:case_study_questions;type:text"`
	GDData             string      `gorm:"column:gd_data;type:text"`
	MBTIData           string      `gorm:"column:mbti_data;type:text"`
	CreatedAt          time.Time   `gorm:"column:created_at;index"`
}

func (Company) TableName() string      { return "companies" }
func (Employee) TableName() string     { return EmployeesTable }
func (Profile) TableName() string      { return ProfilesTable }
func (Job) TableName() string          { return "jobs" }
func (JobPromotion) TableName() string { return "job_promotions" }

// All lists every model of a tenant schema, in migration order.
func All() []interface{} {
	return []interface{}{&Company{}, &Employee{}, &Profile{}, &Job{}, &JobPromotion{}}
}
