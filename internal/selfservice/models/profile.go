package models

import (
	"time"
)

// LeaveStatus is the lifecycle state of a leave or termination request.
type LeaveStatus string

const (
	StatusPending  LeaveStatus = "Pending"
	StatusApproved LeaveStatus = "Approved"
	StatusRejected LeaveStatus = "Rejected"
)

// Valid reports whether s is one of the known statuses.
func (s LeaveStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Profile is the mutable self-service record of an employee.
// A missing profile row is represented by the zero value.
type Profile struct {
	EmployeeID         string              `json:"-"`
	MobileNumber       string              `json:"mobile_number"`
	Department         string              `json:"department"`
	ProjectSummary     string              `json:"project_summary"`
	WorkExperience     string              `json:"work_experience"`
	ResumePath         string              `json:"resume_path"`
	Skills             []string            `json:"skills"`
	Education          []Education         `json:"education"`
	Achievements       []Achievement       `json:"achievements"`
	Certificates       []Certificate       `json:"certificates"`
	LeaveRequests      []LeaveRequest      `json:"leave_requests"`
	TerminationRequest *TerminationRequest `json:"termination_request,omitempty"`
}

// ProfileView joins the employee identity with the profile document.
type ProfileView struct {
	Employee
	Profile
}

// ProfileUpdate carries the scalar profile fields. Nil pointers are left unchanged.
type ProfileUpdate struct {
	EmployeeID     string
	MobileNumber   *string
	Department     *string
	ProjectSummary *string
	WorkExperience *string
}

// Empty reports whether the update carries no field at all.
func (u ProfileUpdate) Empty() bool {
	return u.MobileNumber == nil && u.Department == nil && u.ProjectSummary == nil && u.WorkExperience == nil
}

// Education is one entry of the education history.
type Education struct {
	Level         string `json:"level"`
	Institution   string `json:"institution"`
	Board         string `json:"board,omitempty"`
	Degree        string `json:"degree,omitempty"`
	Major         string `json:"major,omitempty"`
	Score         string `json:"score,omitempty"`
	YearOfPassing string `json:"yearOfPassing"`
}

// Achievement is a quarterly achievement entry. IDs are unique per profile and never reused.
type Achievement struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Quarter     string `json:"quarter"`
}

// Certificate references an uploaded certificate blob.
type Certificate struct {
	ID         int       `json:"id"`
	Filename   string    `json:"filename"`
	UploadDate time.Time `json:"upload_date"`
}

// LeaveRequest is immutable once created, except for Status.
type LeaveRequest struct {
	ID          string      `json:"id"`
	StartDate   string      `json:"startDate"`
	EndDate     string      `json:"endDate"`
	LeaveType   string      `json:"leaveType"`
	Reason      string      `json:"reason"`
	Days        int         `json:"days"`
	Status      LeaveStatus `json:"status"`
	RequestDate time.Time   `json:"requestDate"`
}

// LeaveRequestInput is the payload of a new leave request.
type LeaveRequestInput struct {
	EmployeeID string
	LeaveType  string
	StartDate  string
	EndDate    string
	Reason     string
}

// TerminationRequest is the single resignation record of an employee.
type TerminationRequest struct {
	Reason          string      `json:"reason"`
	ReasonCategory  string      `json:"reason_category"`
	LastWorkingDate string      `json:"last_working_date"`
	NoticePeriod    string      `json:"notice_period"`
	HandoverNotes   string      `json:"handover_notes,omitempty"`
	Status          LeaveStatus `json:"status"`
	RequestDate     time.Time   `json:"request_date"`
}

// DefaultNoticePeriod is reported when a stored request carries none.
const DefaultNoticePeriod = "Standard (30 days)"

// AchievementsView groups the achievement and certificate collections.
type AchievementsView struct {
	Achievements []Achievement `json:"achievements"`
	Certificates []Certificate `json:"certificates"`
}

// File is a downloadable blob with its presentation name.
type File struct {
	Name    string
	Content []byte
}
