package models

import (
	"time"
)

// Job is an openly listed company job posting.
type Job struct {
	ID             string    `json:"job_id"`
	CompanyID      string    `json:"comp_id"`
	Title          string    `json:"job_title"`
	Description    string    `json:"job_description"`
	Location       string    `json:"job_location"`
	Department     string    `json:"department,omitempty"`
	AdditionalInfo string    `json:"additional_info,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Invitation is a promoted job pushed to a set of candidate emails.
type Invitation struct {
	JobID              string    `json:"job_id"`
	Title              string    `json:"job_title"`
	Description        string    `json:"job_description"`
	Location           string    `json:"job_location"`
	AdditionalInfo     string    `json:"additional_info"`
	CompanyName        string    `json:"comp_name"`
	Department         string    `json:"department,omitempty"`
	Status             string    `json:"status"`
	ApplicationDate    time.Time `json:"application_date"`
	PsyQuestions       string    `json:"psy_questions,omitempty"`
	CaseStudyQuestions string    `json:"case_study_questions,omitempty"`
	GDData             string    `json:"gd_data,omitempty"`
	MBTIData           string    `json:"mbti_data,omitempty"`
}

// InvitedStatus is the status reported for every promoted job.
const InvitedStatus = "Invited"

// NotificationType classifies a notification item.
type NotificationType string

const (
	NotificationJobApplication    NotificationType = "job_application"
	NotificationProfileCompletion NotificationType = "profile_completion"
	NotificationSkillsUpdate      NotificationType = "skills_update"
	NotificationEducationUpdate   NotificationType = "education_update"
	NotificationResumeUpload      NotificationType = "resume_upload"
)

// Notification is an ephemeral item derived on read; it is never stored.
type Notification struct {
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
}
