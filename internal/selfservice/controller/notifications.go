package controller

import (
	"sort"
	"strings"
	"time"

	"github.com/gartstein/selfservice/internal/selfservice/models"
)

// InvitationWindow bounds how old an invitation may be to raise a notification.
const InvitationWindow = 30 * 24 * time.Hour

type completenessCheck struct {
	missing func(p *models.Profile) bool
	kind    models.NotificationType
	title   string
	message string
}

// Evaluated in order; only the first failing check produces a notification.
var completenessChecks = []completenessCheck{
	{
		missing: func(p *models.Profile) bool { return blank(p.MobileNumber) },
		kind:    models.NotificationProfileCompletion,
		title:   "Complete Your Profile",
		message: "Please add your mobile number to complete your profile.",
	},
	{
		missing: func(p *models.Profile) bool { return blank(p.Department) },
		kind:    models.NotificationProfileCompletion,
		title:   "Complete Your Profile",
		message: "Please add your department to complete your profile.",
	},
	{
		missing: func(p *models.Profile) bool { return blank(p.ProjectSummary) },
		kind:    models.NotificationProfileCompletion,
		title:   "Complete Your Profile",
		message: "Please add a project summary to complete your profile.",
	},
	{
		missing: func(p *models.Profile) bool { return blank(p.WorkExperience) },
		kind:    models.NotificationProfileCompletion,
		title:   "Complete Your Profile",
		message: "Please add your work experience to complete your profile.",
	},
	{
		missing: func(p *models.Profile) bool { return len(p.Skills) == 0 },
		kind:    models.NotificationSkillsUpdate,
		title:   "Update Your Skills",
		message: "Add your key skills to improve your job matches.",
	},
	{
		missing: func(p *models.Profile) bool { return len(p.Education) == 0 },
		kind:    models.NotificationEducationUpdate,
		title:   "Update Your Education",
		message: "Add your education details to complete your profile.",
	},
	{
		missing: func(p *models.Profile) bool { return blank(p.ResumePath) },
		kind:    models.NotificationResumeUpload,
		title:   "Upload Your Resume",
		message: "Upload your resume to apply for jobs more easily.",
	},
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// AssembleNotifications derives the notification feed of an employee: one item
// per invitation younger than InvitationWindow plus at most one profile
// completeness item. A nil profile counts as an empty one. The result is
// sorted newest first.
func AssembleNotifications(now time.Time, invitations []models.Invitation, profile *models.Profile) []models.Notification {
	cutoff := now.Add(-InvitationWindow)
	notifications := make([]models.Notification, 0, len(invitations)+1)

	for _, inv := range invitations {
		if !inv.ApplicationDate.After(cutoff) {
			continue
		}
		notifications = append(notifications, models.Notification{
			Type:      models.NotificationJobApplication,
			Title:     "New Job Application",
			Message:   "You have been invited to apply for the position of " + inv.Title,
			Timestamp: inv.ApplicationDate,
		})
	}

	if profile == nil {
		profile = &models.Profile{}
	}
	for _, check := range completenessChecks {
		if check.missing(profile) {
			notifications = append(notifications, models.Notification{
				Type:      check.kind,
				Title:     check.title,
				Message:   check.message,
				Timestamp: now,
			})
			break
		}
	}

	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].Timestamp.After(notifications[j].Timestamp)
	})
	return notifications
}
