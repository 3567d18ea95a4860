package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	e "github.com/gartstein/selfservice/internal/selfservice/errors"
	"github.com/gartstein/selfservice/internal/selfservice/models"
	"go.uber.org/zap"
)

type loginRequest struct {
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type profileRequest struct {
	MobileNumber   *string `json:"mobileNumber"`
	Department     *string `json:"department"`
	ProjectSummary *string `json:"projectSummary"`
	WorkExperience *string `json:"workExperience"`
}

type skillsRequest struct {
	Skills []string `json:"skills"`
}

type leaveRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	LeaveType string `json:"leaveType"`
	Reason    string `json:"reason"`
}

type terminationRequest struct {
	Reason          string `json:"reason"`
	ReasonCategory  string `json:"reasonCategory"`
	LastWorkingDate string `json:"lastWorkingDate"`
	NoticePeriod    string `json:"noticePeriod"`
	HandoverNotes   string `json:"handoverNotes"`
}

func (r *profileRequest) toUpdate(employeeID string) *models.ProfileUpdate {
	return &models.ProfileUpdate{
		EmployeeID:     employeeID,
		MobileNumber:   r.MobileNumber,
		Department:     r.Department,
		ProjectSummary: r.ProjectSummary,
		WorkExperience: r.WorkExperience,
	}
}

func (r *leaveRequest) toInput(employeeID string) *models.LeaveRequestInput {
	return &models.LeaveRequestInput{
		EmployeeID: employeeID,
		LeaveType:  r.LeaveType,
		StartDate:  r.StartDate,
		EndDate:    r.EndDate,
		Reason:     r.Reason,
	}
}

func (r *terminationRequest) toModel() models.TerminationRequest {
	return models.TerminationRequest{
		Reason:          r.Reason,
		ReasonCategory:  r.ReasonCategory,
		LastWorkingDate: r.LastWorkingDate,
		NoticePeriod:    r.NoticePeriod,
		HandoverNotes:   r.HandoverNotes,
	}
}

// decodeJSON reads a single JSON value from the request body.
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("%w: request body required", e.ErrInvalidInput)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body required", e.ErrInvalidInput)
		}
		return fmt.Errorf("%w: malformed JSON body", e.ErrInvalidInput)
	}
	return nil
}

func intParam(params map[string]string, name string) (int, error) {
	v, err := strconv.Atoi(params[name])
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", e.ErrInvalidInput, name)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFile streams a stored blob. Attachments are offered as downloads.
func writeFile(w http.ResponseWriter, file *models.File, attachment bool) {
	contentType := mime.TypeByExtension(path.Ext(file.Name))
	if contentType == "" {
		contentType = http.DetectContentType(file.Content)
	}
	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": file.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}

// mapServiceError maps domain or repository errors to HTTP status codes.
func (h *SelfServiceHandler) mapServiceError(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrInvalidInput),
		errors.Is(err, e.ErrInvalidRange),
		errors.Is(err, e.ErrUnsupportedFileType),
		errors.Is(err, e.ErrConflict),
		errors.Is(err, e.ErrInsufficientBalance):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, e.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, e.ErrTooManyAttempts):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, err.Error()
	default:
		h.logger.Error("Internal server error", zap.Error(err))
		return http.StatusInternalServerError, "internal server error"
	}
}

func (h *SelfServiceHandler) fail(w http.ResponseWriter, err error) {
	status, msg := h.mapServiceError(err)
	writeError(w, status, msg)
}
