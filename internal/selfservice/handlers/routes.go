package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gartstein/selfservice/internal/selfservice/auth"
	e "github.com/gartstein/selfservice/internal/selfservice/errors"
	"github.com/gartstein/selfservice/internal/selfservice/models"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

const multipartMemory = 32 << 20

// SelfServiceController defines the business logic interface
// that the HTTP handlers invoke.
type SelfServiceController interface {
	Login(ctx context.Context, tenant, email, password string) (*models.LoginSummary, error)

	GetProfile(ctx context.Context, tenant, employeeID string) (*models.ProfileView, error)
	UpdateProfile(ctx context.Context, tenant string, update *models.ProfileUpdate) error
	UpdateEducation(ctx context.Context, tenant, employeeID string, education []models.Education) error
	UpdateSkills(ctx context.Context, tenant, employeeID string, skills []string) ([]string, error)

	ListCompanyJobs(ctx context.Context, tenant string) ([]models.Job, error)
	ListInvitations(ctx context.Context, tenant, employeeID string) ([]models.Invitation, error)
	ListNotifications(ctx context.Context, tenant, employeeID string) ([]models.Notification, error)

	UploadResume(ctx context.Context, tenant, employeeID string, file *models.File) (string, error)
	DeleteResume(ctx context.Context, tenant, employeeID string) error
	ViewResume(ctx context.Context, tenant, employeeID string) (*models.File, error)

	ListAchievements(ctx context.Context, tenant, employeeID string) (*models.AchievementsView, error)
	AddAchievement(ctx context.Context, tenant, employeeID string, achievement models.Achievement) (*models.Achievement, error)
	UpdateAchievement(ctx context.Context, tenant, employeeID string, achievement models.Achievement) (*models.Achievement, error)
	DeleteAchievement(ctx context.Context, tenant, employeeID string, achievementID int) error

	UploadCertificate(ctx context.Context, tenant, employeeID string, file *models.File) (*models.Certificate, error)
	ViewCertificate(ctx context.Context, tenant, employeeID string, certificateID int) (*models.File, error)
	DeleteCertificate(ctx context.Context, tenant, employeeID string, certificateID int) error

	ListLeaveRequests(ctx context.Context, tenant, employeeID string) ([]models.LeaveRequest, error)
	SubmitLeaveRequest(ctx context.Context, tenant string, input *models.LeaveRequestInput) (*models.LeaveRequest, error)
	GetLeaveBalance(ctx context.Context, tenant, employeeID string) (models.LeaveBalance, error)

	GetTerminationRequest(ctx context.Context, tenant, employeeID string) (*models.TerminationRequest, error)
	SubmitTerminationRequest(ctx context.Context, tenant, employeeID string, req models.TerminationRequest) (*models.TerminationRequest, error)
}

// SelfServiceHandler translates HTTP requests into SelfServiceController calls.
type SelfServiceHandler struct {
	service   SelfServiceController
	logger    *zap.Logger
	maxUpload int64
}

func NewSelfServiceHandler(service SelfServiceController, logger *zap.Logger, maxUploadBytes int64) *SelfServiceHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &SelfServiceHandler{
		service:   service,
		logger:    logger.Named("http_handler"),
		maxUpload: maxUploadBytes,
	}
}

type route struct {
	method  string
	pattern string
	handle  runtime.HandlerFunc
}

func (h *SelfServiceHandler) routes() []route {
	return []route{
		{http.MethodGet, "/health", h.health},
		{http.MethodPost, "/login", h.login},

		{http.MethodGet, "/profile/{tenant}/{id}", h.getProfile},
		{http.MethodPut, "/profile/{tenant}/{id}", h.updateProfile},
		{http.MethodPut, "/profile/{tenant}/{id}/education", h.updateEducation},
		{http.MethodPut, "/profile/{tenant}/{id}/skills", h.updateSkills},

		{http.MethodGet, "/company-jobs/{tenant}", h.listCompanyJobs},
		{http.MethodGet, "/candidate-applications/{tenant}/{id}", h.listInvitations},
		{http.MethodGet, "/notifications/{tenant}/{id}", h.listNotifications},

		{http.MethodPost, "/upload-resume/{tenant}/{id}", h.uploadResume},
		{http.MethodDelete, "/delete-resume/{tenant}/{id}", h.deleteResume},
		{http.MethodGet, "/view-resume/{tenant}/{id}", h.viewResume},

		{http.MethodGet, "/achievements/{tenant}/{id}", h.listAchievements},
		{http.MethodPost, "/achievements/{tenant}/{id}", h.addAchievement},
		{http.MethodPut, "/achievements/{tenant}/{id}/{achievement_id}", h.updateAchievement},
		{http.MethodDelete, "/achievements/{tenant}/{id}/{achievement_id}", h.deleteAchievement},

		{http.MethodPost, "/certificates/{tenant}/{id}", h.uploadCertificate},
		{http.MethodGet, "/certificates/{tenant}/{id}/{certificate_id}", h.viewCertificate},
		{http.MethodDelete, "/certificates/{tenant}/{id}/{certificate_id}", h.deleteCertificate},

		{http.MethodGet, "/leave-requests/{tenant}/{id}", h.listLeaveRequests},
		{http.MethodPost, "/leave-requests/{tenant}/{id}", h.submitLeaveRequest},
		{http.MethodGet, "/leave-balance/{tenant}/{id}", h.getLeaveBalance},

		{http.MethodGet, "/termination-request/{tenant}/{id}", h.getTerminationRequest},
		{http.MethodPost, "/termination-request/{tenant}/{id}", h.submitTerminationRequest},
	}
}

// Routes builds the REST surface: a gateway mux carrying every route, guarded
// by the bearer token middleware and wrapped with request id, access logging
// and panic recovery.
func (h *SelfServiceHandler) Routes(jwtSecret string) (http.Handler, error) {
	mux := runtime.NewServeMux(runtime.WithRoutingErrorHandler(routingError))
	for _, rt := range h.routes() {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.handle); err != nil {
			return nil, fmt.Errorf("register %s %s: %w", rt.method, rt.pattern, err)
		}
	}
	return Chain(auth.HTTPMiddleware(mux, jwtSecret),
		RequestID,
		Logging(h.logger),
		Recover(h.logger),
	), nil
}

func routingError(_ context.Context, _ *runtime.ServeMux, _ runtime.Marshaler, w http.ResponseWriter, _ *http.Request, status int) {
	writeError(w, status, http.StatusText(status))
}

func (h *SelfServiceHandler) health(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *SelfServiceHandler) login(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	summary, err := h.service.Login(r.Context(), req.CompanyName, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, e.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "Missing required fields")
			return
		}
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *SelfServiceHandler) getProfile(w http.ResponseWriter, r *http.Request, p map[string]string) {
	view, err := h.service.GetProfile(r.Context(), p["tenant"], p["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *SelfServiceHandler) updateProfile(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.service.UpdateProfile(r.Context(), p["tenant"], req.toUpdate(p["id"])); err != nil {
		h.fail(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Profile updated successfully")
}

func (h *SelfServiceHandler) updateEducation(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var education []models.Education
	if err := decodeJSON(r, &education); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.service.UpdateEducation(r.Context(), p["tenant"], p["id"], education); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Education updated successfully",
		"education": education,
	})
}

func (h *SelfServiceHandler) updateSkills(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var req skillsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	skills, err := h.service.UpdateSkills(r.Context(), p["tenant"], p["id"], req.Skills)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Skills updated successfully",
		"skills":  skills,
	})
}

func (h *SelfServiceHandler) listCompanyJobs(w http.ResponseWriter, r *http.Request, p map[string]string) {
	jobs, err := h.service.ListCompanyJobs(r.Context(), p["tenant"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *SelfServiceHandler) listInvitations(w http.ResponseWriter, r *http.Request, p map[string]string) {
	invitations, err := h.service.ListInvitations(r.Context(), p["tenant"], p["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invitations)
}

func (h *SelfServiceHandler) listNotifications(w http.ResponseWriter, r *http.Request, p map[string]string) {
	notifications, err := h.service.ListNotifications(r.Context(), p["tenant"], p["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// readUpload extracts one multipart file field, bounded by maxUpload.
func (h *SelfServiceHandler) readUpload(w http.ResponseWriter, r *http.Request, field string) (*models.File, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	memory := h.maxUpload
	if memory > multipartMemory {
		memory = multipartMemory
	}
	if err := r.ParseMultipartForm(memory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", h.maxUpload))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "No file part")
		return nil, false
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	part, header, err := r.FormFile(field)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file part")
		return nil, false
	}
	defer part.Close()
	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No selected file")
		return nil, false
	}
	content, err := io.ReadAll(part)
	if err != nil {
		h.fail(w, fmt.Errorf("read upload: %w", err))
		return nil, false
	}
	return &models.File{Name: header.Filename, Content: content}, true
}

func (h *SelfServiceHandler) uploadResume(w http.ResponseWriter, r *http.Request, p map[string]string) {
	file, ok := h.readUpload(w, r, "resume")
	if !ok {
		return
	}
	filename, err := h.service.UploadResume(r.Context(), p["tenant"], p["id"], file)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "Resume uploaded successfully",
		"filename": filename,
	})
}

func (h *SelfServiceHandler) deleteResume(w http.ResponseWriter, r *http.Request, p map[string]string) {
	if err := h.service.DeleteResume(r.Context(), p["tenant"], p["id"]); err != nil {
		h.fail(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Resume deleted successfully")
}

func (h *SelfServiceHandler) viewResume(w http.ResponseWriter, r *http.Request, p map[string]string) {
	file, err := h.service.ViewResume(r.Context(), p["tenant"], p["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeFile(w, file, true)
}

func (h *SelfServiceHandler) listAchievements(w http.ResponseWriter, r *http.Request, p map[string]string) {
	view, err := h.service.ListAchievements(r.Context(), p["tenant"], p["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *SelfServiceHandler) addAchievement(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var achievement models.Achievement
	if err := decodeJSON(r, &achievement); err != nil {
		h.fail(w, err)
		return
	}
	added, err := h.service.AddAchievement(r.Context(), p["tenant"], p["id"], achievement)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Achievement added successfully",
		"achievement": added,
	})
}

func (h *SelfServiceHandler) updateAchievement(w http.ResponseWriter, r *http.Request, p map[string]string) {
	id, err := intParam(p, "achievement_id")
	if err != nil {
		h.fail(w, err)
		return
	}
	var achievement models.Achievement
	if err := decodeJSON(r, &achievement); err != nil {
		h.fail(w, err)
		return
	}
	achievement.ID = id
	updated, err := h.service.UpdateAchievement(r.Context(), p["tenant"], p["id"], achievement)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Achievement updated successfully",
		"achievement": updated,
	})
}

func (h *SelfServiceHandler) deleteAchievement(w http.ResponseWriter, r *http.Request, p map[string]string) {
	id, err := intParam(p, "achievement_id")
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.service.DeleteAchievement(r.Context(), p["tenant"], p["id"], id); err != nil {
		h.fail(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Achievement deleted successfully")
}

func (h *SelfServiceHandler) uploadCertificate(w http.ResponseWriter, r *http.Request, p map[string]string) {
	file, ok := h.readUpload(w, r, "certificate")
	if !ok {
		return
	}
	cert, err := h.service.UploadCertificate(r.Context(), p["tenant"], p["id"], file)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Certificate uploaded successfully",
		"certificate": cert,
	})
}

func (h *SelfServiceHandler) viewCertificate(w http.ResponseWriter, r *http.Request, p map[string]string) {
	id, err := intParam(p, "certificate_id")
	if err != nil {
		h.fail(w, err)
		return
	}
	file, err := h.service.ViewCertificate(r.Context(), p["tenant"], p["id"], id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeFile(w, file, false)
}

func (h *SelfServiceHandler) deleteCertificate(w http.ResponseWriter, r *http.Request, p map[string]string) {
	id, err := intParam(p, "certificate_id")
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.service.DeleteCertificate(r.Context(), p["tenant"], p["id"], id); err != nil {
		h.fail(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Certificate deleted successfully")
}

func (h *SelfServiceHandler) listLeaveRequests(w http.ResponseWriter, r *http.Request, p map[string]string) {
	requests, err := h.service.ListLeaveRequests(r.Context(), p["tenant"], p["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

func (h *SelfServiceHandler) submitLeaveRequest(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var req leaveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	created, err := h.service.SubmitLeaveRequest(r.Context(), p["tenant"], req.toInput(p["id"]))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Leave request submitted successfully",
		"request": created,
	})
}

func (h *SelfServiceHandler) getLeaveBalance(w http.ResponseWriter, r *http.Request, p map[string]string) {
	balance, err := h.service.GetLeaveBalance(r.Context(), p["tenant"], p["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *SelfServiceHandler) getTerminationRequest(w http.ResponseWriter, r *http.Request, p map[string]string) {
	req, err := h.service.GetTerminationRequest(r.Context(), p["tenant"], p["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *SelfServiceHandler) submitTerminationRequest(w http.ResponseWriter, r *http.Request, p map[string]string) {
	var req terminationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if _, err := h.service.SubmitTerminationRequest(r.Context(), p["tenant"], p["id"], req.toModel()); err != nil {
		h.fail(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Termination request submitted successfully")
}
