package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aims-registration-api/internal/dto"
	"github.com/noah-isme/aims-registration-api/internal/models"
	appErrors "github.com/noah-isme/aims-registration-api/pkg/errors"
	"github.com/noah-isme/aims-registration-api/pkg/response"
)

type registrationService interface {
	View(ctx context.Context, studentID string) (*models.LedgerView, error)
	AddCourse(ctx context.Context, studentID string, req dto.AddCourseRequest) (*models.LedgerView, error)
	DropCourse(ctx context.Context, studentID, courseID string) (*models.LedgerView, error)
	UpdateRegistrationType(ctx context.Context, studentID, courseID string, req dto.UpdateRegistrationTypeRequest) (*models.LedgerView, error)
	SaveDraft(ctx context.Context, studentID string) (*models.LedgerView, error)
	Submit(ctx context.Context, studentID string) (*models.LedgerView, error)
	SetDeadline(ctx context.Context, studentID string, req dto.SetDeadlineRequest) (*models.LedgerView, error)
}

// RegistrationHandler exposes the authenticated student's ledger.
type RegistrationHandler struct {
	service registrationService
}

// NewRegistrationHandler constructs the handler.
func NewRegistrationHandler(svc registrationService) *RegistrationHandler {
	return &RegistrationHandler{service: svc}
}

// Me godoc
// @Summary Current registration
// @Tags Registration
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /registrations/me [get]
func (h *RegistrationHandler) Me(c *gin.Context) {
	h.respond(c, http.StatusOK, func(ctx context.Context, studentID string) (*models.LedgerView, error) {
		return h.service.View(ctx, studentID)
	})
}

// AddCourse godoc
// @Summary Select a course
// @Tags Registration
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.AddCourseRequest true "Course selection"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /registrations/me/courses [post]
func (h *RegistrationHandler) AddCourse(c *gin.Context) {
	var req dto.AddCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course selection payload"))
		return
	}
	h.respond(c, http.StatusCreated, func(ctx context.Context, studentID string) (*models.LedgerView, error) {
		return h.service.AddCourse(ctx, studentID, req)
	})
}

// DropCourse godoc
// @Summary Drop a selected course
// @Tags Registration
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /registrations/me/courses/{courseId} [delete]
func (h *RegistrationHandler) DropCourse(c *gin.Context) {
	courseID := c.Param("courseId")
	h.respond(c, http.StatusOK, func(ctx context.Context, studentID string) (*models.LedgerView, error) {
		return h.service.DropCourse(ctx, studentID, courseID)
	})
}

// UpdateRegistrationType godoc
// @Summary Change a selection's registration type
// @Tags Registration
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Param payload body dto.UpdateRegistrationTypeRequest true "Registration type"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /registrations/me/courses/{courseId} [patch]
func (h *RegistrationHandler) UpdateRegistrationType(c *gin.Context) {
	var req dto.UpdateRegistrationTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration type payload"))
		return
	}
	courseID := c.Param("courseId")
	h.respond(c, http.StatusOK, func(ctx context.Context, studentID string) (*models.LedgerView, error) {
		return h.service.UpdateRegistrationType(ctx, studentID, courseID, req)
	})
}

// SaveDraft godoc
// @Summary Save the current selections as a draft
// @Tags Registration
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /registrations/me/draft [post]
func (h *RegistrationHandler) SaveDraft(c *gin.Context) {
	h.respond(c, http.StatusOK, func(ctx context.Context, studentID string) (*models.LedgerView, error) {
		return h.service.SaveDraft(ctx, studentID)
	})
}

// Submit godoc
// @Summary Submit the registration
// @Tags Registration
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /registrations/me/submit [post]
func (h *RegistrationHandler) Submit(c *gin.Context) {
	h.respond(c, http.StatusOK, func(ctx context.Context, studentID string) (*models.LedgerView, error) {
		return h.service.Submit(ctx, studentID)
	})
}

// SetDeadline godoc
// @Summary Move a student's submission deadline
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param payload body dto.SetDeadlineRequest true "Deadline"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /admin/registrations/{studentId}/deadline [put]
func (h *RegistrationHandler) SetDeadline(c *gin.Context) {
	var req dto.SetDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid deadline payload"))
		return
	}
	view, err := h.service.SetDeadline(c.Request.Context(), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

func (h *RegistrationHandler) respond(c *gin.Context, status int, fn func(ctx context.Context, studentID string) (*models.LedgerView, error)) {
	studentID, err := studentFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := fn(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, status, view)
}
