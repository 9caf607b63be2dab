package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aims-registration-api/internal/dto"
	"github.com/noah-isme/aims-registration-api/internal/models"
	"github.com/noah-isme/aims-registration-api/internal/service"
	appErrors "github.com/noah-isme/aims-registration-api/pkg/errors"
	"github.com/noah-isme/aims-registration-api/pkg/response"
)

type slipService interface {
	Export(ctx context.Context, studentID string, format models.SlipFormat) (*models.SlipResult, error)
	Download(ctx context.Context, token string) (*service.SlipDownload, error)
}

// SlipHandler issues and serves registration slips.
type SlipHandler struct {
	service slipService
}

// NewSlipHandler constructs the handler.
func NewSlipHandler(svc slipService) *SlipHandler {
	return &SlipHandler{service: svc}
}

// Export godoc
// @Summary Generate a registration slip
// @Tags Slips
// @Produce json
// @Security BearerAuth
// @Param format query string false "csv or pdf (default pdf)"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /registrations/me/slip [post]
func (h *SlipHandler) Export(c *gin.Context) {
	var req dto.SlipRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slip request"))
		return
	}
	studentID, err := studentFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.Export(c.Request.Context(), studentID, models.SlipFormat(req.Format))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a registration slip
// @Tags Slips
// @Produce application/pdf
// @Produce text/csv
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /slips/download [get]
func (h *SlipHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	download, err := h.service.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read slip"))
		return
	}

	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
	})
}
