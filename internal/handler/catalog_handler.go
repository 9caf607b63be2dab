package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/aims-registration-api/internal/dto"
	"github.com/noah-isme/aims-registration-api/internal/middleware"
	"github.com/noah-isme/aims-registration-api/internal/models"
	appErrors "github.com/noah-isme/aims-registration-api/pkg/errors"
	"github.com/noah-isme/aims-registration-api/pkg/response"
)

type catalogService interface {
	List(ctx context.Context, filter models.CatalogFilter) (*models.CatalogPage, bool, error)
	Get(ctx context.Context, courseID string) (*models.CourseOffering, error)
}

// CatalogHandler serves the course catalog.
type CatalogHandler struct {
	service   catalogService
	validator *validator.Validate
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(svc catalogService, validate *validator.Validate) *CatalogHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &CatalogHandler{service: svc, validator: validate}
}

// List godoc
// @Summary List course offerings
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param category query string false "Departmental Core, Elective or Liberal Arts"
// @Param semester query int false "Semester"
// @Param credits query int false "Credits"
// @Param q query string false "Search by course code or name"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /catalog [get]
func (h *CatalogHandler) List(c *gin.Context) {
	var query dto.CatalogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid catalog query"))
		return
	}
	if err := h.validator.Struct(query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid catalog query"))
		return
	}

	page, cacheHit, err := h.service.List(c.Request.Context(), models.CatalogFilter{
		Category: models.CourseCategory(query.Category),
		Semester: query.Semester,
		Credits:  query.Credits,
		Search:   query.Search,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	meta["total_count"] = page.TotalCount
	response.JSON(c, http.StatusOK, page, meta)
}

// Get godoc
// @Summary Get a course offering
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalog/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	course, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course)
}
