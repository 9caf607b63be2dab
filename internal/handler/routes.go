package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/aims-registration-api/internal/middleware"
	"github.com/noah-isme/aims-registration-api/internal/models"
)

// Routes groups the API handlers mounted under the API prefix.
type Routes struct {
	Auth         *AuthHandler
	Catalog      *CatalogHandler
	Registration *RegistrationHandler
	Slips        *SlipHandler
	Metrics      *MetricsHandler
}

// Register mounts every API route on api. authenticate guards everything except
// login and signed slip downloads.
func (rt Routes) Register(api *gin.RouterGroup, authenticate gin.HandlerFunc, auditLogger *zap.Logger) {
	api.POST("/auth/login", rt.Auth.Login)
	api.GET("/slips/download", rt.Slips.Download)

	secured := api.Group("", authenticate)
	secured.GET("/auth/me", rt.Auth.Me)
	secured.GET("/catalog", rt.Catalog.List)
	secured.GET("/catalog/:id", rt.Catalog.Get)

	student := secured.Group("/registrations/me", middleware.RequireRoles(models.RoleStudent))
	student.GET("", rt.Registration.Me)
	student.POST("/courses", middleware.Audit(auditLogger, "registration.add"), rt.Registration.AddCourse)
	student.DELETE("/courses/:courseId", middleware.Audit(auditLogger, "registration.drop"), rt.Registration.DropCourse)
	student.PATCH("/courses/:courseId", middleware.Audit(auditLogger, "registration.set_type"), rt.Registration.UpdateRegistrationType)
	student.POST("/draft", middleware.Audit(auditLogger, "registration.save_draft"), rt.Registration.SaveDraft)
	student.POST("/submit", middleware.Audit(auditLogger, "registration.submit"), rt.Registration.Submit)
	student.POST("/slip", rt.Slips.Export)

	admin := secured.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.PUT("/registrations/:studentId/deadline", middleware.Audit(auditLogger, "registration.set_deadline"), rt.Registration.SetDeadline)
	admin.GET("/stats", rt.Metrics.Stats)
}
