package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/aims-registration-api/internal/models"
	appErrors "github.com/noah-isme/aims-registration-api/pkg/errors"
)

type staticValidator map[string]*models.JWTClaims

func (v staticValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := v[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

type observedRequest struct {
	method, path string
	status       int
}

type requestRecorder struct {
	seen []observedRequest
}

func (r *requestRecorder) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	r.seen = append(r.seen, observedRequest{method: method, path: path, status: status})
}

var testTokens = staticValidator{
	"student-token": {UserID: "STU-1", Role: models.RoleStudent},
	"admin-token":   {UserID: "ADM-1", Role: models.RoleAdmin},
}

func protectedRouter(roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/resource", JWT(testTokens), RequireRoles(roles...), func(c *gin.Context) {
		claims, _ := Claims(c)
		c.String(http.StatusOK, claims.UserID)
	})
	return r
}

func call(r http.Handler, method, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	r := protectedRouter(models.RoleStudent)

	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/resource", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/resource", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/resource", "Bearer ").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/resource", "Bearer nope").Code)
}

func TestJWTAndRoles(t *testing.T) {
	r := protectedRouter(models.RoleStudent)

	rec := call(r, http.MethodGet, "/resource", "Bearer student-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "STU-1", rec.Body.String())

	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/resource", "bearer admin-token").Code)
}

func TestRequireRolesWithoutJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/x", "").Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &requestRecorder{}
	r := gin.New()
	r.Use(Metrics(rec))
	r.DELETE("/courses/:courseId", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	call(r, http.MethodDelete, "/courses/CS101", "")
	call(r, http.MethodGet, "/nowhere", "")

	require.Len(t, rec.seen, 2)
	assert.Equal(t, observedRequest{method: http.MethodDelete, path: "/courses/:courseId", status: http.StatusNoContent}, rec.seen[0])
	assert.Equal(t, "unmatched", rec.seen[1].path)
}

func TestSetCacheHitWritesMetaAndHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/catalog", func(c *gin.Context) {
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, ExtractMeta(c))
	})

	rec := call(r, http.MethodGet, "/catalog", "")
	assert.Equal(t, "HIT", rec.Header().Get(CacheHeader))
	assert.JSONEq(t, `{"cache_hit":true}`, rec.Body.String())
}

func TestAuditLogsSuccessfulMutationsOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(JWT(testTokens))
	r.POST("/courses/:courseId", Audit(zap.New(core), "registration.add"), func(c *gin.Context) {
		if c.Param("courseId") == "BAD" {
			c.Status(http.StatusConflict)
			return
		}
		c.Status(http.StatusCreated)
	})

	call(r, http.MethodPost, "/courses/CS101", "Bearer student-token")
	call(r, http.MethodPost, "/courses/BAD", "Bearer student-token")

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "registration.add", fields["action"])
	assert.Equal(t, "STU-1", fields["user_id"])
	assert.Equal(t, "CS101", fields["course_id"])
}
