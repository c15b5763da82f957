package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/placement-engine/internal/models"
	"github.com/noah-isme/placement-engine/internal/service"
)

func newAuthRouter(t *testing.T, guard gin.HandlerFunc) (*gin.Engine, *service.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "secret"})
	r := gin.New()
	r.GET("/students/:id/placement", JWT(auth), guard, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r, auth
}

func token(t *testing.T, auth *service.AuthService, userID string, userType models.UserType) string {
	t.Helper()
	signed, _, err := auth.IssueToken(models.Principal{UserID: userID, UserType: userType})
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	r, _ := newAuthRouter(t, AdminOrSelf(models.UserTypeAdmin))

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/students/s1/placement", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.Contains(t, w.Body.String(), `"error":"unauthorized"`)
	}
}

func TestAdminOrSelf(t *testing.T) {
	r, auth := newAuthRouter(t, AdminOrSelf(models.UserTypeAdmin, models.UserTypeBDE))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{name: "self", header: token(t, auth, "s1", models.UserTypeStudent), status: http.StatusNoContent},
		{name: "other student", header: token(t, auth, "s2", models.UserTypeStudent), status: http.StatusForbidden},
		{name: "bde", header: token(t, auth, "u9", models.UserTypeBDE), status: http.StatusNoContent},
		{name: "superadmin not listed", header: token(t, auth, "u1", models.UserTypeSuperAdmin), status: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/students/s1/placement", nil)
			req.Header.Set("Authorization", tc.header)
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRequireUserTypesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/jobs", RequireUserTypes(models.UserTypeAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTNormalisesUserType(t *testing.T) {
	r, auth := newAuthRouter(t, AdminOrSelf(models.UserTypeAdmin))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/students/s9/placement", nil)
	req.Header.Set("Authorization", token(t, auth, "u3", models.UserType(" Admin ")))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireUserTypesForApplications(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "secret"})
	r := gin.New()
	r.POST("/applications", JWT(auth), RequireUserTypes(models.UserTypeAdmin, models.UserTypeStudent), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for userType, status := range map[models.UserType]int{
		models.UserTypeStudent: http.StatusOK,
		models.UserTypeAdmin:   http.StatusOK,
		models.UserTypeBDE:     http.StatusForbidden,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/applications", nil)
		req.Header.Set("Authorization", token(t, auth, "u1", userType))
		r.ServeHTTP(w, req)
		assert.Equal(t, status, w.Code, string(userType))
	}
}
