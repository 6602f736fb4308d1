package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"accessctl/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, role string, secret []byte, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "11111111-1111-1111-1111-111111111111",
		"role": role,
		"exp":  time.Now().Add(expiresIn).Unix(),
		"iat":  time.Now().Unix(),
	})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func guardedRouter(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", RequireRole(roles...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString("userID"),
			"role":    c.GetString("userRole"),
		})
	})
	return r
}

func TestRequireRole(t *testing.T) {
	secret := GetJWTSecret()
	r := guardedRouter(model.RoleAdmin, model.RoleSuperAdmin)

	cases := []struct {
		name   string
		header string
		cookie string
		status int
	}{
		{"no token", "", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", "", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, model.RoleAdmin, []byte("other_secret"), time.Hour), "", http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, model.RoleAdmin, secret, -time.Hour), "", http.StatusUnauthorized},
		{"insufficient role", "Bearer " + signToken(t, model.RoleViewer, secret, time.Hour), "", http.StatusForbidden},
		{"admin via header", "Bearer " + signToken(t, model.RoleAdmin, secret, time.Hour), "", http.StatusOK},
		{"super admin via header", "Bearer " + signToken(t, model.RoleSuperAdmin, secret, time.Hour), "", http.StatusOK},
		{"admin via cookie", "", signToken(t, model.RoleAdmin, secret, time.Hour), http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/guarded", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tc.cookie})
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRequireRoleSetsContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var gotUserID, gotRole string
	r.GET("/guarded", RequireRole(model.RoleAdmin), func(c *gin.Context) {
		gotUserID = c.GetString("userID")
		gotRole = c.GetString("userRole")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, model.RoleAdmin, GetJWTSecret(), time.Hour))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", gotUserID)
	assert.Equal(t, model.RoleAdmin, gotRole)
}
