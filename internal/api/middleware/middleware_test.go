package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilkumar000/Intern/internal/logger"
)

const testSecret = "test-secret"

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func whoami(c *gin.Context) {
	uid, _ := c.Get("user_id")
	role, _ := c.Get("role")
	c.JSON(http.StatusOK, gin.H{"user_id": uid, "role": role})
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JWTAuth(testSecret), whoami)
	r.GET("/admin", JWTAuth(testSecret), RequireAdmin(), whoami)
	r.GET("/maybe", OptionalJWT(testSecret), whoami)

	exp := time.Now().Add(time.Hour).Unix()
	userTok := sign(t, testSecret, jwt.MapClaims{"id": "U1", "exp": exp})
	subTok := sign(t, testSecret, jwt.MapClaims{"sub": "U2", "role": "Admin", "exp": exp})
	expired := sign(t, testSecret, jwt.MapClaims{"id": "U1", "exp": time.Now().Add(-time.Minute).Unix()})
	forged := sign(t, "other", jwt.MapClaims{"id": "U1", "exp": exp})

	tests := []struct {
		name   string
		path   string
		header string
		cookie string
		want   int
		body   string
	}{
		{"bearer", "/me", "Bearer " + userTok, "", http.StatusOK, `"user_id":"U1"`},
		{"cookie", "/me", "", userTok, http.StatusOK, `"role":"user"`},
		{"sub claim", "/me", "Bearer " + subTok, "", http.StatusOK, `"user_id":"U2"`},
		{"missing", "/me", "", "", http.StatusUnauthorized, `"success":false`},
		{"expired", "/me", "Bearer " + expired, "", http.StatusUnauthorized, "invalid token"},
		{"wrong secret", "/me", "Bearer " + forged, "", http.StatusUnauthorized, "invalid token"},
		{"admin ok", "/admin", "Bearer " + subTok, "", http.StatusOK, `"role":"admin"`},
		{"admin denied", "/admin", "Bearer " + userTok, "", http.StatusForbidden, "FORBIDDEN"},
		{"optional anonymous", "/maybe", "", "", http.StatusOK, `"user_id":null`},
		{"optional with token", "/maybe", "Bearer " + userTok, "", http.StatusOK, `"user_id":"U1"`},
		{"optional bad token", "/maybe", "Bearer " + forged, "", http.StatusUnauthorized, "invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "token", Value: tt.cookie})
			}
			w := serve(r, req)
			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestJWTAuthWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JWTAuth(""), whoami)
	r.GET("/maybe", OptionalJWT(""), whoami)

	assert.Equal(t, http.StatusInternalServerError, serve(r, httptest.NewRequest(http.MethodGet, "/me", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/maybe", nil)).Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := serve(r, req)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = serve(r, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w = serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(logger.NewWithOutput(&buf, "info"), "/ping"))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Empty(t, buf.String())

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w = serve(r, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
	assert.Contains(t, buf.String(), `"level":"error"`)
}
