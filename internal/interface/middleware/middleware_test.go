package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/course-enrollment/internal/application"
	"github.com/oksasatya/course-enrollment/internal/domain/entity"
	"github.com/oksasatya/course-enrollment/internal/domain/policy"
)

type stubResolver struct {
	gotToken string
	p        policy.Principal
	err      error
}

func (s *stubResolver) Resolve(_ context.Context, token string) (policy.Principal, error) {
	s.gotToken = token
	return s.p, s.err
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/", func(c *gin.Context) {
		p := CurrentPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"uid": p.UserID, "role": string(p.Role), "ip": c.GetString("real_ip"), "rid": c.GetString("request_id")})
	})
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdentity_TokenSources(t *testing.T) {
	res := &stubResolver{p: policy.Principal{UserID: "u1", Role: entity.RoleStudent}}
	r := newEngine(Identity(res, nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer  header-token ")
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "cookie-token"})
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "header-token", res.gotToken)
	assert.Contains(t, w.Body.String(), `"uid":"u1"`)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "cookie-token"})
	serve(r, req)
	assert.Equal(t, "cookie-token", res.gotToken)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	serve(r, req)
	assert.Equal(t, "", res.gotToken)
}

func TestIdentity_InvalidTokenIsAnonymous(t *testing.T) {
	res := &stubResolver{err: application.ErrInvalidToken}
	r := newEngine(Identity(res, nil))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"uid":""`)
}

func TestIdentity_StorageFailure(t *testing.T) {
	res := &stubResolver{err: &application.StorageError{Op: "get user", Err: errors.New("down")}}
	r := newEngine(Identity(res, nil))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequireAuth(t *testing.T) {
	anon := newEngine(Identity(&stubResolver{}, nil), RequireAuth())
	assert.Equal(t, http.StatusUnauthorized, serve(anon, httptest.NewRequest(http.MethodGet, "/", nil)).Code)

	known := newEngine(Identity(&stubResolver{p: policy.Principal{UserID: "u", Role: entity.RoleTeacher}}, nil), RequireAuth())
	assert.Equal(t, http.StatusOK, serve(known, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestIDMiddleware())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, generated)
	assert.Contains(t, w.Body.String(), generated)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "3f1c8f38-8a43-4d4e-9b0b-1f1f5b2f9a11")
	w = serve(r, req)
	assert.Equal(t, "3f1c8f38-8a43-4d4e-9b0b-1f1f5b2f9a11", w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not a uuid")
	w = serve(r, req)
	assert.NotEqual(t, "not a uuid", w.Header().Get(RequestIDHeader))
}

func TestRealIP(t *testing.T) {
	r := newEngine(RealIP())

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare", map[string]string{"CF-Connecting-IP": "203.0.113.7", "X-Forwarded-For": "198.51.100.1"}, "203.0.113.7"},
		{"forwarded", map[string]string{"X-Forwarded-For": " 198.51.100.1 , 10.0.0.1"}, "198.51.100.1"},
		{"garbage falls back", map[string]string{"CF-Connecting-IP": "nope"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			w := serve(r, req)
			if tc.want != "" {
				assert.Contains(t, w.Body.String(), `"ip":"`+tc.want+`"`)
			} else {
				assert.NotContains(t, w.Body.String(), `"ip":"nope"`)
			}
		})
	}
}

func TestRateLimit_DisabledWithoutRedis(t *testing.T) {
	r := newEngine(RateLimit(nil, 1, 0, KeyByIP(), nil))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestKeyByUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set("real_ip", "192.0.2.1")

	assert.Equal(t, "rl:user:anon:ip:192.0.2.1", KeyByUserID()(c))

	c.Set(CtxPrincipalKey, policy.Principal{UserID: "u9", Role: entity.RoleStudent})
	assert.Equal(t, "rl:user:u9", KeyByUserID()(c))
}

func TestAllowPrivateIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	allow := AllowPrivateIP()
	for ip, want := range map[string]bool{"127.0.0.1": true, "10.1.2.3": true, "192.168.0.9": true, "8.8.8.8": false, "bogus": false} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Set("real_ip", ip)
		assert.Equal(t, want, allow(c), ip)
	}
}
