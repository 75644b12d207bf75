package router

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akeren/waitlist-landing/internal/log"
	"github.com/akeren/waitlist-landing/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mountTestController(rs *RouterService) {
	ctrl := NewRESTController("TestController", "/", func(rs *RouterService, c *RESTController) {
		rs.AddGetHandler(c, nil, "ip", func(ctx *RequestContext) *ServiceResult {
			return OKResult(ctx.ClientIP(), "ok")
		})

		rs.AddPostHandler(c, nil, "echo", func(ctx *RequestContext) *ServiceResult {
			var payload map[string]any
			if err := ctx.ShouldBindJSON(&payload); err != nil {
				return BadRequestResult("bad", nil)
			}
			return OKResult(payload, "ok")
		})
	})

	rs.MountController(ctrl)
}

func newTestRouterService(t *testing.T) *RouterService {
	t.Helper()

	logger := log.NewLoggerWithJSONOutput()
	return CreateRouterService(logger, nil, &RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
	})
}

func TestTrustedProxies_DisabledByDefault(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "")

	rs := newTestRouterService(t)
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")

	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Code    int    `json:"code"`
		Data    string `json:"data"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Data != "10.0.0.2" {
		t.Fatalf("expected ClientIP to use RemoteAddr when trusted proxies disabled; got %q", resp.Data)
	}
}

func TestTrustedProxies_StarTrustsForwardedFor(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "*")

	rs := newTestRouterService(t)
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")

	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Code    int    `json:"code"`
		Data    string `json:"data"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Data != "1.1.1.1" {
		t.Fatalf("expected ClientIP to use X-Forwarded-For when trusted proxies enabled; got %q", resp.Data)
	}
}

func TestMaxBodySize_Returns413(t *testing.T) {
	t.Setenv("MAX_REQUEST_BODY_BYTES", "10")

	rs := newTestRouterService(t)
	mountTestController(rs)

	body := bytes.Repeat([]byte{'a'}, 50)
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateHandler_RendersDataAndHeaders(t *testing.T) {
	rs := newTestRouterService(t)
	rs.MountController(NewRESTController("PixelController", "/", func(rs *RouterService, c *RESTController) {
		rs.AddGetHandler(c, nil, "pixel", func(ctx *RequestContext) *ServiceResult {
			return DataResult(http.StatusAccepted, "image/png", []byte{0x89, 'P', 'N', 'G'}).
				WithHeader("Cache-Control", "no-store")
		})
	}))

	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pixel", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, w.Body.Bytes())
}

func TestCreateHandler_RendersHTMLTemplates(t *testing.T) {
	rs := newTestRouterService(t)
	rs.SetHTMLTemplate(template.Must(template.New("hello.html").Parse(`<p>{{.}}</p>`)))
	rs.MountController(NewRESTController("PageController", "/", func(rs *RouterService, c *RESTController) {
		rs.AddGetHandler(c, nil, "hello", func(ctx *RequestContext) *ServiceResult {
			return HTMLResult(http.StatusOK, "hello.html", "<b>jane</b>")
		})
	}))

	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/hello", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "<p>&lt;b&gt;jane&lt;/b&gt;</p>", w.Body.String())
	assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
}

func TestAdminKeyMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		provided   string
		want       int
		message    string
	}{
		{"disabled when unset", "", "anything", http.StatusForbidden, "Admin API is disabled"},
		{"missing header", "s3cret", "", http.StatusUnauthorized, "Invalid or missing admin key"},
		{"wrong key", "s3cret", "guess", http.StatusUnauthorized, "Invalid or missing admin key"},
		{"valid key", "s3cret", "s3cret", http.StatusOK, "ok"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rs := newTestRouterService(t)
			rs.MountController(NewRESTController("AdminController", "/admin", func(rs *RouterService, c *RESTController) {
				rs.AddGetHandler(c, nil, "", func(ctx *RequestContext) *ServiceResult {
					return OKResult(nil, "ok")
				}, rs.AdminKeyMiddleware(tc.configured))
			}))

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.provided != "" {
				req.Header.Set(AdminKeyHeader, tc.provided)
			}
			w := httptest.NewRecorder()
			rs.GetEngine().ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Code)

			var body struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.want, body.Code)
			assert.Equal(t, tc.message, body.Message)
		})
	}
}

func TestEmailValidationIsRegisteredOnBinding(t *testing.T) {
	rs := newTestRouterService(t)
	rs.MountController(NewRESTController("BindController", "/", func(rs *RouterService, c *RESTController) {
		rs.AddPostHandler(c, nil, "bind", func(ctx *RequestContext) *ServiceResult {
			var payload struct {
				Email string `json:"email" binding:"required,waitlist_email"`
			}
			if err := ctx.ShouldBindJSON(&payload); err != nil {
				return BadRequestResult("invalid", nil)
			}
			return OKResult(payload.Email, "ok")
		})
	}))

	for body, want := range map[string]int{
		`{"email":"jane@example.org"}`: http.StatusOK,
		`{"email":"jane@example"}`:     http.StatusBadRequest,
	} {
		req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		rs.GetEngine().ServeHTTP(w, req)

		assert.Equal(t, want, w.Code, body)
	}
}

func TestMetricsRegisterer(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "false")
	assert.Nil(t, newTestRouterService(t).MetricsRegisterer())

	t.Setenv("METRICS_ENABLED", "true")
	assert.NotNil(t, newTestRouterService(t).MetricsRegisterer())
}

func TestParseIntQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, tc := range []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 50, false},
		{"?limit=10", 10, false},
		{"?limit=-1", 0, true},
		{"?limit=abc", 0, true},
	} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/"+tc.query, nil)

		got, errResult := ParseIntQuery(c, "limit", 50)
		assert.Equal(t, tc.want, got, tc.query)
		assert.Equal(t, tc.wantErr, errResult != nil, tc.query)
	}
}

func TestRateLimit_RouteOverride(t *testing.T) {
	rs := newTestRouterService(t)
	limited := ratelimit.NewInMemoryRateLimiter(1, time.Minute)

	rs.MountController(NewVersionedRESTController("Signup", "v1", "signup", func(rs *RouterService, c *RESTController) {
		rs.AddPostHandler(c, limited, "", func(ctx *RequestContext) *ServiceResult {
			return OKResult(nil, "ok")
		})
		rs.AddGetHandler(c, nil, "", func(ctx *RequestContext) *ServiceResult {
			return OKResult(nil, "ok")
		})
	}))

	post := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		rs.GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/signup", nil))
		return w
	}

	first := post()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := post()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))

	// GET on the same path keeps the global budget.
	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/signup", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1000", w.Header().Get("X-RateLimit-Limit"))
}

func TestDuplicateRouteLimiterPanics(t *testing.T) {
	rs := newTestRouterService(t)
	limiter := ratelimit.NewInMemoryRateLimiter(1, time.Minute)

	assert.Panics(t, func() {
		rs.bindHandlerRateLimiter("/v1/signup", http.MethodPost, limiter)
		rs.bindHandlerRateLimiter("/v1/signup", http.MethodPost, limiter)
	})
}
