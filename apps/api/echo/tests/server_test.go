package tests

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/profpay/profpay/apps/api/echo"
	"github.com/profpay/profpay/core"
)

func Test_server_health(t *testing.T) {
	healthy := []byte(`{"status": "healthy", "version": "test"}`)
	runHTTPTests(t, setup(t), []httpTest{
		{name: "root", path: "/health", wantCode: http.StatusOK, wantData: healthy},
		{name: "versioned", path: "/api/v1/health", wantCode: http.StatusOK, wantData: healthy},
	})

	down := setupWithDeps(t, func(deps *ServerDeps) {
		deps.HealthCheck = func(context.Context) error { return errors.New("connection refused") }
	})
	runHTTPTests(t, down, []httpTest{
		{name: "storage down", path: "/health", wantCode: http.StatusServiceUnavailable, wantData: []byte(`{"status": "unhealthy", "version": "test"}`)},
	})
}

func Test_server_securityHeaders(t *testing.T) {
	app := setup(t)
	req, rec := newRequest(http.MethodGet, "/health")
	app.serve(req, rec)

	h := rec.Header()
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Equal(t, "1; mode=block", h.Get("X-XSS-Protection"))
	assert.Equal(t, "strict-origin-when-cross-origin", h.Get("Referrer-Policy"))
	assert.NotEmpty(t, h.Get("Content-Security-Policy"))
	assert.NotEmpty(t, h.Get("Permissions-Policy"))
	assert.NotEmpty(t, h.Get("X-Request-Id"))
}

func Test_server_spa(t *testing.T) {
	t.Run("without a build", func(t *testing.T) {
		app := setup(t)
		for _, path := range []string{"/payers", "/api/v2/payers", "/assets/app.js"} {
			req, rec := newRequest(http.MethodGet, path)
			assert.Equal(t, http.StatusNotFound, app.serve(req, rec).Code, path)
		}

		req, rec := newRequest(http.MethodGet, "/no/such/page")
		app.serve(req, rec)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	})

	t.Run("with a build", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>profpay</html>"), 0o644))
		require.NoError(t, os.Mkdir(filepath.Join(dir, "assets"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644))

		app := setup(t, func(conf *core.Config) { conf.Server.StaticDir = dir })
		cases := []struct {
			path     string
			wantCode int
			wantBody string
		}{
			{path: "/", wantCode: http.StatusOK, wantBody: "<html>profpay</html>"},
			{path: "/payers/5", wantCode: http.StatusOK, wantBody: "<html>profpay</html>"},
			{path: "/debtors/", wantCode: http.StatusOK, wantBody: "<html>profpay</html>"},
			{path: "/assets/app.js", wantCode: http.StatusOK, wantBody: "console.log(1)"},
			{path: "/assets/missing.js", wantCode: http.StatusNotFound},
			{path: "/payers/5/payments", wantCode: http.StatusFound},
		}
		for _, tc := range cases {
			t.Run(tc.path, func(t *testing.T) {
				req, rec := newRequest(http.MethodGet, tc.path)
				app.serve(req, rec)
				assert.Equal(t, tc.wantCode, rec.Code)
				if tc.wantBody != "" {
					assert.Equal(t, tc.wantBody, rec.Body.String())
				}
			})
		}
	})
}
