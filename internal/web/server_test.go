package web

import (
	"crypto/rand"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/marchkov/internal/auth"
	"github.com/example/marchkov/internal/metrics"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	hashKey := make([]byte, 32)
	blockKey := make([]byte, 32)
	_, err := rand.Read(hashKey)
	require.NoError(t, err)
	_, err = rand.Read(blockKey)
	require.NoError(t, err)

	return &Server{
		Auth:    auth.NewStore(nil, hashKey, blockKey),
		Metrics: metrics.NewCollector(),
		Log:     zap.NewNop(),
	}
}

func TestTemplatesParse(t *testing.T) {
	pages := []string{
		"templates/login.html",
		"templates/home.html",
		"templates/result.html",
		"templates/stats.html",
	}
	for _, page := range pages {
		_, err := template.ParseFS(fs, "templates/base.html", page)
		assert.NoError(t, err, page)
	}
}

func TestHealthz(t *testing.T) {
	h := testServer(t).Routes()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok\n", w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := testServer(t)
	s.Metrics.FailStage("auth")
	h := s.Routes()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "marchkov_stage_failures_total")
}

func TestLoginPageRenders(t *testing.T) {
	h := testServer(t).Routes()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "登录")
}

func TestHomeRedirectsAnonymous(t *testing.T) {
	h := testServer(t).Routes()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Result().Header.Get("Location"))
}

func TestReserveRequiresPost(t *testing.T) {
	s := testServer(t)
	h := s.Routes()

	// Authenticated GET on a POST-only route.
	setW := httptest.NewRecorder()
	setR := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, s.Auth.SetSession(setW, setR, 1))

	r := httptest.NewRequest(http.MethodGet, "/reserve", nil)
	r.AddCookie(setW.Result().Cookies()[0])
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
