package portal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points both portal bases at one stub server.
func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{IAAABase: srv.URL, WprocBase: srv.URL})
}

func TestAuthenticateSuccess(t *testing.T) {
	var casCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/api/login/main", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/iaaa/oauthlogin.do", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "wproc", r.PostFormValue("appid"))
		assert.Equal(t, "2301110000", r.PostFormValue("userName"))
		assert.Contains(t, r.PostFormValue("redirUrl"), "/site/login/cas-login")
		_, _ = w.Write([]byte(`{"success":true,"token":"tok123"}`))
	})
	mux.HandleFunc("/site/login/cas-login", func(w http.ResponseWriter, r *http.Request) {
		casCalls++
		assert.Equal(t, "tok123", r.URL.Query().Get("token"))
		assert.NotEmpty(t, r.URL.Query().Get("redirect_url"))
	})

	c := newTestClient(t, mux)
	s := c.NewSession()

	var messages []string
	err := s.Authenticate(context.Background(), "2301110000", "secret", func(msg string) {
		messages = append(messages, msg)
	})
	require.NoError(t, err)

	assert.Equal(t, "tok123", s.Token())
	assert.Equal(t, 1, casCalls)
	require.Len(t, messages, 3)
	assert.Contains(t, messages[0], "第一步")
	assert.Contains(t, messages[1], "第二步")
	assert.Contains(t, messages[2], "第三步")
}

func TestAuthenticateMissingTokenStopsSequence(t *testing.T) {
	var casCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/api/login/main", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/iaaa/oauthlogin.do", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"token":""}`))
	})
	mux.HandleFunc("/site/login/cas-login", func(w http.ResponseWriter, r *http.Request) {
		casCalls++
	})

	c := newTestClient(t, mux)
	err := c.NewSession().Authenticate(context.Background(), "u", "p", nil)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, AuthInvalidCredentials, authErr.Kind)
	assert.Zero(t, casCalls, "redirect must not run after a failed login")
}

func TestAuthenticateRedirectFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login/main", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/iaaa/oauthlogin.do", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"token":"tok123"}`))
	})
	mux.HandleFunc("/site/login/cas-login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	c := newTestClient(t, mux)
	err := c.NewSession().Authenticate(context.Background(), "u", "p", nil)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, AuthRedirectFailed, authErr.Kind)
}

func TestAuthenticateTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Options{IAAABase: url, WprocBase: url})
	err := c.NewSession().Authenticate(context.Background(), "u", "p", nil)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, AuthNetworkError, authErr.Kind)
}

func TestAuthenticateNonJSONLoginBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login/main", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/iaaa/oauthlogin.do", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	})

	c := newTestClient(t, mux)
	err := c.NewSession().Authenticate(context.Background(), "u", "p", nil)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, AuthNetworkError, authErr.Kind)
}
