package portal

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
)

// Session is one authenticated attempt against the portal: its own cookie
// jar and the auth token obtained during login. Sessions are never shared
// across concurrent attempts; a direction toggle builds a fresh one.
type Session struct {
	c     *Client
	hc    *http.Client
	token string
}

// NewSession builds an unauthenticated session with an empty cookie jar.
func (c *Client) NewSession() *Session {
	jar, _ := cookiejar.New(nil)
	return &Session{
		c: c,
		hc: &http.Client{
			Jar:     jar,
			Timeout: c.timeout,
		},
	}
}

// Token returns the SSO token, empty until Authenticate succeeds.
func (s *Session) Token() string { return s.token }

func (s *Session) get(ctx context.Context, rawURL string, query url.Values) (int, []byte, error) {
	if len(query) > 0 {
		rawURL = rawURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	return s.do(req)
}

func (s *Session) postForm(ctx context.Context, rawURL string, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *Session) do(req *http.Request) (int, []byte, error) {
	res, err := s.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, body, nil
}

func ok(status int) bool { return status >= 200 && status < 300 }
