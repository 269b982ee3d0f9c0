package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// Authenticate runs the strictly ordered login sequence:
//
//  1. GET the portal landing endpoint to seed session cookies.
//  2. POST credentials to the IAAA SSO endpoint and extract the token.
//  3. GET the redirect URL with the token, converting it into authenticated
//     session cookies.
//
// On success the session token is set and every later call rides the jar.
// The first failing step aborts the sequence.
func (s *Session) Authenticate(ctx context.Context, username, password string, progress Progress) error {
	status, _, err := s.get(ctx, s.c.wprocBase+"/api/login/main", nil)
	if err != nil {
		return &AuthError{Kind: AuthNetworkError, Msg: "第一步：访问登录入口失败", Err: err}
	}
	progress.Emit(fmt.Sprintf("第一步：访问登录入口成功（%d）", status))

	redirURL := s.c.wprocBase + "/site/login/cas-login?redirect_url=" + s.c.wprocBase + "/v2/reserve/"
	form := url.Values{
		"appid":    {appID},
		"userName": {username},
		"password": {password},
		"redirUrl": {redirURL},
	}
	status, body, err := s.postForm(ctx, s.c.iaaaBase+"/iaaa/oauthlogin.do", form)
	if err != nil {
		return &AuthError{Kind: AuthNetworkError, Msg: "第二步：登录请求失败", Err: err}
	}
	var sso ssoResponse
	if jerr := json.Unmarshal(body, &sso); jerr != nil {
		return &AuthError{Kind: AuthNetworkError, Msg: "第二步：登录响应不是合法 JSON", Err: jerr}
	}
	if !ok(status) || sso.Token == "" {
		return &AuthError{Kind: AuthInvalidCredentials, Msg: "第二步：登录账号失败，未获取到 token"}
	}
	s.token = sso.Token
	progress.Emit("第二步：登录账号成功，获取 token")
	s.c.log.Debug("sso login ok", zap.Int("status", status))

	q := url.Values{
		"redirect_url": {s.c.wprocBase + "/v2/reserve/"},
		"token":        {s.token},
	}
	status, _, err = s.get(ctx, s.c.wprocBase+"/site/login/cas-login", q)
	if err != nil {
		return &AuthError{Kind: AuthNetworkError, Msg: "第三步：跟随重定向失败", Err: err}
	}
	if !ok(status) {
		return &AuthError{Kind: AuthRedirectFailed, Msg: fmt.Sprintf("第三步：跟随重定向失败（%d）", status)}
	}
	progress.Emit(fmt.Sprintf("第三步：跟随重定向成功（%d）", status))
	return nil
}
