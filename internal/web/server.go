// Package web serves the browser UI: login, one-click reservation with the
// boarding code, and ride statistics.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/marchkov/internal/auth"
	"github.com/example/marchkov/internal/creds"
	"github.com/example/marchkov/internal/db"
	"github.com/example/marchkov/internal/metrics"
	"github.com/example/marchkov/internal/pipeline"
	"github.com/example/marchkov/internal/portal"
	"github.com/example/marchkov/internal/rides"
	"github.com/example/marchkov/internal/shuttle"
)

//go:embed templates/*.html
var fs embed.FS

type Server struct {
	Auth   *auth.Store
	Creds  *creds.Repo
	Rides  *rides.Repo
	Portal *portal.Client

	Timing        shuttle.TimingConfig
	TempResources map[shuttle.Direction]shuttle.TempResource
	Metrics       *metrics.Collector
	Log           *zap.Logger
}

type tmplData struct {
	Title string
	User  int64
	Flash string

	HasCredentials bool
	PortalUsername string
	Direction      shuttle.Direction

	Result   *pipeline.Result
	Messages []string

	Stats     shuttle.Analytics
	NoShowPct string
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", s.Metrics.Handler())

	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)

	mux.Handle("/", s.Auth.RequireAuth(http.HandlerFunc(s.handleHome)))
	mux.Handle("/credentials", s.Auth.RequireAuth(http.HandlerFunc(s.handleCredentials)))
	mux.Handle("/reserve", s.Auth.RequireAuth(http.HandlerFunc(s.handleReserve)))
	mux.Handle("/history/sync", s.Auth.RequireAuth(http.HandlerFunc(s.handleHistorySync)))
	mux.Handle("/stats", s.Auth.RequireAuth(http.HandlerFunc(s.handleStats)))

	return mux
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, "templates/login.html", tmplData{Title: "登录"})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		username := strings.TrimSpace(r.FormValue("username"))
		password := r.FormValue("password")
		id, err := s.Auth.Authenticate(r.Context(), username, password)
		if err != nil {
			s.render(w, "templates/login.html", tmplData{Title: "登录", Flash: "用户名或密码错误"})
			return
		}
		if err := s.Auth.SetSession(w, r, id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	data := tmplData{
		Title:     "班车",
		User:      uid,
		Direction: s.Timing.DefaultDirection(time.Now()),
		Flash:     r.URL.Query().Get("flash"),
	}
	if c, err := s.Creds.Get(r.Context(), uid); err == nil {
		data.HasCredentials = true
		data.PortalUsername = c.PortalUsername
	}
	s.render(w, "templates/home.html", data)
}

func (s *Server) handleCredentials(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	username := strings.TrimSpace(r.FormValue("portal_username"))
	password := r.FormValue("portal_password")
	if username == "" || password == "" {
		http.Redirect(w, r, "/?flash="+template.URLQueryEscaper("账号和密码不能为空"), http.StatusFound)
		return
	}
	if err := s.Creds.Save(r.Context(), uid, username, password); err != nil {
		s.Log.Error("save credentials failed", zap.Int64("user_id", uid), zap.Error(err))
		http.Error(w, "保存失败", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/?flash="+template.URLQueryEscaper("门户账号已保存"), http.StatusFound)
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())

	cred, err := s.Creds.Get(r.Context(), uid)
	if err != nil {
		if db.IsNotFound(err) {
			http.Redirect(w, r, "/?flash="+template.URLQueryEscaper("请先保存门户账号"), http.StatusFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dir := shuttle.Direction(r.FormValue("direction"))
	if dir != shuttle.ToYanyuan && dir != shuttle.ToChangping {
		dir = ""
	}

	var messages []string
	res, err := pipeline.Run(r.Context(), s.Portal, cred.PortalUsername, cred.PortalPassword, pipeline.Options{
		Direction:     dir,
		Timing:        s.Timing,
		TempResources: s.TempResources,
		Cached:        cred.Profile,
		Progress:      func(msg string) { messages = append(messages, msg) },
		Metrics:       s.Metrics,
		Logger:        s.Log,
	})
	if err != nil {
		s.render(w, "templates/result.html", tmplData{
			Title:    "预约失败",
			User:     uid,
			Flash:    err.Error(),
			Messages: messages,
		})
		return
	}

	if res.Profile != cred.Profile {
		if err := s.Creds.SaveProfile(r.Context(), uid, res.Profile); err != nil {
			s.Log.Warn("profile cache update failed", zap.Int64("user_id", uid), zap.Error(err))
		}
	}

	s.render(w, "templates/result.html", tmplData{
		Title:    "预约成功",
		User:     uid,
		Result:   res,
		Messages: messages,
	})
}

func (s *Server) handleHistorySync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())

	cred, err := s.Creds.Get(r.Context(), uid)
	if err != nil {
		if db.IsNotFound(err) {
			http.Redirect(w, r, "/?flash="+template.URLQueryEscaper("请先保存门户账号"), http.StatusFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	session := s.Portal.NewSession()
	if err := session.Authenticate(r.Context(), cred.PortalUsername, cred.PortalPassword, nil); err != nil {
		http.Redirect(w, r, "/?flash="+template.URLQueryEscaper("门户登录失败"), http.StatusFound)
		return
	}
	records, err := session.RideHistory(r.Context())
	if err != nil {
		http.Redirect(w, r, "/?flash="+template.URLQueryEscaper("获取乘车历史失败"), http.StatusFound)
		return
	}
	if err := s.Rides.Replace(r.Context(), uid, records); err != nil {
		s.Log.Error("ride history replace failed", zap.Int64("user_id", uid), zap.Error(err))
		http.Error(w, "保存乘车历史失败", http.StatusInternalServerError)
		return
	}
	s.Log.Info("ride history synced", zap.Int64("user_id", uid), zap.Int("records", len(records)))
	http.Redirect(w, r, "/stats", http.StatusFound)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	records, err := s.Rides.List(r.Context(), uid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	stats := shuttle.Analyze(records)
	s.render(w, "templates/stats.html", tmplData{
		Title:     "乘车统计",
		User:      uid,
		Stats:     stats,
		NoShowPct: fmt.Sprintf("%.1f%%", stats.NoShowRate*100),
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data tmplData) {
	t, err := template.ParseFS(fs, "templates/base.html", name)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
	}
}

// Start serves h until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("listening", zap.String("addr", addr))
	return srv.ListenAndServe()
}
