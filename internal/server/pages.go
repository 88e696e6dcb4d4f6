package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Tomlord1122/task-manager/internal/auth"
	"github.com/Tomlord1122/task-manager/internal/domain"
	"github.com/Tomlord1122/task-manager/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageFuncs = template.FuncMap{
	"firstName": firstName,
	"initials":  initials,
}

func parsePages() *template.Template {
	return template.Must(template.New("pages").Funcs(pageFuncs).ParseFS(templateFS, "templates/*.html"))
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func initials(name string) string {
	var out []rune
	for _, f := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(f)
		out = append(out, unicode.ToUpper(r))
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}

type pageData struct {
	Title  string
	Error  string
	Notice string
	Name   string
	Email  string
	User   *domain.User
	Tasks  []service.TaskResponse
	Stats  service.TaskStats
}

// render executes into a buffer first so a template error never leaves a
// half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.requestLog(r).WithError(err).WithField("template", name).Error("render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

const flashCookie = "flash"

// redirectWith sends a 303 to target and leaves a one-shot error or notice
// in a short-lived cookie for the next page to show.
func (s *Server) redirectWith(w http.ResponseWriter, r *http.Request, target, key, message string) {
	if message != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookie,
			Value:    url.Values{key: {message}}.Encode(),
			Path:     "/",
			MaxAge:   60,
			HttpOnly: true,
			Secure:   s.cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// takeFlash returns the pending flash message, if any, and clears it.
func (s *Server) takeFlash(w http.ResponseWriter, r *http.Request) (errMsg, notice string) {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return "", ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	v, err := url.ParseQuery(c.Value)
	if err != nil {
		return "", ""
	}
	return v.Get("error"), v.Get("notice")
}

func (s *Server) hasSession(r *http.Request) bool {
	c, err := r.Cookie(auth.CookieName)
	if err != nil || c.Value == "" {
		return false
	}
	_, err = s.auth.Authenticate(r.Context(), c.Value)
	return err == nil
}

func (s *Server) homePage(w http.ResponseWriter, r *http.Request) {
	if s.hasSession(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	if s.hasSession(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	errMsg, notice := s.takeFlash(w, r)
	s.render(w, r, http.StatusOK, "login.html", pageData{
		Title:  "Log in",
		Error:  errMsg,
		Notice: notice,
	})
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login.html", pageData{Title: "Log in", Error: "Invalid form submission"})
		return
	}

	req := service.LoginRequest{Email: r.PostForm.Get("email"), Password: r.PostForm.Get("password")}
	session, err := s.auth.Login(r.Context(), req)
	if err != nil {
		s.render(w, r, statusFor(err), "login.html", pageData{
			Title: "Log in",
			Error: service.Message(err),
			Email: req.Email,
		})
		return
	}

	s.setSessionCookie(w, session)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) registerPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", pageData{Title: "Create account"})
}

func (s *Server) registerForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "register.html", pageData{Title: "Create account", Error: "Invalid form submission"})
		return
	}

	req := service.RegisterRequest{
		Name:     r.PostForm.Get("name"),
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}
	if _, err := s.auth.Register(r.Context(), req); err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			s.requestLog(r).WithError(err).Error("register")
		}
		s.render(w, r, code, "register.html", pageData{
			Title: "Create account",
			Error: service.Message(err),
			Name:  req.Name,
			Email: req.Email,
		})
		return
	}

	s.redirectWith(w, r, "/login", "notice", "Registration successful, please log in")
}

func (s *Server) logoutForm(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) dashboardPage(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	errMsg, notice := s.takeFlash(w, r)
	data := pageData{
		Title:  "Dashboard",
		Error:  errMsg,
		Notice: notice,
		User:   user,
	}

	tasks, err := s.tasks.ListTasks(r.Context(), user.ID)
	if err != nil {
		s.requestLog(r).WithError(err).Error("load dashboard tasks")
		data.Error = service.Message(err)
		tasks = []service.TaskResponse{}
	}
	data.Tasks = tasks
	data.Stats = service.StatsOf(tasks)

	s.render(w, r, http.StatusOK, "dashboard.html", data)
}

// dashboardResult redirects back to the dashboard, surfacing err if any.
func (s *Server) dashboardResult(w http.ResponseWriter, r *http.Request, err error, notice string) {
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			s.requestLog(r).WithError(err).Error("dashboard action failed")
		}
		s.redirectWith(w, r, "/dashboard", "error", service.Message(err))
		return
	}
	s.redirectWith(w, r, "/dashboard", "notice", notice)
}

func (s *Server) addTaskForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.redirectWith(w, r, "/dashboard", "error", "Invalid form submission")
		return
	}
	_, err := s.tasks.AddTask(r.Context(), userFromContext(r.Context()).ID, service.CreateTaskRequest{
		Title: r.PostForm.Get("title"),
	})
	s.dashboardResult(w, r, err, "")
}

func (s *Server) toggleTaskForm(w http.ResponseWriter, r *http.Request) {
	id, ok := s.formTaskID(w, r)
	if !ok {
		return
	}
	_, err := s.tasks.ToggleTask(r.Context(), id, userFromContext(r.Context()).ID)
	s.dashboardResult(w, r, err, "")
}

func (s *Server) deleteTaskForm(w http.ResponseWriter, r *http.Request) {
	id, ok := s.formTaskID(w, r)
	if !ok {
		return
	}
	err := s.tasks.DeleteTask(r.Context(), id, userFromContext(r.Context()).ID)
	s.dashboardResult(w, r, err, "")
}

func (s *Server) clearCompletedForm(w http.ResponseWriter, r *http.Request) {
	_, err := s.tasks.ClearCompleted(r.Context(), userFromContext(r.Context()).ID)
	s.dashboardResult(w, r, err, "")
}

func (s *Server) updateProfileForm(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := parseProfileForm(w, r)
	if err != nil {
		s.redirectWith(w, r, "/dashboard", "error", err.Error())
		return
	}
	defer cleanup()

	_, err = s.profiles.UpdateProfile(r.Context(), userFromContext(r.Context()).ID, req)
	s.dashboardResult(w, r, err, "Profile updated")
}

func (s *Server) formTaskID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, ok := parseTaskID(r)
	if !ok {
		s.redirectWith(w, r, "/dashboard", "error", invalidTaskID)
	}
	return id, ok
}
