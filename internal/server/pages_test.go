package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/Tomlord1122/task-manager/internal/service"
)

func (e *testEnv) postForm(c *http.Client, path string, form url.Values) *http.Response {
	e.t.Helper()
	resp, err := c.PostForm(e.srv.URL+path, form)
	if err != nil {
		e.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func expectRedirect(t *testing.T, resp *http.Response, wantPath string) *url.URL {
	t.Helper()
	expectStatus(t, resp, http.StatusSeeOther)
	resp.Body.Close()
	loc, err := resp.Location()
	if err != nil {
		t.Fatalf("missing Location: %v", err)
	}
	if loc.Path != wantPath {
		t.Fatalf("expected redirect to %s, got %s", wantPath, loc)
	}
	return loc
}

// page loads path and expects it to render.
func (e *testEnv) page(c *http.Client, path string) string {
	e.t.Helper()
	resp := e.do(c, http.MethodGet, path, nil)
	expectStatus(e.t, resp, http.StatusOK)
	return readBody(e.t, resp)
}

// expectFlash loads path, expects message on it once, and gone on reload.
func (e *testEnv) expectFlash(c *http.Client, path, message string) {
	e.t.Helper()
	if body := e.page(c, path); !strings.Contains(body, message) {
		e.t.Fatalf("expected %q on %s:\n%s", message, path, body)
	}
	if body := e.page(c, path); strings.Contains(body, message) {
		e.t.Fatalf("%q should show only once on %s", message, path)
	}
}

func TestDashboardRedirectsWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()

	expectRedirect(t, env.do(c, http.MethodGet, "/dashboard", nil), "/login")
	expectRedirect(t, env.postForm(c, "/dashboard/tasks", url.Values{"title": {"x"}}), "/login")
	expectRedirect(t, env.do(c, http.MethodGet, "/", nil), "/login")
	if env.tasks.Len() != 0 {
		t.Fatal("no task should be created without a session")
	}
}

func TestRegisterAndLoginPages(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()

	resp := env.do(c, http.MethodGet, "/register", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := readBody(t, resp); !strings.Contains(body, `action="/register"`) {
		t.Fatal("register page should contain the form")
	}

	loc := expectRedirect(t, env.postForm(c, "/register", url.Values{
		"name": {"Ana"}, "email": {"ana@x.com"}, "password": {"pw123"},
	}), "/login")
	if loc.RawQuery != "" {
		t.Fatalf("flash should not travel in the URL, got %s", loc)
	}
	env.expectFlash(c, "/login", "Registration successful, please log in")

	resp = env.postForm(c, "/register", url.Values{"name": {"Ana"}, "email": {"ana@x.com"}, "password": {"pw123"}})
	expectStatus(t, resp, http.StatusBadRequest)
	if body := readBody(t, resp); !strings.Contains(body, "email already in use") {
		t.Fatal("duplicate registration should show the error")
	}

	resp = env.postForm(c, "/login", url.Values{"email": {"ana@x.com"}, "password": {"nope"}})
	expectStatus(t, resp, http.StatusUnauthorized)
	if body := readBody(t, resp); !strings.Contains(body, "Login failed") {
		t.Fatal("failed login should show the generic error")
	}

	expectRedirect(t, env.postForm(c, "/login", url.Values{"email": {"ana@x.com"}, "password": {"pw123"}}), "/dashboard")
	expectRedirect(t, env.do(c, http.MethodGet, "/login", nil), "/dashboard")
	expectRedirect(t, env.do(c, http.MethodGet, "/", nil), "/dashboard")

	resp = env.do(c, http.MethodGet, "/dashboard", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := readBody(t, resp); !strings.Contains(body, "Hello, Ana") || !strings.Contains(body, "No tasks yet.") {
		t.Fatalf("unexpected dashboard:\n%s", body)
	}

	expectRedirect(t, env.postForm(c, "/logout", nil), "/login")
	expectRedirect(t, env.do(c, http.MethodGet, "/dashboard", nil), "/login")
}

func TestDashboardTaskForms(t *testing.T) {
	env := newTestEnv(t)
	c := env.signup("Ana Lopez", "ana@x.com", "pw123")

	expectRedirect(t, env.postForm(c, "/dashboard/tasks", url.Values{"title": {"Buy milk"}}), "/dashboard")
	expectRedirect(t, env.postForm(c, "/dashboard/tasks", url.Values{"title": {"Walk <dog>"}}), "/dashboard")

	expectRedirect(t, env.postForm(c, "/dashboard/tasks", url.Values{"title": {"  "}}), "/dashboard")
	env.expectFlash(c, "/dashboard", "Task cannot be empty")

	resp := env.do(c, http.MethodGet, "/dashboard", nil)
	expectStatus(t, resp, http.StatusOK)
	body := readBody(t, resp)
	if !strings.Contains(body, "Buy milk") || !strings.Contains(body, "Walk &lt;dog&gt;") {
		t.Fatalf("dashboard should list escaped task titles:\n%s", body)
	}
	if !strings.Contains(body, "Hello, Ana") || !strings.Contains(body, "2 pending") || !strings.Contains(body, "0/2 tasks") {
		t.Fatalf("dashboard header or stats missing:\n%s", body)
	}
	if strings.Index(body, "Walk &lt;dog&gt;") > strings.Index(body, "Buy milk") {
		t.Fatal("newest task should be listed first")
	}

	var tasks []service.TaskResponse
	decodeBody(t, env.do(c, http.MethodGet, "/api/tasks", nil), &tasks)
	milk := tasks[1]

	expectRedirect(t, env.postForm(c, fmt.Sprintf("/dashboard/tasks/%d/toggle", milk.ID), nil), "/dashboard")
	resp = env.do(c, http.MethodGet, "/dashboard", nil)
	body = readBody(t, resp)
	if !strings.Contains(body, "1 completed") || !strings.Contains(body, "1/2 tasks") || !strings.Contains(body, `<progress value="50" max="100">`) {
		t.Fatalf("toggled task should count as completed:\n%s", body)
	}

	expectRedirect(t, env.postForm(c, "/dashboard/tasks/clear-completed", nil), "/dashboard")
	if env.tasks.Len() != 1 {
		t.Fatalf("expected 1 task left, got %d", env.tasks.Len())
	}

	expectRedirect(t, env.postForm(c, fmt.Sprintf("/dashboard/tasks/%d/delete", tasks[0].ID), nil), "/dashboard")
	if env.tasks.Len() != 0 {
		t.Fatal("expected every task deleted")
	}

	expectRedirect(t, env.postForm(c, "/dashboard/tasks/nope/delete", nil), "/dashboard")
	env.expectFlash(c, "/dashboard", invalidTaskID)
}

func TestDashboardProfileForm(t *testing.T) {
	env := newTestEnv(t)
	c := env.signup("Ana", "ana@x.com", "pw123")

	expectRedirect(t, env.postForm(c, "/dashboard/profile", url.Values{
		"name": {"Ana Maria"}, "email": {"ana@x.com"},
	}), "/dashboard")
	env.expectFlash(c, "/dashboard", "Profile updated")

	if body := env.page(c, "/dashboard"); !strings.Contains(body, `value="Ana Maria"`) {
		t.Fatal("profile form should show the new name")
	}

	expectRedirect(t, env.postForm(c, "/dashboard/profile", url.Values{"name": {""}, "email": {"ana@x.com"}}), "/dashboard")
	env.expectFlash(c, "/dashboard", "name is required")
}

func TestFlashIgnoresQueryString(t *testing.T) {
	env := newTestEnv(t)
	anon := env.client()
	fake := "Your account is locked, call 555-0100"

	if body := env.page(anon, "/login?"+url.Values{"error": {fake}, "notice": {fake}}.Encode()); strings.Contains(body, "555-0100") {
		t.Fatal("login page must not echo query text")
	}

	c := env.signup("Ana", "ana@x.com", "pw123")
	if body := env.page(c, "/dashboard?"+url.Values{"error": {fake}}.Encode()); strings.Contains(body, "555-0100") {
		t.Fatal("dashboard must not echo query text")
	}
}

func TestNameHelpers(t *testing.T) {
	tests := []struct {
		name, first, initials string
	}{
		{"Ana Lopez", "Ana", "AL"},
		{"ana", "ana", "A"},
		{"  ", "", ""},
		{"Émile de la Cruz", "Émile", "ÉD"},
	}
	for _, tt := range tests {
		if got := firstName(tt.name); got != tt.first {
			t.Errorf("firstName(%q) = %q, want %q", tt.name, got, tt.first)
		}
		if got := initials(tt.name); got != tt.initials {
			t.Errorf("initials(%q) = %q, want %q", tt.name, got, tt.initials)
		}
	}
}
