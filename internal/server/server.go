package server

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tomlord1122/task-manager/internal/config"
	"github.com/Tomlord1122/task-manager/internal/service"
)

// HealthChecker reports database health; database.Service implements it.
type HealthChecker interface {
	Health() map[string]string
}

// Dependencies are constructed in main and injected here; the server keeps
// no package-level state of its own.
type Dependencies struct {
	Config   *config.Config
	DB       HealthChecker
	Auth     service.AuthService
	Tasks    service.TaskService
	Profiles service.ProfileService
	Avatars  http.Handler
	Limiter  *RateLimiter
	Log      *logrus.Entry
}

type Server struct {
	cfg      *config.Config
	db       HealthChecker
	auth     service.AuthService
	tasks    service.TaskService
	profiles service.ProfileService
	avatars  http.Handler
	limiter  *RateLimiter
	log      *logrus.Entry
	pages    *template.Template
}

func New(deps Dependencies) *Server {
	return &Server{
		cfg:      deps.Config,
		db:       deps.DB,
		auth:     deps.Auth,
		tasks:    deps.Tasks,
		profiles: deps.Profiles,
		avatars:  deps.Avatars,
		limiter:  deps.Limiter,
		log:      deps.Log,
		pages:    parsePages(),
	}
}

// NewServer wires the router into an *http.Server listening on cfg.Port.
func NewServer(deps Dependencies) *http.Server {
	appServer := New(deps)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appServer.cfg.Port),
		Handler:      appServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
