package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.clientIP)
	r.Use(s.requestLogger)
	r.Use(metrics)
	r.Use(middleware.Recoverer)
	r.Use(s.securityHeaders)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.healthHandler)
	r.Handle("/metrics", promhttp.Handler())
	if s.avatars != nil {
		r.Handle("/avatars/*", s.avatars)
	}

	r.Route("/api", func(r chi.Router) {
		r.With(s.limiter.Limit("register")).Post("/register", s.registerHandler)
		r.With(s.limiter.Limit("login")).Post("/login", s.loginHandler)
		r.Post("/auth/logout", s.logoutHandler)

		r.Group(func(r chi.Router) {
			r.Use(s.RequireSession(s.unauthorizedJSON))

			r.Get("/me", s.meHandler)
			r.Put("/profile", s.updateProfileHandler)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", s.listTasksHandler)
				r.Post("/", s.createTaskHandler)
				r.Delete("/completed", s.clearCompletedHandler)
				r.Patch("/{id}", s.updateTaskHandler)
				r.Delete("/{id}", s.deleteTaskHandler)
			})
		})
	})

	r.Get("/", s.homePage)
	r.Get("/login", s.loginPage)
	r.With(s.limiter.Limit("login")).Post("/login", s.loginForm)
	r.Get("/register", s.registerPage)
	r.With(s.limiter.Limit("register")).Post("/register", s.registerForm)
	r.Post("/logout", s.logoutForm)

	r.Route("/dashboard", func(r chi.Router) {
		r.Use(s.RequireSession(s.redirectToLogin))

		r.Get("/", s.dashboardPage)
		r.Post("/tasks", s.addTaskForm)
		r.Post("/tasks/clear-completed", s.clearCompletedForm)
		r.Post("/tasks/{id}/toggle", s.toggleTaskForm)
		r.Post("/tasks/{id}/delete", s.deleteTaskForm)
		r.Post("/profile", s.updateProfileForm)
	})

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.db.Health()
	if status, ok := healthStats["status"]; ok && status == "down" {
		respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	respondWithJSON(w, http.StatusOK, healthStats)
}
