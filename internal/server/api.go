package server

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Tomlord1122/task-manager/internal/service"
	"github.com/Tomlord1122/task-manager/internal/storage"
)

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if _, err := s.auth.Register(r.Context(), req); err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	respondWithMessage(w, http.StatusCreated, "User registered successfully")
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	session, err := s.auth.Login(r.Context(), req)
	if err != nil {
		// Login failures answer with {message} like the rest of the auth flow.
		respondWithMessage(w, statusFor(err), service.Message(err))
		return
	}

	s.setSessionCookie(w, session)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user":    session.User,
	})
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	respondWithMessage(w, http.StatusOK, "Logged out")
}

func (s *Server) meHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.profiles.Me(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

func (s *Server) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.ListTasks(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTaskRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	task, err := s.tasks.AddTask(r.Context(), userFromContext(r.Context()).ID, req)
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, task)
}

func (s *Server) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	var req service.UpdateTaskRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	task, err := s.tasks.UpdateTask(r.Context(), id, userFromContext(r.Context()).ID, req)
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, task)
}

func (s *Server) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	if err := s.tasks.DeleteTask(r.Context(), id, userFromContext(r.Context()).ID); err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearCompletedHandler(w http.ResponseWriter, r *http.Request) {
	removed, err := s.tasks.ClearCompleted(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func (s *Server) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := parseProfileForm(w, r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	user, err := s.profiles.UpdateProfile(r.Context(), userFromContext(r.Context()).ID, req)
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

const invalidTaskID = "Invalid task ID provided"

func parseTaskID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func taskIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, ok := parseTaskID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, invalidTaskID)
	}
	return id, ok
}

var errBadProfileForm = errors.New("Request must be a multipart or url-encoded form")

// parseProfileForm reads {name, email, password?, avatar?} from a multipart
// form, falling back to a url-encoded one without an avatar. The returned
// cleanup closes the uploaded file.
func parseProfileForm(w http.ResponseWriter, r *http.Request) (service.UpdateProfileRequest, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxAvatarSize+maxJSONBody)

	err := r.ParseMultipartForm(storage.MaxAvatarSize)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return service.UpdateProfileRequest{}, noop, storage.ErrAvatarTooBig
		}
		return service.UpdateProfileRequest{}, noop, errBadProfileForm
	}

	req := service.UpdateProfileRequest{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}

	var file multipart.File
	if r.MultipartForm != nil {
		file, _, err = r.FormFile("avatar")
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			return service.UpdateProfileRequest{}, noop, errBadProfileForm
		}
	}
	if file == nil {
		return req, noop, nil
	}

	req.Avatar = file
	return req, func() {
		_ = file.Close()
		_ = r.MultipartForm.RemoveAll()
	}, nil
}
