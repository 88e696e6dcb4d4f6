package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tomlord1122/task-manager/internal/auth"
	"github.com/Tomlord1122/task-manager/internal/domain"
	"github.com/Tomlord1122/task-manager/internal/repository"
)

// loginFailed is deliberately the same for an unknown email and a wrong
// password.
const loginFailed = "Login failed"

// RegisterRequest holds the data needed to create an account.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,maxbytes=72"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is what a successful login hands back to the transport layer.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *UserResponse
}

// AuthService verifies credentials and session tokens.
type AuthService interface {
	// Register creates a user with a hashed password.
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)

	// Login checks the credentials and issues a session token.
	Login(ctx context.Context, req LoginRequest) (*Session, error)

	// Authenticate resolves a session token to the user it was issued for.
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

type authService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	log    *logrus.Entry
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager, log *logrus.Entry) AuthService {
	return &authService{
		users:  users,
		tokens: tokens,
		log:    log.WithField("component", "auth_service"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	_, err := s.users.FindByEmail(ctx, req.Email)
	if err == nil {
		return nil, validationError("email already in use")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.log.WithError(err).Error("lookup email before register")
		return nil, serverError("Failed to register user", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.WithError(err).Error("hash password")
		return nil, serverError("Failed to register user", err)
	}

	user := &domain.User{Name: req.Name, Email: req.Email, Password: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, validationError("email already in use")
		}
		s.log.WithError(err).Error("create user")
		return nil, serverError("Failed to register user", err)
	}

	s.log.WithField("user_id", user.ID).Info("user registered")
	return toUserResponse(user), nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, &Error{Kind: ErrAuthentication, Message: loginFailed}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &Error{Kind: ErrAuthentication, Message: loginFailed}
		}
		s.log.WithError(err).Error("lookup user for login")
		return nil, serverError("Login failed, please try again.", err)
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		return nil, &Error{Kind: ErrAuthentication, Message: loginFailed}
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.log.WithError(err).Error("issue session token")
		return nil, serverError("Login failed, please try again.", err)
	}

	return &Session{Token: token, ExpiresAt: expiresAt, User: toUserResponse(user)}, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, &Error{Kind: ErrAuthentication, Message: "Session expired, please log in again", Cause: err}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &Error{Kind: ErrAuthentication, Message: "Session expired, please log in again", Cause: err}
		}
		s.log.WithError(err).WithField("user_id", userID).Error("load session user")
		return nil, serverError("Failed to load user", err)
	}
	return user, nil
}
