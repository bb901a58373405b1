// Package account implements the public auth flows of every role: login, logout,
// registration and password recovery.
package account

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/backend"
	"github.com/trezcool/tutorhub/core/session"
)

const forgotPasswordText = "If the email address supplied is associated with an active account on this system, " +
	"an email will arrive in your inbox shortly with instructions to reset your password."

var (
	ErrRegistrationClosed = errors.New("registration is not open for this role")

	errInvalidCredentials = core.NewValidationError(errors.New("invalid email or password"))
)

type (
	// Backend is the auth part of the REST backend.
	Backend interface {
		Login(ctx context.Context, role session.Role, email, password string) (*session.Identity, string, error)
		Register(ctx context.Context, role session.Role, payload interface{}) (*session.Identity, string, error)
		ForgotPassword(ctx context.Context, role session.Role, email string) error
		ResetPassword(ctx context.Context, role session.Role, token, password string) error
	}

	Login struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	// Registration opens a student or tutor account.
	Registration struct {
		Name            string `json:"name" validate:"required"`
		Email           string `json:"email" validate:"required,email"`
		Phone           string `json:"phone,omitempty" validate:"omitempty,phone"`
		Location        string `json:"location,omitempty"`
		Bio             string `json:"bio,omitempty"`
		Password        string `json:"password" validate:"required"`
		PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	}

	ForgotPassword struct {
		Email string `json:"email" validate:"required,email"`
	}

	ResetPassword struct {
		Password        string `json:"password" validate:"required"`
		PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	}

	// registrationPayload is what the backend receives: no confirmation field.
	registrationPayload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone,omitempty"`
		Location string `json:"location,omitempty"`
		Bio      string `json:"bio,omitempty"`
		Password string `json:"password"`
	}

	Service struct {
		backend  Backend
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(b Backend, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{backend: b, validate: validate, logger: logger}
}

// Login authenticates against the backend and keeps identity and token in the role's context.
func (svc *Service) Login(ctx context.Context, sc *session.Context, data Login) (*session.Identity, error) {
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := svc.validate.Struct(data); err != nil {
		return nil, err
	}

	id, token, err := svc.backend.Login(ctx, sc.Role(), data.Email, data.Password)
	if err != nil {
		if backend.IsStatus(err, http.StatusUnauthorized) || backend.IsStatus(err, http.StatusBadRequest) ||
			backend.IsStatus(err, http.StatusNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, errors.Wrap(err, "logging in")
	}
	if token == "" {
		return nil, errors.New("backend login response carries no token")
	}
	if err = sc.Login(ctx, id, token); err != nil {
		return nil, errors.Wrap(err, "persisting login")
	}
	return sc.Identity(), nil
}

// Logout forgets the role's identity and token; other roles stay signed in.
func (svc *Service) Logout(ctx context.Context, sc *session.Context) error {
	return errors.Wrap(sc.Logout(ctx), "logging out")
}

// Register opens an account. When the backend answers with a token the user is signed in
// right away, otherwise the returned identity is nil and the user has to log in.
func (svc *Service) Register(ctx context.Context, sc *session.Context, data Registration) (*session.Identity, error) {
	if sc.Role() == session.RoleAdmin {
		return nil, ErrRegistrationClosed
	}
	data.Name = core.CleanString(data.Name)
	data.Email = core.CleanString(data.Email, true /* lower */)
	data.Phone = core.CleanString(data.Phone)
	if err := svc.validate.Struct(data); err != nil {
		return nil, err
	}

	id, token, err := svc.backend.Register(ctx, sc.Role(), registrationPayload{
		Name:     data.Name,
		Email:    data.Email,
		Phone:    data.Phone,
		Location: core.CleanString(data.Location),
		Bio:      core.CleanString(data.Bio),
		Password: data.Password,
	})
	if err != nil {
		if backend.IsStatus(err, http.StatusConflict) {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "email", Error: "this email is already registered"})
		}
		if bErr, ok := errors.Cause(err).(*backend.Error); ok && bErr.StatusCode == http.StatusBadRequest {
			return nil, core.NewValidationError(errors.New(bErr.Message))
		}
		return nil, errors.Wrap(err, "registering")
	}
	if id == nil || token == "" {
		return nil, nil
	}
	if err = sc.Login(ctx, id, token); err != nil {
		return nil, errors.Wrap(err, "persisting login")
	}
	return sc.Identity(), nil
}

// ForgotPassword asks the backend to mail a reset link. The answer never tells whether the
// email is registered.
func (svc *Service) ForgotPassword(ctx context.Context, role session.Role, data ForgotPassword) (*core.Notice, error) {
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := svc.validate.Struct(data); err != nil {
		return nil, err
	}
	if err := svc.backend.ForgotPassword(ctx, role, data.Email); err != nil && !backend.IsStatus(err, http.StatusNotFound) {
		// do not return errors to attackers
		svc.logger.Error("account: requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return core.SuccessNotice(forgotPasswordText), nil
}

func (svc *Service) ResetPassword(ctx context.Context, role session.Role, token string, data ResetPassword) (*core.Notice, error) {
	if err := svc.validate.Struct(data); err != nil {
		return nil, err
	}
	if err := svc.backend.ResetPassword(ctx, role, token, data.Password); err != nil {
		if backend.IsStatus(err, http.StatusBadRequest) || backend.IsStatus(err, http.StatusNotFound) ||
			backend.IsStatus(err, http.StatusGone) {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "token", Error: "invalid or expired reset link"})
		}
		return nil, errors.Wrap(err, "resetting password")
	}
	return core.SuccessNotice("Password has been reset with the new password."), nil
}
