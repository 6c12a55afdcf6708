package viewmodel

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/srujanaA02/multi-tenant-saas/internal/api"
	"github.com/srujanaA02/multi-tenant-saas/internal/logging"
	"github.com/srujanaA02/multi-tenant-saas/internal/mutation"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

// AuthAPI is the authentication surface of the API client.
type AuthAPI interface {
	Login(ctx context.Context, req tracker.LoginRequest) (tracker.LoginResult, error)
	Register(ctx context.Context, req tracker.RegisterRequest) error
	RegisterTenant(ctx context.Context, req tracker.RegisterTenantRequest) error
}

// SessionWriter stores and clears the signed-in session.
type SessionWriter interface {
	SetSession(token string, user tracker.UserProfile) error
	ClearSession() error
}

const defaultRegisterRole = "User"

// Auth backs the login, register and register-tenant screens.
type Auth struct {
	lifecycle

	api      AuthAPI
	session  SessionWriter
	notifier mutation.Notifier
	logger   *logging.Logger

	submitting bool
}

// NewAuth creates an Auth view model.
func NewAuth(a AuthAPI, s SessionWriter, n mutation.Notifier, l *logging.Logger) *Auth {
	if n == nil {
		n = mutation.NopNotifier{}
	}
	if l == nil {
		l = logging.NewNop()
	}
	return &Auth{api: a, session: s, notifier: n, logger: l}
}

// Submitting reports whether a request is in flight.
func (a *Auth) Submitting() bool {
	var v bool
	a.read(func() { v = a.submitting })
	return v
}

func (a *Auth) setSubmitting(v bool) {
	a.update(func() { a.submitting = v })
}

// Login authenticates, stores the session and returns the dashboard route.
func (a *Auth) Login(ctx context.Context, req tracker.LoginRequest) (Route, error) {
	a.setSubmitting(true)
	defer a.setSubmitting(false)

	ctx = logging.WithTenant(ctx, req.TenantSubdomain)
	res, err := a.api.Login(ctx, req)
	if err != nil {
		a.notifier.Failure(ctx, api.MessageOr(err, "Login failed"))
		return "", err
	}
	if err := a.session.SetSession(res.Token, res.User); err != nil {
		a.notifier.Failure(ctx, "Login failed")
		return "", fmt.Errorf("storing session: %w", err)
	}

	a.logger.Info(logging.WithUserID(ctx, res.User.ID), "signed in", zap.String("role", string(res.User.Role)))
	a.notifier.Success(ctx, "Welcome back!")
	return RouteDashboard, nil
}

// Register creates a user in an existing tenant and returns the login
// route. An empty role becomes "User".
func (a *Auth) Register(ctx context.Context, req tracker.RegisterRequest) (Route, error) {
	a.setSubmitting(true)
	defer a.setSubmitting(false)

	if req.Role == "" {
		req.Role = defaultRegisterRole
	}
	ctx = logging.WithTenant(ctx, req.TenantSubdomain)
	if err := a.api.Register(ctx, req); err != nil {
		a.notifier.Failure(ctx, api.MessageOr(err, "Registration failed"))
		return "", err
	}
	a.notifier.Success(ctx, "Registration successful! Please login.")
	return RouteLogin, nil
}

// RegisterTenant creates an organization and its administrator and returns
// the login route.
func (a *Auth) RegisterTenant(ctx context.Context, req tracker.RegisterTenantRequest) (Route, error) {
	a.setSubmitting(true)
	defer a.setSubmitting(false)

	ctx = logging.WithTenant(ctx, req.Subdomain)
	if err := a.api.RegisterTenant(ctx, req); err != nil {
		a.notifier.Failure(ctx, api.MessageOr(err, "Registration failed"))
		return "", err
	}
	a.notifier.Success(ctx, "Organization registered! Please login.")
	return RouteLogin, nil
}

// Logout clears the session and returns the login route.
func (a *Auth) Logout(ctx context.Context) (Route, error) {
	if err := a.session.ClearSession(); err != nil {
		a.logger.Warn(ctx, "failed to clear session on logout", zap.Error(err))
		return RouteLogin, err
	}
	return RouteLogin, nil
}
