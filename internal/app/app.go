// Package app composes the session store, the API client and the mutation
// coordinator into the surface the presentation layer talks to.
//
// New runs the session integrity check before it returns, so no screen can
// observe a half-written session.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/srujanaA02/multi-tenant-saas/internal/api"
	"github.com/srujanaA02/multi-tenant-saas/internal/config"
	"github.com/srujanaA02/multi-tenant-saas/internal/logging"
	"github.com/srujanaA02/multi-tenant-saas/internal/mutation"
	"github.com/srujanaA02/multi-tenant-saas/internal/session"
	"github.com/srujanaA02/multi-tenant-saas/internal/telemetry"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
	"github.com/srujanaA02/multi-tenant-saas/internal/viewmodel"
)

const instrumentationName = "github.com/srujanaA02/multi-tenant-saas"

// App is one running client.
type App struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	store     *session.Store
	client    *api.Client
	coord     *mutation.Coordinator
	notifier  mutation.Notifier
	bootstrap session.Report

	storage    session.Storage
	httpClient *http.Client
	version    string
}

// Option configures an App.
type Option func(*App)

// WithStorage replaces the session file with another backend.
func WithStorage(s session.Storage) Option {
	return func(a *App) { a.storage = s }
}

// WithNotifier sets where user messages go.
func WithNotifier(n mutation.Notifier) Option {
	return func(a *App) { a.notifier = n }
}

// WithLogger replaces the logger built from config.
func WithLogger(l *logging.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithHTTPClient replaces the HTTP client built from config.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *App) { a.httpClient = hc }
}

// WithVersion sets the version reported to telemetry.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// New builds the client and runs the session integrity check.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{cfg: cfg, notifier: mutation.NopNotifier{}, version: "dev"}
	for _, opt := range opts {
		opt(a)
	}

	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry, a.version))
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.telemetry = tel

	if a.logger == nil {
		logCfg, err := logging.FromAppConfig(cfg.Logging, tel.IsEnabled())
		if err != nil {
			return nil, err
		}
		a.logger, err = logging.NewLogger(logCfg, tel.LoggerProvider())
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
	}
	if degraded, derr := tel.Degraded(); degraded {
		a.logger.Warn(ctx, "telemetry degraded, continuing without export", zap.Error(derr))
	}

	if a.storage == nil {
		path, err := cfg.SessionPath()
		if err != nil {
			return nil, err
		}
		fs, err := session.NewFileStorage(path)
		if err != nil {
			return nil, fmt.Errorf("session storage: %w", err)
		}
		a.storage = fs
	}

	a.store = session.NewStore(a.storage,
		session.WithLogger(a.logger.Named("session")),
		session.WithExpiryValidation(cfg.Session.ValidateExpiry),
	)
	a.bootstrap = a.store.BootstrapIntegrityCheck(ctx)

	clientOpts := []api.Option{
		api.WithLogger(a.logger.Named("api")),
		api.WithTracer(tel.Tracer(instrumentationName)),
		api.WithMeter(tel.Meter(instrumentationName)),
	}
	if a.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(a.httpClient))
	}
	a.client, err = api.NewFromConfig(cfg.API, a.store, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}

	a.coord = mutation.NewCoordinator(a.client,
		mutation.WithNotifier(a.notifier),
		mutation.WithLogger(a.logger.Named("mutation")),
	)
	return a, nil
}

// Close flushes telemetry and logs.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.logger.Sync(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// BootstrapReport returns what the integrity check repaired at startup.
func (a *App) BootstrapReport() session.Report { return a.bootstrap }

func (a *App) Logger() *logging.Logger { return a.logger }

func (a *App) Session() *session.Store { return a.store }

func (a *App) Client() *api.Client { return a.client }

func (a *App) Coordinator() *mutation.Coordinator { return a.coord }

func (a *App) Notifier() mutation.Notifier { return a.notifier }

// CurrentSession returns the stored session, fully present or fully
// absent.
func (a *App) CurrentSession() tracker.Session {
	return a.store.Current()
}

// Request sends one request through the API client. See api.Client.Do.
func (a *App) Request(ctx context.Context, method, path string, body, out any) error {
	return a.client.Do(ctx, method, path, body, out)
}

// MutateTaskStatus changes a task's status optimistically in view.
func (a *App) MutateTaskStatus(ctx context.Context, view mutation.TaskView, taskID string, status tracker.TaskStatus) error {
	return a.coord.SetTaskStatus(ctx, view, taskID, status)
}

// CreateEntity creates a project, task or member from its request payload.
// refresh, if non-nil, reloads the owning list after success.
func (a *App) CreateEntity(ctx context.Context, payload any, refresh func(context.Context) error) error {
	m, err := viewmodel.CreateMutation(a.client, payload)
	if err != nil {
		return err
	}
	m.Refresh = refresh
	return a.coord.Confirm(ctx, m)
}

// DeleteEntity removes a project, task or member by id.
func (a *App) DeleteEntity(ctx context.Context, kind viewmodel.Entity, id string, refresh func(context.Context) error) error {
	m, err := viewmodel.DeleteMutation(a.client, kind, id)
	if err != nil {
		return err
	}
	m.Refresh = refresh
	return a.coord.Confirm(ctx, m)
}

// Auth returns a view model for the sign-in screens.
func (a *App) Auth() *viewmodel.Auth {
	return viewmodel.NewAuth(a.client, a.store, a.notifier, a.logger)
}

func (a *App) Dashboard() *viewmodel.Dashboard {
	return viewmodel.NewDashboard(a.client, a.store, a.logger)
}

func (a *App) Projects() *viewmodel.Projects {
	return viewmodel.NewProjects(a.client, a.coord, a.notifier)
}

func (a *App) ProjectDetails(projectID string) *viewmodel.ProjectDetails {
	return viewmodel.NewProjectDetails(projectID, a.client, a.coord, a.notifier)
}

func (a *App) Users() *viewmodel.Users {
	return viewmodel.NewUsers(a.client, a.store, a.coord, a.notifier)
}

// Guard applies the protected-route rule.
func (a *App) Guard() (viewmodel.Route, bool) {
	return viewmodel.Guard(a.store)
}
