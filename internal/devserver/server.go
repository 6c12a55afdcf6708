// Package devserver is an in-memory stand-in for the remote tracker
// service. It speaks the same JSON contract as production, scopes all data
// to the caller's tenant, and issues HS256 bearer tokens. It backs local
// development and the end-to-end tests.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/srujanaA02/multi-tenant-saas/internal/config"
	"github.com/srujanaA02/multi-tenant-saas/internal/logging"
	"github.com/srujanaA02/multi-tenant-saas/internal/sanitize"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

// Server serves the tracker API under /api.
type Server struct {
	echo    *echo.Echo
	store   *Store
	tokens  *tokenIssuer
	metrics *serverMetrics
	logger  *logging.Logger
	addr    string
	key     config.Secret
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock replaces time.Now for token issue, validation and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.tokens.now = now
		s.store.now = now
	}
}

// WithTokenTTL sets how long issued tokens stay valid.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) { s.tokens.ttl = ttl }
}

// New creates a server with an empty store.
func New(cfg config.DevServerConfig, opts ...Option) (*Server, error) {
	if !cfg.SigningKey.IsSet() {
		return nil, errors.New("devserver signing key is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		store:   NewStore(time.Now),
		tokens:  &tokenIssuer{key: []byte(cfg.SigningKey.Value()), ttl: defaultTokenTTL, now: time.Now},
		metrics: newServerMetrics(),
		logger:  logging.NewNop(),
		addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		key:     cfg.SigningKey,
	}
	for _, opt := range opts {
		opt(s)
	}

	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger)
	e.Use(s.metrics.middleware())

	s.registerRoutes()
	return s, nil
}

// Store exposes the data set, mainly for seeding.
func (s *Server) Store() *Store { return s.store }

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler { return s.echo }

// requestLogger attaches a logger scoped to the request to its context,
// then logs the outcome once the handler returns.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()
		l := s.logger.With(
			zap.String("method", req.Method),
			zap.String("uri", req.RequestURI),
		)
		ctx := logging.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))
		ctx = logging.WithLogger(ctx, l)
		c.SetRequest(req.WithContext(ctx))

		err := next(c)
		if err != nil {
			c.Error(err)
		}
		l.Info(ctx, "http request",
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		)
		return err
	}
}

func requestLog(c echo.Context) (context.Context, *logging.Logger) {
	ctx := c.Request().Context()
	return ctx, logging.FromContext(ctx)
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	api := s.echo.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/login", s.handleLogin)
	auth.POST("/register", s.handleRegister)
	auth.POST("/register-tenant", s.handleRegisterTenant)
	auth.GET("/me", s.handleMe, s.requireAuth)

	projects := api.Group("/projects", s.requireAuth)
	projects.GET("", s.handleListProjects)
	projects.POST("", s.handleCreateProject)
	projects.GET("/:id", s.handleGetProject)
	projects.DELETE("/:id", s.handleDeleteProject)

	tasks := api.Group("/tasks", s.requireAuth)
	tasks.GET("", s.handleListTasks)
	tasks.POST("", s.handleCreateTask)
	tasks.PATCH("/:id", s.handleUpdateTask)
	tasks.DELETE("/:id", s.handleDeleteTask)

	users := api.Group("/users", s.requireAuth)
	users.GET("", s.handleListUsers)
	users.POST("", s.handleCreateUser, requireAdmin)
	users.DELETE("/:id", s.handleDeleteUser, requireAdmin)
}

type envelope struct {
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
}

func respond(c echo.Context, status int, data any, msg string) error {
	return c.JSON(status, envelope{Data: data, Message: msg})
}

// handleError renders every failure as {"message": ...}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
	} else {
		ctx, l := requestLog(c)
		l.Error(ctx, "unhandled error", zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, errorBody{Message: msg})
	}
	if err != nil {
		ctx, l := requestLog(c)
		l.Warn(ctx, "failed to write error response", zap.Error(err))
	}
}

// storeError maps data errors to HTTP errors with the given messages.
func storeError(err error, notFound, conflict string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, conflict)
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "You are not allowed to do that")
	case errors.Is(err, sanitize.ErrInvalidSubdomain):
		return echo.NewHTTPError(http.StatusBadRequest, "Subdomain may only contain lowercase letters, digits and hyphens")
	}
	return err
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return nil
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

func (s *Server) handleLogin(c echo.Context) error {
	var req tracker.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if blank(req.Email, req.Password) {
		return echo.NewHTTPError(http.StatusBadRequest, "Email and password are required")
	}
	user, err := s.store.Authenticate(req.Email, req.Password, req.TenantSubdomain)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}
	token, err := s.tokens.issue(user)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, tracker.LoginResult{Token: token, User: user}, "Login successful")
}

func (s *Server) handleRegister(c echo.Context) error {
	var req tracker.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if blank(req.FullName, req.Email, req.Password, req.TenantSubdomain) {
		return echo.NewHTTPError(http.StatusBadRequest, "Full name, email, password and tenant subdomain are required")
	}
	user, err := s.store.Register(req)
	if err != nil {
		return storeError(err, "Tenant not found", "Email already registered in this tenant")
	}
	return respond(c, http.StatusCreated, user, "User registered successfully")
}

type tenantRegistration struct {
	Tenant Tenant              `json:"tenant"`
	Admin  tracker.UserProfile `json:"admin"`
}

func (s *Server) handleRegisterTenant(c echo.Context) error {
	var req tracker.RegisterTenantRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if blank(req.TenantName, req.Subdomain, req.AdminFullName, req.AdminEmail, req.AdminPassword) {
		return echo.NewHTTPError(http.StatusBadRequest, "All fields are required")
	}
	tenant, admin, err := s.store.RegisterTenant(req)
	if err != nil {
		return storeError(err, "Tenant not found", "Subdomain already taken")
	}
	ctx, l := requestLog(c)
	l.Info(logging.WithTenant(ctx, tenant.Subdomain), "tenant registered")
	return respond(c, http.StatusCreated, tenantRegistration{Tenant: tenant, Admin: admin}, "Tenant registered successfully")
}

func (s *Server) handleMe(c echo.Context) error {
	return respond(c, http.StatusOK, currentUser(c), "")
}

func (s *Server) handleListProjects(c echo.Context) error {
	return respond(c, http.StatusOK, s.store.Projects(currentUser(c).TenantID), "")
}

func (s *Server) handleGetProject(c echo.Context) error {
	p, err := s.store.Project(currentUser(c).TenantID, c.Param("id"))
	if err != nil {
		return storeError(err, "Project not found", "")
	}
	return respond(c, http.StatusOK, p, "")
}

func (s *Server) handleCreateProject(c echo.Context) error {
	var req tracker.CreateProjectRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if blank(req.Name) {
		return echo.NewHTTPError(http.StatusBadRequest, "Project name is required")
	}
	p := s.store.CreateProject(currentUser(c), req)
	return respond(c, http.StatusCreated, p, "Project created successfully")
}

func (s *Server) handleDeleteProject(c echo.Context) error {
	if err := s.store.DeleteProject(currentUser(c), c.Param("id")); err != nil {
		return storeError(err, "Project not found", "")
	}
	return respond(c, http.StatusOK, nil, "Project deleted successfully")
}

func (s *Server) handleListTasks(c echo.Context) error {
	projectID := c.QueryParam("projectId")
	if projectID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "projectId is required")
	}
	tasks, err := s.store.Tasks(currentUser(c).TenantID, projectID)
	if err != nil {
		return storeError(err, "Project not found", "")
	}
	return respond(c, http.StatusOK, tasks, "")
}

func (s *Server) handleCreateTask(c echo.Context) error {
	var req tracker.CreateTaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if blank(req.Title, req.ProjectID) {
		return echo.NewHTTPError(http.StatusBadRequest, "Title and projectId are required")
	}
	if req.Status == "" {
		req.Status = tracker.TaskTodo
	}
	if !req.Status.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid status")
	}
	t, err := s.store.CreateTask(currentUser(c).TenantID, req)
	if err != nil {
		return storeError(err, "Project not found", "")
	}
	return respond(c, http.StatusCreated, t, "Task created successfully")
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	var req tracker.UpdateTaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if !req.Status.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid status")
	}
	t, err := s.store.UpdateTaskStatus(currentUser(c).TenantID, c.Param("id"), req.Status)
	if err != nil {
		return storeError(err, "Task not found", "")
	}
	return respond(c, http.StatusOK, t, "Task updated successfully")
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	if err := s.store.DeleteTask(currentUser(c).TenantID, c.Param("id")); err != nil {
		return storeError(err, "Task not found", "")
	}
	return respond(c, http.StatusOK, nil, "Task deleted successfully")
}

func (s *Server) handleListUsers(c echo.Context) error {
	return respond(c, http.StatusOK, s.store.Users(currentUser(c).TenantID), "")
}

func (s *Server) handleCreateUser(c echo.Context) error {
	var req tracker.CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if blank(req.FullName, req.Email, req.Password) {
		return echo.NewHTTPError(http.StatusBadRequest, "Full name, email and password are required")
	}
	u, err := s.store.CreateUser(currentUser(c).TenantID, req)
	if err != nil {
		return storeError(err, "", "Email already registered in this tenant")
	}
	return respond(c, http.StatusCreated, u, "User created successfully")
}

func (s *Server) handleDeleteUser(c echo.Context) error {
	id := c.Param("id")
	if id == currentUser(c).ID {
		return echo.NewHTTPError(http.StatusBadRequest, "You cannot remove yourself")
	}
	if err := s.store.DeleteUser(currentUser(c).TenantID, id); err != nil {
		return storeError(err, "User not found", "")
	}
	return respond(c, http.StatusOK, nil, "User removed successfully")
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "starting dev server",
		zap.String("addr", s.addr),
		logging.Secret("signing_key", s.key),
	)
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down dev server")
	return s.echo.Shutdown(ctx)
}
