package devserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/srujanaA02/multi-tenant-saas/internal/config"
	"github.com/srujanaA02/multi-tenant-saas/internal/logging"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

type response struct {
	Status  int
	Data    json.RawMessage
	Message string
	Raw     string
}

type testServer struct {
	t   *testing.T
	srv *Server
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	srv, err := New(config.Default().DevServer, opts...)
	require.NoError(t, err)
	return &testServer{t: t, srv: srv}
}

func (ts *testServer) do(method, path, token string, body any) response {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	out := response{Status: rec.Code, Raw: rec.Body.String()}
	var env struct {
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	out.Data, out.Message = env.Data, env.Message
	return out
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

// tenant registers an organization and returns its admin's token.
func (ts *testServer) tenant(sub, email string) (string, tracker.UserProfile) {
	ts.t.Helper()
	res := ts.do(http.MethodPost, "/api/auth/register-tenant", "", tracker.RegisterTenantRequest{
		TenantName: strings.ToUpper(sub), Subdomain: sub,
		AdminFullName: "Admin " + sub, AdminEmail: email, AdminPassword: "secret",
	})
	require.Equal(ts.t, http.StatusCreated, res.Status, res.Raw)
	return ts.login(email, "secret", sub)
}

func (ts *testServer) login(email, password, sub string) (string, tracker.UserProfile) {
	ts.t.Helper()
	res := ts.do(http.MethodPost, "/api/auth/login", "", tracker.LoginRequest{Email: email, Password: password, TenantSubdomain: sub})
	require.Equal(ts.t, http.StatusOK, res.Status, res.Raw)
	lr := decode[tracker.LoginResult](ts.t, res.Data)
	require.NotEmpty(ts.t, lr.Token)
	return lr.Token, lr.User
}

func TestNew_RequiresSigningKey(t *testing.T) {
	_, err := New(config.DevServerConfig{Host: "localhost", Port: 5000})
	require.Error(t, err)
}

func TestStart_LogsSigningKeyLengthOnly(t *testing.T) {
	tl := logging.NewTestLogger()
	cfg := config.Default().DevServer
	cfg.Host, cfg.Port = "127.0.0.1", 0
	srv, err := New(cfg, WithLogger(tl.Logger))
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()
	require.Eventually(t, func() bool {
		return tl.FilterMessage("starting dev server").Len() > 0
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, srv.Shutdown(t.Context()))
	require.NoError(t, <-errc)

	entry := tl.FilterMessage("starting dev server").All()[0]
	assert.Equal(t, fmt.Sprintf("[REDACTED:%d]", len(cfg.SigningKey.Value())), entry.ContextMap()["signing_key"])
	for _, e := range tl.All() {
		for _, v := range e.ContextMap() {
			assert.NotEqual(t, cfg.SigningKey.Value(), v)
		}
	}
}

func TestRequestLogger_ScopesLoggerToRequest(t *testing.T) {
	tl := logging.NewTestLogger()
	ts := newTestServer(t, WithLogger(tl.Logger))
	token, user := ts.tenant("demo", "a@b.com")
	tl.Reset()

	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/projects", token, nil).Status)
	accepted := tl.FilterMessage("token accepted").All()
	require.Len(t, accepted, 1)
	fields := accepted[0].ContextMap()
	assert.Equal(t, http.MethodGet, fields["method"])
	assert.Equal(t, "/api/projects", fields["uri"])
	assert.Equal(t, user.ID, fields["user.id"])
	assert.NotEmpty(t, fields["request.id"])

	tl.Reset()
	require.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/users", "garbage", nil).Status)
	tl.AssertLogged(t, zapcore.DebugLevel, "rejected token")
	requests := tl.FilterMessage("http request").All()
	require.Len(t, requests, 1)
	assert.Equal(t, "/api/users", requests[0].ContextMap()["uri"])
	assert.Equal(t, int64(http.StatusUnauthorized), requests[0].ContextMap()["status"])
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	res := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Raw, `"ok"`)
}

func TestAuth_RegisterTenantAndLogin(t *testing.T) {
	ts := newTestServer(t)
	token, user := ts.tenant("demo", "a@b.com")

	assert.NotEmpty(t, token)
	assert.Equal(t, tracker.RoleTenantAdmin, user.Role)
	assert.Equal(t, "a@b.com", user.Email)
	assert.NotEmpty(t, user.TenantID)

	me := ts.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, me.Status)
	assert.Equal(t, user.ID, decode[tracker.UserProfile](t, me.Data).ID)
}

func TestAuth_DuplicateSubdomain(t *testing.T) {
	ts := newTestServer(t)
	ts.tenant("demo", "a@b.com")

	res := ts.do(http.MethodPost, "/api/auth/register-tenant", "", tracker.RegisterTenantRequest{
		TenantName: "Other", Subdomain: "DEMO", AdminFullName: "X", AdminEmail: "x@y.com", AdminPassword: "p",
	})
	assert.Equal(t, http.StatusConflict, res.Status)
	assert.Equal(t, "Subdomain already taken", res.Message)
}

func TestAuth_InvalidSubdomain(t *testing.T) {
	ts := newTestServer(t)

	res := ts.do(http.MethodPost, "/api/auth/register-tenant", "", tracker.RegisterTenantRequest{
		TenantName: "Acme", Subdomain: "acme corp", AdminFullName: "X", AdminEmail: "x@y.com", AdminPassword: "p",
	})
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Contains(t, res.Message, "Subdomain may only contain")
}

func TestAuth_LoginFailures(t *testing.T) {
	ts := newTestServer(t)
	ts.tenant("demo", "a@b.com")

	tests := []struct {
		name   string
		req    tracker.LoginRequest
		status int
		msg    string
	}{
		{"wrong password", tracker.LoginRequest{Email: "a@b.com", Password: "nope", TenantSubdomain: "demo"}, http.StatusUnauthorized, "Invalid credentials"},
		{"unknown tenant", tracker.LoginRequest{Email: "a@b.com", Password: "secret", TenantSubdomain: "nope"}, http.StatusUnauthorized, "Invalid credentials"},
		{"missing password", tracker.LoginRequest{Email: "a@b.com"}, http.StatusBadRequest, "Email and password are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ts.do(http.MethodPost, "/api/auth/login", "", tt.req)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.msg, res.Message)
		})
	}
}

func TestAuth_LoginWithoutSubdomainWhenUnique(t *testing.T) {
	ts := newTestServer(t)
	ts.tenant("demo", "a@b.com")
	token, _ := ts.login("A@B.com", "secret", "")
	assert.NotEmpty(t, token)
}

func TestAuth_RegisterNeverGrantsAdmin(t *testing.T) {
	ts := newTestServer(t)
	ts.tenant("demo", "a@b.com")

	res := ts.do(http.MethodPost, "/api/auth/register", "", tracker.RegisterRequest{
		FullName: "Bob", Email: "bob@b.com", Password: "pw", TenantSubdomain: "demo", Role: "tenant_admin",
	})
	require.Equal(t, http.StatusCreated, res.Status, res.Raw)
	assert.Equal(t, tracker.RoleUser, decode[tracker.UserProfile](t, res.Data).Role)

	res = ts.do(http.MethodPost, "/api/auth/register", "", tracker.RegisterRequest{
		FullName: "Bob", Email: "bob@b.com", Password: "pw", TenantSubdomain: "missing",
	})
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, "Tenant not found", res.Message)
}

func TestAuth_ProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/api/projects", "/api/tasks?projectId=x", "/api/users"} {
		res := ts.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, res.Status, path)
		assert.Equal(t, "Authentication required", res.Message)

		res = ts.do(http.MethodGet, path, "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, res.Status, path)
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ts := newTestServer(t, WithClock(clock), WithTokenTTL(time.Hour))
	token, _ := ts.tenant("demo", "a@b.com")

	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/projects", token, nil).Status)

	now = now.Add(2 * time.Hour)
	res := ts.do(http.MethodGet, "/api/projects", token, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, "Invalid or expired token", res.Message)
}

func TestProjects_CRUDAndTenantIsolation(t *testing.T) {
	ts := newTestServer(t)
	tokenA, admin := ts.tenant("alpha", "a@alpha.com")
	tokenB, _ := ts.tenant("beta", "b@beta.com")

	res := ts.do(http.MethodPost, "/api/projects", tokenA, tracker.CreateProjectRequest{Name: "  Launch ", Description: "d"})
	require.Equal(t, http.StatusCreated, res.Status, res.Raw)
	p := decode[tracker.Project](t, res.Data)
	assert.Equal(t, "Launch", p.Name)
	assert.Equal(t, tracker.ProjectActive, p.Status)
	assert.Equal(t, admin.FullName, p.CreatorName())

	list := decode[[]tracker.Project](t, ts.do(http.MethodGet, "/api/projects", tokenA, nil).Data)
	assert.Len(t, list, 1)

	listB := decode[[]tracker.Project](t, ts.do(http.MethodGet, "/api/projects", tokenB, nil).Data)
	assert.Empty(t, listB)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/projects/"+p.ID, tokenB, nil).Status)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, "/api/projects/"+p.ID, tokenB, nil).Status)

	res = ts.do(http.MethodPost, "/api/projects", tokenA, tracker.CreateProjectRequest{Name: "   "})
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, "Project name is required", res.Message)

	res = ts.do(http.MethodDelete, "/api/projects/"+p.ID, tokenA, nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "null", string(res.Data))
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/projects/"+p.ID, tokenA, nil).Status)
}

func TestProjects_MemberCannotDeleteOthersProject(t *testing.T) {
	ts := newTestServer(t)
	adminToken, _ := ts.tenant("demo", "a@b.com")
	res := ts.do(http.MethodPost, "/api/auth/register", "", tracker.RegisterRequest{
		FullName: "Bob", Email: "bob@b.com", Password: "pw", TenantSubdomain: "demo",
	})
	require.Equal(t, http.StatusCreated, res.Status)
	bobToken, _ := ts.login("bob@b.com", "pw", "demo")

	p := decode[tracker.Project](t, ts.do(http.MethodPost, "/api/projects", adminToken, tracker.CreateProjectRequest{Name: "P"}).Data)
	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodDelete, "/api/projects/"+p.ID, bobToken, nil).Status)
}

func TestTasks_Lifecycle(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.tenant("demo", "a@b.com")
	p := decode[tracker.Project](t, ts.do(http.MethodPost, "/api/projects", token, tracker.CreateProjectRequest{Name: "P"}).Data)

	res := ts.do(http.MethodPost, "/api/tasks", token, tracker.CreateTaskRequest{ProjectID: p.ID, Title: "Write docs"})
	require.Equal(t, http.StatusCreated, res.Status, res.Raw)
	task := decode[tracker.Task](t, res.Data)
	assert.Equal(t, tracker.TaskTodo, task.Status)

	res = ts.do(http.MethodPatch, "/api/tasks/"+task.ID, token, tracker.UpdateTaskRequest{Status: tracker.TaskDone})
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, tracker.TaskDone, decode[tracker.Task](t, res.Data).Status)

	res = ts.do(http.MethodPatch, "/api/tasks/"+task.ID, token, tracker.UpdateTaskRequest{Status: "blocked"})
	assert.Equal(t, http.StatusBadRequest, res.Status)

	tasks := decode[[]tracker.Task](t, ts.do(http.MethodGet, "/api/tasks?projectId="+p.ID, token, nil).Data)
	require.Len(t, tasks, 1)
	assert.Equal(t, tracker.TaskDone, tasks[0].Status)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/tasks", token, nil).Status)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodDelete, "/api/tasks/"+task.ID, token, nil).Status)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, "/api/tasks/"+task.ID, token, nil).Status)
}

func TestTasks_DeletingProjectDropsTasks(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.tenant("demo", "a@b.com")
	p := decode[tracker.Project](t, ts.do(http.MethodPost, "/api/projects", token, tracker.CreateProjectRequest{Name: "P"}).Data)
	task := decode[tracker.Task](t, ts.do(http.MethodPost, "/api/tasks", token, tracker.CreateTaskRequest{ProjectID: p.ID, Title: "T"}).Data)

	require.Equal(t, http.StatusOK, ts.do(http.MethodDelete, "/api/projects/"+p.ID, token, nil).Status)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPatch, "/api/tasks/"+task.ID, token, tracker.UpdateTaskRequest{Status: tracker.TaskDone}).Status)
}

func TestUsers_AdminManagesTeam(t *testing.T) {
	ts := newTestServer(t)
	adminToken, admin := ts.tenant("demo", "a@b.com")

	res := ts.do(http.MethodPost, "/api/users", adminToken, tracker.CreateUserRequest{FullName: "Carol", Email: "c@b.com", Password: "pw"})
	require.Equal(t, http.StatusCreated, res.Status, res.Raw)
	carol := decode[tracker.UserProfile](t, res.Data)
	assert.Equal(t, tracker.RoleUser, carol.Role)

	res = ts.do(http.MethodPost, "/api/users", adminToken, tracker.CreateUserRequest{FullName: "Carol", Email: "C@b.com", Password: "pw"})
	assert.Equal(t, http.StatusConflict, res.Status)
	assert.Equal(t, "Email already registered in this tenant", res.Message)

	members := decode[[]tracker.UserProfile](t, ts.do(http.MethodGet, "/api/users", adminToken, nil).Data)
	assert.Len(t, members, 2)

	carolToken, _ := ts.login("c@b.com", "pw", "demo")
	res = ts.do(http.MethodDelete, "/api/users/"+admin.ID, carolToken, nil)
	assert.Equal(t, http.StatusForbidden, res.Status)
	assert.Equal(t, "Only tenant admins can manage team members", res.Message)

	res = ts.do(http.MethodDelete, "/api/users/"+admin.ID, adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, "You cannot remove yourself", res.Message)

	require.Equal(t, http.StatusOK, ts.do(http.MethodDelete, "/api/users/"+carol.ID, adminToken, nil).Status)
	// A removed user's token stops working.
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/projects", carolToken, nil).Status)
}

func TestErrors_UnknownRouteIsJSON(t *testing.T) {
	ts := newTestServer(t)
	res := ts.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.NotEmpty(t, res.Message)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.tenant("demo", "a@b.com")

	res := ts.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Raw, `tracker_devserver_requests_total{method="POST",route="/api/auth/login",status="200"} 1`)
	assert.Contains(t, res.Raw, "tracker_devserver_request_duration_seconds")
}
