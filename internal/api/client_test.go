package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/srujanaA02/multi-tenant-saas/internal/sanitize"
	"github.com/srujanaA02/multi-tenant-saas/internal/session"
	"github.com/srujanaA02/multi-tenant-saas/internal/telemetry"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *session.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := session.NewStore(session.NewMemoryStorage())
	c, err := New(srv.URL+"/api", store, opts...)
	require.NoError(t, err)
	return c, store
}

func loggedIn(t *testing.T, store *session.Store) {
	t.Helper()
	require.NoError(t, store.SetSession("tok-123", tracker.UserProfile{ID: "u1", FullName: "Ada"}))
}

func TestNew_ValidatesArguments(t *testing.T) {
	store := session.NewStore(session.NewMemoryStorage())

	_, err := New("localhost:5000", store)
	assert.Error(t, err)

	_, err = New("http://localhost:5000/api", nil)
	assert.Error(t, err)

	_, err = New("http://localhost:5000/api/", store)
	assert.NoError(t, err)
}

func TestDo_AttachesBearerWhenLoggedIn(t *testing.T) {
	var gotAuth, gotRequestID string
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
	})
	loggedIn(t, store)

	_, err := c.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.NotEmpty(t, gotRequestID)
}

func TestDo_UnauthenticatedWithoutToken(t *testing.T) {
	var gotAuth string
	var sawHeader bool
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, sawHeader = r.Header["Authorization"]
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
	})

	_, err := c.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
	assert.False(t, sawHeader)
}

func TestDo_UnwrapsEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/p-1", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "ok",
			"data":    map[string]any{"id": "p-1", "name": "Apollo", "status": "active"},
		})
	})

	p, err := c.GetProject(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID)
	assert.Equal(t, "Apollo", p.Name)
	assert.Equal(t, tracker.ProjectActive, p.Status)
}

func TestDo_SendsJSONBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body tracker.UpdateTaskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, tracker.TaskDone, body.Status)
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": "t-1", "status": "done"}})
	})

	task, err := c.UpdateTaskStatus(context.Background(), "t-1", tracker.TaskDone)
	require.NoError(t, err)
	assert.Equal(t, tracker.TaskDone, task.Status)
}

func TestDo_ListTasksQuery(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks", r.URL.Path)
		assert.Equal(t, "p 1", r.URL.Query().Get("projectId"))
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
	})

	_, err := c.ListTasks(context.Background(), "p 1")
	require.NoError(t, err)
}

func TestDo_UnauthorizedEvictsOnEveryEndpoint(t *testing.T) {
	calls := map[string]func(*Client) error{
		"login": func(c *Client) error {
			_, err := c.Login(context.Background(), tracker.LoginRequest{Email: "a@b.com"})
			return err
		},
		"list projects": func(c *Client) error { _, err := c.ListProjects(context.Background()); return err },
		"get project":   func(c *Client) error { _, err := c.GetProject(context.Background(), "p"); return err },
		"delete project": func(c *Client) error { return c.DeleteProject(context.Background(), "p") },
		"list tasks":    func(c *Client) error { _, err := c.ListTasks(context.Background(), "p"); return err },
		"update task": func(c *Client) error {
			_, err := c.UpdateTaskStatus(context.Background(), "t", tracker.TaskDone)
			return err
		},
		"delete task": func(c *Client) error { return c.DeleteTask(context.Background(), "t") },
		"list users":  func(c *Client) error { _, err := c.ListUsers(context.Background()); return err },
		"create user": func(c *Client) error {
			_, err := c.CreateUser(context.Background(), tracker.CreateUserRequest{})
			return err
		},
		"delete user": func(c *Client) error { return c.DeleteUser(context.Background(), "u") },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Token expired"})
			})
			loggedIn(t, store)

			err := call(c)

			require.Error(t, err)
			assert.True(t, IsUnauthorized(err))
			assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
			_, ok := store.Token()
			assert.False(t, ok, "401 must evict the session")
			assert.False(t, store.Current().Authenticated())
		})
	}
}

func TestDo_RequestFailedUsesServerMessage(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]any{"message": "Email already exists"})
	})
	loggedIn(t, store)

	_, err := c.CreateUser(context.Background(), tracker.CreateUserRequest{Email: "a@b.com"})

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindRequestFailed, apiErr.Kind)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "Email already exists", apiErr.Message)
	assert.Equal(t, "Email already exists", MessageOr(err, "Failed to add user"))

	_, ok := store.Token()
	assert.True(t, ok, "non-401 failures keep the session")
}

func TestDo_RequestFailedFallbackMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>boom</html>"))
	})

	err := c.DeleteProject(context.Background(), "p")

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindRequestFailed, apiErr.Kind)
	assert.Equal(t, "request failed", apiErr.Message)
	assert.Equal(t, "Failed to delete project", MessageOr(err, "Failed to delete project"))
}

func TestDo_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	store := session.NewStore(session.NewMemoryStorage())
	c, err := New(base, store)
	require.NoError(t, err)

	_, err = c.ListProjects(context.Background())

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindNetwork, apiErr.Kind)
	assert.Equal(t, 0, apiErr.Status)
	assert.Equal(t, "network error", apiErr.Message)
	assert.True(t, IsNetwork(err))
	assert.Equal(t, "Failed to load projects", MessageOr(err, "Failed to load projects"))
}

func TestDo_SingleAttempt(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"message": "try later"})
	})

	_, err := c.ListProjects(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDo_MalformedSuccessBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("not json"))
	})

	_, err := c.ListProjects(context.Background())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindRequestFailed, apiErr.Kind)
}

func TestDo_NullDataLeavesOutUntouched(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": nil, "message": "deleted"})
	})
	require.NoError(t, c.DeleteTask(context.Background(), "t"))

	projects, err := c.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Nil(t, projects)
}

func TestDo_EmptySuccessBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.DeleteTask(context.Background(), "t"))

	projects, err := c.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Nil(t, projects)
}

func TestDo_UnauthorizedWithTruncatedBodyStillEvicts(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"mess`))
		w.(http.Flusher).Flush()
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			_ = conn.Close()
		}
	})
	loggedIn(t, store)

	_, err := c.ListProjects(context.Background())

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "unauthorized", apiErr.Message)
	_, ok := store.Token()
	assert.False(t, ok, "401 must evict the session")
}

func TestDo_TruncatedSuccessBodyIsNetworkFailure(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":[`))
		w.(http.Flusher).Flush()
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			_ = conn.Close()
		}
	})
	loggedIn(t, store)

	_, err := c.ListProjects(context.Background())

	assert.True(t, IsNetwork(err))
	assert.Equal(t, http.StatusOK, StatusOf(err))
	_, ok := store.Token()
	assert.True(t, ok)
}

func TestDo_RateLimiterHonoursContext(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
	}, WithRateLimit(0.001, 1))

	_, err := c.ListProjects(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.ListProjects(ctx)
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Equal(t, int32(1), hits.Load())
}

func TestDo_RecordsSpanAndMetrics(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tel := telemetry.NewTestTelemetry()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("traceparent"))
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
	}, WithTracer(tel.Tracer("test")), WithMeter(tel.Meter("test")))

	_, err := c.ListProjects(context.Background())
	require.NoError(t, err)

	tel.AssertSpanAttribute(t, "api.request", "http.request.method", "GET")
	tel.AssertSpanAttribute(t, "api.request", "http.response.status_code", int64(200))
	assert.Equal(t, int64(1), tel.CounterValue(t, "tracker.api.requests_total"))
	assert.Equal(t, uint64(1), tel.HistogramCount(t, "tracker.api.request_duration_seconds"))
}

func TestEndpoints_RejectUnsafeIDsWithoutRequest(t *testing.T) {
	var hits atomic.Int32
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"data": nil})
	})
	loggedIn(t, store)

	for _, id := range []string{"", "..", "p/../../users", "p?x=1"} {
		_, err := c.GetProject(context.Background(), id)
		require.ErrorIs(t, err, sanitize.ErrInvalidID, "id %q", id)
		assert.Equal(t, "Failed to load project", MessageOr(err, "Failed to load project"))
		require.ErrorIs(t, c.DeleteTask(context.Background(), id), sanitize.ErrInvalidID)
	}
	assert.Zero(t, hits.Load())
	assert.True(t, store.Current().Authenticated())
}
