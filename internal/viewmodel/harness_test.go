package viewmodel

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/srujanaA02/multi-tenant-saas/internal/api"
	"github.com/srujanaA02/multi-tenant-saas/internal/config"
	"github.com/srujanaA02/multi-tenant-saas/internal/devserver"
	"github.com/srujanaA02/multi-tenant-saas/internal/mutation"
	"github.com/srujanaA02/multi-tenant-saas/internal/session"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

// harness wires real components against an in-process dev server.
type harness struct {
	dev       *devserver.Server
	store     *session.Store
	client    *api.Client
	notes     *mutation.Recorder
	coord     *mutation.Coordinator
	auth      *Auth
	serverURL string
	gate      *atomic.Pointer[func(*http.Request)]
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dev, err := devserver.New(config.Default().DevServer)
	require.NoError(t, err)
	gate := new(atomic.Pointer[func(*http.Request)])
	handler := dev.Handler()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hold := gate.Load(); hold != nil {
			(*hold)(r)
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	store := session.NewStore(session.NewMemoryStorage())
	client, err := api.New(srv.URL+"/api", store)
	require.NoError(t, err)

	notes := &mutation.Recorder{}
	h := &harness{
		dev:       dev,
		store:     store,
		client:    client,
		notes:     notes,
		coord:     mutation.NewCoordinator(client, mutation.WithNotifier(notes)),
		serverURL: srv.URL,
		gate:      gate,
	}
	h.auth = NewAuth(client, store, notes, nil)
	return h
}

// tenant creates an organization with admin email/"secret".
func (h *harness) tenant(t *testing.T, sub, email string) tracker.UserProfile {
	t.Helper()
	_, admin, err := h.dev.Store().RegisterTenant(tracker.RegisterTenantRequest{
		TenantName: sub, Subdomain: sub, AdminFullName: "Admin " + sub, AdminEmail: email, AdminPassword: "secret",
	})
	require.NoError(t, err)
	return admin
}

// signIn registers a tenant and logs its admin in through Auth.
func (h *harness) signIn(t *testing.T) tracker.UserProfile {
	t.Helper()
	admin := h.tenant(t, "demo", "a@b.com")
	_, err := h.auth.Login(t.Context(), tracker.LoginRequest{Email: "a@b.com", Password: "secret", TenantSubdomain: "demo"})
	require.NoError(t, err)
	return admin
}

// member adds a plain user to the demo tenant.
func (h *harness) member(t *testing.T, name, email string) tracker.UserProfile {
	t.Helper()
	u, err := h.dev.Store().Register(tracker.RegisterRequest{FullName: name, Email: email, Password: "pw", TenantSubdomain: "demo"})
	require.NoError(t, err)
	return u
}

// expireSession swaps the stored token for one the server rejects.
func (h *harness) expireSession(t *testing.T) {
	t.Helper()
	require.NoError(t, h.store.SetSession("stale-token", h.store.ReadUser()))
}

// intercept runs fn on every request before the dev server handles it.
func (h *harness) intercept(fn func(*http.Request)) {
	h.gate.Store(&fn)
}
