package viewmodel

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/srujanaA02/multi-tenant-saas/internal/api"
	"github.com/srujanaA02/multi-tenant-saas/internal/logging"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

const (
	recentProjectLimit = 3
	msgDashboardFailed = "Failed to load dashboard data."
)

// Stats are the dashboard counters. Task counters are not computed and
// stay zero.
type Stats struct {
	ActiveProjects int
	CompletedTasks int
	PendingTasks   int
}

// DashboardState is a snapshot of the dashboard.
type DashboardState struct {
	Greeting       string
	Stats          Stats
	RecentProjects []tracker.Project
	Loading        bool
	Error          string
}

// Dashboard backs the landing screen.
type Dashboard struct {
	lifecycle

	api     ProjectsAPI
	session SessionReader
	logger  *logging.Logger

	state DashboardState
}

func NewDashboard(p ProjectsAPI, s SessionReader, l *logging.Logger) *Dashboard {
	if l == nil {
		l = logging.NewNop()
	}
	return &Dashboard{api: p, session: s, logger: l}
}

// State returns a copy of the current state.
func (d *Dashboard) State() DashboardState {
	var st DashboardState
	d.read(func() {
		st = d.state
		st.RecentProjects = append([]tracker.Project(nil), d.state.RecentProjects...)
	})
	return st
}

// Load reads the greeting from the session and fetches projects.
//
// The error message is set only when the service answered with a status
// other than 401. Network failures and an expired session leave it empty.
func (d *Dashboard) Load(ctx context.Context) error {
	user := d.session.ReadUser()
	d.update(func() {
		d.state.Greeting = user.FullName
		d.state.Loading = true
		d.state.Error = ""
	})

	projects, err := d.api.ListProjects(ctx)
	if err != nil {
		d.logger.Warn(ctx, "dashboard fetch failed", zap.Error(err))
		status := api.StatusOf(err)
		d.update(func() {
			if status != 0 && status != http.StatusUnauthorized {
				d.state.Error = msgDashboardFailed
			}
			d.state.Loading = false
		})
		return err
	}

	active := 0
	for _, p := range projects {
		if p.Status == tracker.ProjectActive {
			active++
		}
	}
	recent := projects
	if len(recent) > recentProjectLimit {
		recent = recent[:recentProjectLimit]
	}

	d.update(func() {
		d.state.Stats = Stats{ActiveProjects: active}
		d.state.RecentProjects = append([]tracker.Project(nil), recent...)
		d.state.Loading = false
	})
	return nil
}
