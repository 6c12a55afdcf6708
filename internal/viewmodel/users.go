package viewmodel

import (
	"context"

	"github.com/srujanaA02/multi-tenant-saas/internal/mutation"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

// Users backs the team members screen.
type Users struct {
	lifecycle

	api      UsersAPI
	session  SessionReader
	coord    *mutation.Coordinator
	notifier mutation.Notifier

	members []tracker.UserProfile
	loading bool
}

func NewUsers(u UsersAPI, s SessionReader, c *mutation.Coordinator, n mutation.Notifier) *Users {
	if n == nil {
		n = mutation.NopNotifier{}
	}
	return &Users{api: u, session: s, coord: c, notifier: n}
}

// Members returns a copy of the loaded team.
func (u *Users) Members() []tracker.UserProfile {
	var out []tracker.UserProfile
	u.read(func() { out = append([]tracker.UserProfile(nil), u.members...) })
	return out
}

func (u *Users) Loading() bool {
	var v bool
	u.read(func() { v = u.loading })
	return v
}

// IsAdmin reports whether the signed-in user administers the tenant.
func (u *Users) IsAdmin() bool {
	return u.session.ReadUser().Role == tracker.RoleTenantAdmin
}

// CanRemove reports whether member may be removed by the signed-in user.
// Only admins remove, and never themselves.
func (u *Users) CanRemove(member tracker.UserProfile) bool {
	current := u.session.ReadUser()
	return current.Role == tracker.RoleTenantAdmin && member.ID != current.ID
}

// Load fetches the tenant's members.
func (u *Users) Load(ctx context.Context) error {
	u.update(func() { u.loading = true })
	defer u.update(func() { u.loading = false })

	members, err := u.api.ListUsers(ctx)
	if err != nil {
		if !silent(err) {
			u.notifier.Failure(ctx, "Failed to load team members")
		}
		return err
	}
	u.update(func() { u.members = members })
	return nil
}

// Add creates a team member. An empty role means user.
func (u *Users) Add(ctx context.Context, req tracker.CreateUserRequest) error {
	m := addMember(u.api, req)
	m.Refresh = u.Load
	return u.coord.Confirm(ctx, m)
}

// Remove deletes a team member.
func (u *Users) Remove(ctx context.Context, id string) error {
	m := removeMember(u.api, id)
	m.Refresh = u.Load
	return u.coord.Confirm(ctx, m)
}
