// Package tracker defines the domain types shared by the session store, the
// API client, the mutation coordinator and the view models.
//
// Field names follow the remote service's camelCase JSON.
package tracker

import (
	"strings"
	"time"
)

// Role is a user's authority within a tenant.
type Role string

const (
	RoleUser        Role = "user"
	RoleTenantAdmin Role = "tenant_admin"
	// RoleSuperAdmin belongs to no tenant.
	RoleSuperAdmin Role = "super_admin"
)

// UserProfile identifies the signed-in user. It is replaced wholesale on
// login and never mutated in place.
type UserProfile struct {
	ID        string    `json:"id,omitempty"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role,omitempty"`
	TenantID  string    `json:"tenantId,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// DefaultProfile is returned when no usable profile is stored. Its ID is
// empty.
func DefaultProfile() UserProfile {
	return UserProfile{FullName: "User", Role: RoleUser}
}

// Session pairs the bearer credential with the profile it belongs to.
// Either both are set or neither is.
type Session struct {
	Token string
	User  *UserProfile
}

// Authenticated reports whether the session carries a credential and a
// profile.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// ProjectStatus is a project's lifecycle state. The service may return
// values beyond the two named here.
type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectArchived ProjectStatus = "archived"
)

// Project is a read-through copy of a server-owned project.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	TenantID    string        `json:"tenantId,omitempty"`
	CreatorID   string        `json:"creatorId,omitempty"`
	Creator     *UserProfile  `json:"creator,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// CreatorName returns the creator's display name, or "User".
func (p Project) CreatorName() string {
	if p.Creator != nil && p.Creator.FullName != "" {
		return p.Creator.FullName
	}
	return "User"
}

// TaskStatus is a task's workflow state.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// Valid reports whether s is one of the known task states.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskDone:
		return true
	}
	return false
}

// Label renders the status for people: "in_progress" becomes "in progress".
func (s TaskStatus) Label() string {
	return strings.Replace(string(s), "_", " ", 1)
}

// Task is a server-owned task. A local copy may diverge while a status
// mutation is in flight.
type Task struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"projectId"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// MutationKind names a remote change the client can request.
type MutationKind string

const (
	KindTaskStatus    MutationKind = "task_status"
	KindCreateProject MutationKind = "create_project"
	KindDeleteProject MutationKind = "delete_project"
	KindCreateTask    MutationKind = "create_task"
	KindDeleteTask    MutationKind = "delete_task"
	KindAddMember     MutationKind = "add_member"
	KindRemoveMember  MutationKind = "remove_member"
)

// PendingMutation records an optimistic edit awaiting its response. It
// exists only in memory.
type PendingMutation struct {
	TargetID         string
	Kind             MutationKind
	PreviousSnapshot TaskStatus
	SubmittedAt      time.Time
}
