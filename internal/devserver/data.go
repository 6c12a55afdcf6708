package devserver

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/srujanaA02/multi-tenant-saas/internal/sanitize"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrInvalidLogin = errors.New("invalid credentials")
	ErrForbidden    = errors.New("forbidden")
)

// Tenant is an organization. Every user except a super admin belongs to
// exactly one.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	CreatedAt time.Time `json:"createdAt"`
}

type account struct {
	profile      tracker.UserProfile
	passwordHash []byte
}

// Store is the in-memory data set behind the dev server. All reads and
// writes are scoped to a tenant id.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	tenants  map[string]*Tenant // by id
	accounts map[string]*account
	projects map[string]*tracker.Project
	tasks    map[string]*tracker.Task
}

// NewStore returns an empty store.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:      now,
		tenants:  make(map[string]*Tenant),
		accounts: make(map[string]*account),
		projects: make(map[string]*tracker.Project),
		tasks:    make(map[string]*tracker.Task),
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *Store) tenantBySubdomain(sub string) (*Tenant, bool) {
	sub = strings.ToLower(strings.TrimSpace(sub))
	for _, t := range s.tenants {
		if t.Subdomain == sub {
			return t, true
		}
	}
	return nil, false
}

func (s *Store) emailTaken(tenantID, email string) bool {
	for _, a := range s.accounts {
		if a.profile.TenantID == tenantID && a.profile.Email == email {
			return true
		}
	}
	return false
}

func (s *Store) newAccount(tenantID, fullName, email, password string, role tracker.Role) (*account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return &account{
		profile: tracker.UserProfile{
			ID:        uuid.NewString(),
			FullName:  sanitize.Name(fullName),
			Email:     normalizeEmail(email),
			Role:      role,
			TenantID:  tenantID,
			CreatedAt: s.now(),
		},
		passwordHash: hash,
	}, nil
}

// RegisterTenant creates a tenant and its administrator.
func (s *Store) RegisterTenant(req tracker.RegisterTenantRequest) (Tenant, tracker.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := sanitize.Subdomain(req.Subdomain)
	if err != nil {
		return Tenant{}, tracker.UserProfile{}, err
	}
	if _, ok := s.tenantBySubdomain(sub); ok {
		return Tenant{}, tracker.UserProfile{}, fmt.Errorf("subdomain %q: %w", sub, ErrConflict)
	}
	t := &Tenant{ID: uuid.NewString(), Name: sanitize.Name(req.TenantName), Subdomain: sub, CreatedAt: s.now()}
	admin, err := s.newAccount(t.ID, req.AdminFullName, req.AdminEmail, req.AdminPassword, tracker.RoleTenantAdmin)
	if err != nil {
		return Tenant{}, tracker.UserProfile{}, err
	}
	s.tenants[t.ID] = t
	s.accounts[admin.profile.ID] = admin
	return *t, admin.profile, nil
}

// Register adds a member to the tenant with the given subdomain. Self
// registration never grants an admin role.
func (s *Store) Register(req tracker.RegisterRequest) (tracker.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenantBySubdomain(req.TenantSubdomain)
	if !ok {
		return tracker.UserProfile{}, fmt.Errorf("tenant %q: %w", req.TenantSubdomain, ErrNotFound)
	}
	email := normalizeEmail(req.Email)
	if s.emailTaken(t.ID, email) {
		return tracker.UserProfile{}, fmt.Errorf("email %q: %w", email, ErrConflict)
	}
	a, err := s.newAccount(t.ID, req.FullName, email, req.Password, tracker.RoleUser)
	if err != nil {
		return tracker.UserProfile{}, err
	}
	s.accounts[a.profile.ID] = a
	return a.profile, nil
}

// Authenticate checks credentials. With a subdomain the email is looked up
// in that tenant; without one it must be unique across tenants.
func (s *Store) Authenticate(email, password, subdomain string) (tracker.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = normalizeEmail(email)
	var tenantID string
	if subdomain != "" {
		t, ok := s.tenantBySubdomain(subdomain)
		if !ok {
			return tracker.UserProfile{}, ErrInvalidLogin
		}
		tenantID = t.ID
	}

	var match *account
	for _, a := range s.accounts {
		if a.profile.Email != email {
			continue
		}
		if tenantID != "" && a.profile.TenantID != tenantID {
			continue
		}
		if match != nil {
			// Same email in several tenants needs a subdomain.
			return tracker.UserProfile{}, ErrInvalidLogin
		}
		match = a
	}
	if match == nil {
		return tracker.UserProfile{}, ErrInvalidLogin
	}
	if err := bcrypt.CompareHashAndPassword(match.passwordHash, []byte(password)); err != nil {
		return tracker.UserProfile{}, ErrInvalidLogin
	}
	return match.profile, nil
}

// User returns a profile by id.
func (s *Store) User(id string) (tracker.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return tracker.UserProfile{}, false
	}
	return a.profile, true
}

// Users lists a tenant's members, oldest first.
func (s *Store) Users(tenantID string) []tracker.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []tracker.UserProfile{}
	for _, a := range s.accounts {
		if a.profile.TenantID == tenantID {
			out = append(out, a.profile)
		}
	}
	sort.Slice(out, func(i, j int) bool { return olderFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out
}

// CreateUser adds a member on behalf of a tenant admin.
func (s *Store) CreateUser(tenantID string, req tracker.CreateUserRequest) (tracker.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(req.Email)
	if s.emailTaken(tenantID, email) {
		return tracker.UserProfile{}, fmt.Errorf("email %q: %w", email, ErrConflict)
	}
	role := req.Role
	if role != tracker.RoleTenantAdmin {
		role = tracker.RoleUser
	}
	a, err := s.newAccount(tenantID, req.FullName, email, req.Password, role)
	if err != nil {
		return tracker.UserProfile{}, err
	}
	s.accounts[a.profile.ID] = a
	return a.profile, nil
}

// DeleteUser removes a member of tenantID.
func (s *Store) DeleteUser(tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.profile.TenantID != tenantID {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	delete(s.accounts, id)
	return nil
}

func (s *Store) withCreator(p tracker.Project) tracker.Project {
	if a, ok := s.accounts[p.CreatorID]; ok {
		creator := a.profile
		p.Creator = &creator
	}
	return p
}

// Projects lists a tenant's projects, newest first.
func (s *Store) Projects(tenantID string) []tracker.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []tracker.Project{}
	for _, p := range s.projects {
		if p.TenantID == tenantID {
			out = append(out, s.withCreator(*p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return olderFirst(out[j].CreatedAt, out[i].CreatedAt, out[j].ID, out[i].ID) })
	return out
}

// Project returns one project if it belongs to tenantID.
func (s *Store) Project(tenantID, id string) (tracker.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok || p.TenantID != tenantID {
		return tracker.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return s.withCreator(*p), nil
}

// CreateProject adds an active project owned by creator.
func (s *Store) CreateProject(creator tracker.UserProfile, req tracker.CreateProjectRequest) tracker.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	p := &tracker.Project{
		ID:          uuid.NewString(),
		Name:        sanitize.Name(req.Name),
		Description: req.Description,
		Status:      tracker.ProjectActive,
		CreatorID:   creator.ID,
		TenantID:    creator.TenantID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.projects[p.ID] = p
	return s.withCreator(*p)
}

// DeleteProject removes a project and its tasks. Only the creator or a
// tenant admin may delete.
func (s *Store) DeleteProject(actor tracker.UserProfile, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok || p.TenantID != actor.TenantID {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if actor.Role != tracker.RoleTenantAdmin && p.CreatorID != actor.ID {
		return fmt.Errorf("project %s: %w", id, ErrForbidden)
	}
	delete(s.projects, id)
	for tid, t := range s.tasks {
		if t.ProjectID == id {
			delete(s.tasks, tid)
		}
	}
	return nil
}

// Tasks lists a project's tasks, oldest first.
func (s *Store) Tasks(tenantID, projectID string) ([]tracker.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.projects[projectID]; !ok || p.TenantID != tenantID {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	out := []tracker.Task{}
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return olderFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

// CreateTask adds a task to a project of tenantID.
func (s *Store) CreateTask(tenantID string, req tracker.CreateTaskRequest) (tracker.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[req.ProjectID]; !ok || p.TenantID != tenantID {
		return tracker.Task{}, fmt.Errorf("project %s: %w", req.ProjectID, ErrNotFound)
	}
	now := s.now()
	t := &tracker.Task{
		ID:        uuid.NewString(),
		ProjectID: req.ProjectID,
		Title:     sanitize.Name(req.Title),
		Status:    req.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tasks[t.ID] = t
	return *t, nil
}

func (s *Store) taskInTenant(tenantID, id string) (*tracker.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if p, ok := s.projects[t.ProjectID]; !ok || p.TenantID != tenantID {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, nil
}

// UpdateTaskStatus sets a task's status.
func (s *Store) UpdateTaskStatus(tenantID, id string, status tracker.TaskStatus) (tracker.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.taskInTenant(tenantID, id)
	if err != nil {
		return tracker.Task{}, err
	}
	t.Status = status
	t.UpdatedAt = s.now()
	return *t, nil
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.taskInTenant(tenantID, id); err != nil {
		return err
	}
	delete(s.tasks, id)
	return nil
}

// olderFirst orders by creation time, then id.
func olderFirst(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return idA < idB
}
