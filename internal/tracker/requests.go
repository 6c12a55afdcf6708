package tracker

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	TenantSubdomain string `json:"tenantSubdomain,omitempty"`
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	Token string      `json:"token"`
	User  UserProfile `json:"user"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	TenantSubdomain string `json:"tenantSubdomain"`
	Role            string `json:"role"`
}

// RegisterTenantRequest is the body of POST /auth/register-tenant.
type RegisterTenantRequest struct {
	TenantName    string `json:"tenantName"`
	Subdomain     string `json:"subdomain"`
	AdminFullName string `json:"adminFullName"`
	AdminEmail    string `json:"adminEmail"`
	AdminPassword string `json:"adminPassword"`
}

// CreateProjectRequest is the body of POST /projects.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	ProjectID string     `json:"projectId"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status"`
}

// UpdateTaskRequest is the body of PATCH /tasks/:id.
type UpdateTaskRequest struct {
	Status TaskStatus `json:"status"`
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}
