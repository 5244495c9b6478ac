package types

import "time"

// Project member roles.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Project is the top-level container owning releases, test-book cases,
// analytical axes and members.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Member is a user assigned to a project.
type Member struct {
	ProjectID int64     `json:"project_id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Release is a versioned milestone within a project. Runs belong to a release.
type Release struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Version   string    `json:"version"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}
