package user

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/aicanvas/core"
)

// Roles
const (
	RoleProfessor = "professor"
	RoleStudent   = "student"
)

var AllRoles = []string{RoleProfessor, RoleStudent}

type User struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Role      string      `json:"role"`
	Name      null.String `json:"name"`
	CreatedAt time.Time   `json:"created_at"` // UTC
}

func (u User) IsProfessor() bool { return u.Role == RoleProfessor }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,role"`
	Name  string `json:"name"`
}

func (nu *NewUser) Clean() {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.Name = core.CleanString(nu.Name)
}

// GetFilter selects a single User; the first non-empty field wins.
type GetFilter struct {
	ID    string
	Email string
}
