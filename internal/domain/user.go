package domain

import "time"

// Role identifies what a principal is allowed to do.
type Role string

const (
	RoleEndUser      Role = "end_user"
	RoleSupportAgent Role = "support_agent"
	RoleAdmin        Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleEndUser, RoleSupportAgent, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may act on tickets it did not create.
func (r Role) IsStaff() bool {
	return r == RoleSupportAgent || r == RoleAdmin
}

// Principal is the authenticated actor attached to every request.
type Principal struct {
	ID   string
	Role Role
}

// CanAccessTicket applies the visibility rule: end users see only their
// own tickets, staff see everything.
func (p Principal) CanAccessTicket(t *Ticket) bool {
	if p.Role.IsStaff() {
		return true
	}
	return t.CreatedBy == p.ID
}

// User is the persisted account behind a principal.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal derives the request principal for this user.
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Role: u.Role}
}
