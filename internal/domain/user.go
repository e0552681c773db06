package domain

import "time"

// Role is the closed set of privilege levels a user can hold.
// Authorization decision points switch exhaustively over this type so
// that adding a role forces every call site to be revisited.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

// Identity is the server-verified subject of a request, decoded from a
// session token. It carries everything authorization decisions need.
type Identity struct {
	UserID   string
	Username string
	Role     Role
}

// User represents a registered account.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
