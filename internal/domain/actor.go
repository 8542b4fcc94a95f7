package domain

type Role string

const (
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// Actor is the authenticated caller of a lifecycle operation.
type Actor struct {
	ID   string
	Role Role
}

// Privileged reports manager-level authorization. Privilege is binary.
func (a Actor) Privileged() bool {
	return a.Role == RoleManager
}
