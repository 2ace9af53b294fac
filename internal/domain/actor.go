package domain

// RoleSystem marks internal callers such as webhooks and scheduled jobs.
const RoleSystem UserRole = "system"

// Actor is the caller of a service operation.
type Actor struct {
	UserID int64
	Role   UserRole
}

var SystemActor = Actor{Role: RoleSystem}

func (a Actor) IsAdmin() bool  { return a.Role == RoleAdmin }
func (a Actor) IsSystem() bool { return a.Role == RoleSystem }

// Privileged actors bypass ownership checks.
func (a Actor) Privileged() bool { return a.IsAdmin() || a.IsSystem() }
