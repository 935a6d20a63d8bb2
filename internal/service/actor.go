package service

import "github.com/octobees/opsboard/internal/auth"

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID int64
	Role   string
}

// IsDispatcher reports whether lists must be narrowed to the actor's tasks.
func (a Actor) IsDispatcher() bool {
	return a.Role == auth.RoleDispatcher
}
