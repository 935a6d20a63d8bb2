package auth

// Roles carried in the token's role claim.
const (
	RoleAdmin       = "admin"
	RoleDispatcher  = "dispatcher"
	RoleStorekeeper = "storekeeper"
	// RoleDetailer may only see the warehouse items issued to them.
	RoleDetailer = "detailer"
)

// IsRole reports whether role is one the API grants access to.
func IsRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDispatcher, RoleStorekeeper, RoleDetailer:
		return true
	}
	return false
}
