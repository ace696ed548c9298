package domain

// Roles carried in access-token claims.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
