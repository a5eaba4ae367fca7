package models

// RoleAssignment ties a role name to a user identity.
type RoleAssignment struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}
