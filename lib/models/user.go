package models

import (
	"database/sql"
)

// AppUser is an authenticated user of the ticketing application
type AppUser struct {
	ID           string         `json:"id"`
	CognitoID    string         `json:"cognito_id"`
	Email        string         `json:"email"`
	IsSuperAdmin bool           `json:"is_super_admin"` // grants the admin surface regardless of role
	RoleID       sql.NullString `json:"-"`
	RoleName     sql.NullString `json:"-"`
}

// AssignUserRoleRequest is the body of PUT /users/{id}/role
type AssignUserRoleRequest struct {
	RoleID string `json:"role_id" validate:"required"`
}

// UserRoleResponse is returned after a role change
type UserRoleResponse struct {
	UserID          string `json:"user_id"`
	RoleID          string `json:"role_id"`
	SessionsRevoked bool   `json:"sessions_revoked"`
}
