package models

// Role is a named bundle of permissions, based on the ticketing.role table
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateRoleRequest represents the request payload for creating a new role
type CreateRoleRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

// UpdateRoleRequest represents the request payload for updating a role.
// Nil fields keep their stored value.
type UpdateRoleRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// RoleListResponse represents the response for listing roles
type RoleListResponse struct {
	Roles []Role `json:"roles"`
	Total int    `json:"total"`
}

// RoleWithPermissions is a role together with its active permissions
type RoleWithPermissions struct {
	Role
	Permissions []Permission `json:"permissions"`
}
