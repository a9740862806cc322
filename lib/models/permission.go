package models

// Permission is a named capability string, e.g. "ticket-create", based on the ticketing.permission table
type Permission struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreatePermissionRequest represents the request payload for creating a new permission
type CreatePermissionRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

// UpdatePermissionRequest represents the request payload for updating a permission.
// Nil fields keep their stored value.
type UpdatePermissionRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// PermissionListResponse represents the response for listing permissions
type PermissionListResponse struct {
	Permissions []Permission `json:"permissions"`
	Total       int          `json:"total"`
}
