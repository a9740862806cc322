package models

import (
	"time"
)

// RolePermission is one row of the ticketing.role_permission junction table.
// At most one row exists per (RoleID, PermissionID).
type RolePermission struct {
	ID           string    `json:"id"`
	RoleID       string    `json:"role_id"`
	PermissionID string    `json:"permission_id"`
	IsActive     bool      `json:"is_active"`
	CreatedDate  time.Time `json:"created_date"`
	UpdatedDate  time.Time `json:"updated_date"`
}

// RolePermissionDetail is an assignment joined with its role and permission names
type RolePermissionDetail struct {
	RolePermission
	RoleName       string `json:"role_name"`
	PermissionName string `json:"permission_name"`
}

// PermissionGrant is a permission as granted to one role, with the state of the assignment
type PermissionGrant struct {
	Permission
	AssignmentID string `json:"assignment_id"`
	IsActive     bool   `json:"is_active"`
}

// AssignPermissionsRequest is the body of POST /role-permissions
type AssignPermissionsRequest struct {
	RoleID        string   `json:"role_id" validate:"required"`
	PermissionIDs []string `json:"permission_ids" validate:"required,min=1,dive,required"`
}

// ToggleRolePermissionRequest is the body of PATCH /role-permissions/{id}.
// IsActive is a pointer so that a missing field is rejected instead of read as false.
type ToggleRolePermissionRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// AssignmentError records why one permission id of a bulk assignment failed
type AssignmentError struct {
	PermissionID string `json:"permission_id"`
	Error        string `json:"error"`
}

// BulkAssignResult is the outcome of a best-effort bulk assignment
type BulkAssignResult struct {
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Results []RolePermission  `json:"results"`
	Errors  []AssignmentError `json:"errors"`
}

// Succeeded lists the permission ids that were assigned
func (r *BulkAssignResult) Succeeded() []string {
	ids := make([]string, 0, len(r.Results))
	for _, assignment := range r.Results {
		ids = append(ids, assignment.PermissionID)
	}
	return ids
}
