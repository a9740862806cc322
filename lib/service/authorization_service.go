package service

import (
	"context"
	"ticketing/lib/apperrors"
	"ticketing/lib/data"
	"ticketing/lib/models"

	"github.com/sirupsen/logrus"
)

// Authorizer answers whether a role currently holds a permission
type Authorizer interface {
	Authorize(ctx context.Context, roleID, permission string) (bool, error)
}

// AuthorizationService sits between the role-permission handlers and the
// assignment store. It owns the best-effort bulk assignment and is the single
// place where the active filter is applied for server-side checks.
type AuthorizationService struct {
	Repo   data.RolePermissionRepository
	Logger *logrus.Logger
}

// AssignBulk assigns each permission id to the role independently.
// The role must exist; every other failure is recorded per id and the
// remaining ids are still processed. Repeated ids are handled once.
func (s *AuthorizationService) AssignBulk(ctx context.Context, roleID string, permissionIDs []string) (*models.BulkAssignResult, error) {
	if roleID == "" {
		return nil, apperrors.Validation("role_id is required")
	}
	if len(permissionIDs) == 0 {
		return nil, apperrors.Validation("permission_ids must contain at least one id")
	}

	exists, err := s.Repo.RoleExists(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if !exists {
		s.Logger.WithField("role_id", roleID).Warn("Bulk assignment to unknown role")
		return nil, apperrors.NotFound("role")
	}

	result := &models.BulkAssignResult{
		Results: []models.RolePermission{},
		Errors:  []models.AssignmentError{},
	}

	seen := make(map[string]bool, len(permissionIDs))
	for _, permissionID := range permissionIDs {
		if seen[permissionID] {
			continue
		}
		seen[permissionID] = true

		assignment, err := s.assignOne(ctx, roleID, permissionID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, models.AssignmentError{
				PermissionID: permissionID,
				Error:        itemMessage(err),
			})
			continue
		}
		result.Success++
		result.Results = append(result.Results, *assignment)
	}

	s.Logger.WithFields(logrus.Fields{
		"role_id": roleID,
		"success": result.Success,
		"failed":  result.Failed,
	}).Info("Bulk permission assignment finished")

	return result, nil
}

func (s *AuthorizationService) assignOne(ctx context.Context, roleID, permissionID string) (*models.RolePermission, error) {
	if permissionID == "" {
		return nil, apperrors.Validation("permission id is required")
	}

	exists, err := s.Repo.PermissionExists(ctx, permissionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NotFound("permission")
	}

	assigned, err := s.Repo.IsPermissionAssignedToRole(ctx, roleID, permissionID)
	if err != nil {
		return nil, err
	}
	if assigned {
		return nil, apperrors.Conflict("permission already assigned to role")
	}

	return s.Repo.CreateAssignment(ctx, roleID, permissionID)
}

// itemMessage keeps typed messages and hides internal causes
func itemMessage(err error) string {
	if apperrors.TypeOf(err) == apperrors.TypeInternal {
		return "failed to assign permission"
	}
	return err.Error()
}

// ToggleActive activates or deactivates an assignment
func (s *AuthorizationService) ToggleActive(ctx context.Context, assignmentID string, isActive bool) (*models.RolePermission, error) {
	return s.Repo.SetAssignmentActive(ctx, assignmentID, isActive)
}

// DeleteAssignment removes an assignment
func (s *AuthorizationService) DeleteAssignment(ctx context.Context, assignmentID string) error {
	return s.Repo.DeleteAssignment(ctx, assignmentID)
}

// ListAll returns every assignment with role and permission names
func (s *AuthorizationService) ListAll(ctx context.Context) ([]models.RolePermissionDetail, error) {
	return s.Repo.GetAssignments(ctx)
}

// ListActivePermissionsForRole returns the permission rows of active assignments
func (s *AuthorizationService) ListActivePermissionsForRole(ctx context.Context, roleID string) ([]models.Permission, error) {
	return s.Repo.GetActivePermissionsByRole(ctx, roleID)
}

// GetPermissionGrants returns every grant of the role with its is_active flag
func (s *AuthorizationService) GetPermissionGrants(ctx context.Context, roleID string) ([]models.PermissionGrant, error) {
	return s.Repo.GetPermissionsByRole(ctx, roleID)
}

// GetPermissionsByRole returns the names of every permission assigned to
// the role, active or not.
func (s *AuthorizationService) GetPermissionsByRole(ctx context.Context, roleID string) ([]string, error) {
	grants, err := s.Repo.GetPermissionsByRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(grants))
	for _, grant := range grants {
		names = append(names, grant.Name)
	}
	return names, nil
}

// EffectivePermissions returns the names of the role's active permissions
func (s *AuthorizationService) EffectivePermissions(ctx context.Context, roleID string) ([]string, error) {
	permissions, err := s.Repo.GetActivePermissionsByRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(permissions))
	for _, permission := range permissions {
		names = append(names, permission.Name)
	}
	return names, nil
}

// Authorize reports whether the role has an active grant of permission.
// An empty role never holds anything.
func (s *AuthorizationService) Authorize(ctx context.Context, roleID, permission string) (bool, error) {
	if roleID == "" || permission == "" {
		return false, nil
	}
	names, err := s.EffectivePermissions(ctx, roleID)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if name == permission {
			return true, nil
		}
	}
	s.Logger.WithFields(logrus.Fields{
		"role_id":    roleID,
		"permission": permission,
	}).Debug("Permission not granted to role")
	return false, nil
}
