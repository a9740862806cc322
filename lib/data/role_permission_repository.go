package data

import (
	"context"
	"database/sql"
	"ticketing/lib/apperrors"
	"ticketing/lib/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RolePermissionRepository defines the interface for role-permission relationship operations
type RolePermissionRepository interface {
	// RoleExists checks that a role row exists
	RoleExists(ctx context.Context, roleID string) (bool, error)

	// PermissionExists checks that a permission row exists
	PermissionExists(ctx context.Context, permissionID string) (bool, error)

	// IsPermissionAssignedToRole checks for an assignment, active or not
	IsPermissionAssignedToRole(ctx context.Context, roleID, permissionID string) (bool, error)

	// CreateAssignment inserts an active assignment
	CreateAssignment(ctx context.Context, roleID, permissionID string) (*models.RolePermission, error)

	// SetAssignmentActive flips the is_active flag of an assignment
	SetAssignmentActive(ctx context.Context, assignmentID string, isActive bool) (*models.RolePermission, error)

	// DeleteAssignment removes an assignment row
	DeleteAssignment(ctx context.Context, assignmentID string) error

	// GetAssignments returns every assignment joined with role and permission names
	GetAssignments(ctx context.Context) ([]models.RolePermissionDetail, error)

	// GetPermissionsByRole returns every permission assigned to the role, active or not
	GetPermissionsByRole(ctx context.Context, roleID string) ([]models.PermissionGrant, error)

	// GetActivePermissionsByRole returns the permissions of the role's active assignments
	GetActivePermissionsByRole(ctx context.Context, roleID string) ([]models.Permission, error)
}

// RolePermissionDao implements RolePermissionRepository interface using PostgreSQL
type RolePermissionDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
}

func (dao *RolePermissionDao) exists(ctx context.Context, query string, fields logrus.Fields, args ...interface{}) (bool, error) {
	var count int
	if err := dao.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		fields["error"] = err.Error()
		dao.Logger.WithFields(fields).Error("Failed to run existence check")
		return false, apperrors.Internal("failed to run existence check", err)
	}
	return count > 0, nil
}

// RoleExists checks if a role exists
func (dao *RolePermissionDao) RoleExists(ctx context.Context, roleID string) (bool, error) {
	return dao.exists(ctx, `
		SELECT COUNT(*) FROM ticketing.role WHERE id = $1
	`, logrus.Fields{"role_id": roleID}, roleID)
}

// PermissionExists checks if a permission exists
func (dao *RolePermissionDao) PermissionExists(ctx context.Context, permissionID string) (bool, error) {
	return dao.exists(ctx, `
		SELECT COUNT(*) FROM ticketing.permission WHERE id = $1
	`, logrus.Fields{"permission_id": permissionID}, permissionID)
}

// IsPermissionAssignedToRole checks if a permission is assigned to a role
func (dao *RolePermissionDao) IsPermissionAssignedToRole(ctx context.Context, roleID, permissionID string) (bool, error) {
	return dao.exists(ctx, `
		SELECT COUNT(*) FROM ticketing.role_permission
		WHERE role_id = $1 AND permission_id = $2
	`, logrus.Fields{"role_id": roleID, "permission_id": permissionID}, roleID, permissionID)
}

// CreateAssignment assigns a permission to a role. Callers check existence
// first; the unique index only catches concurrent inserts.
func (dao *RolePermissionDao) CreateAssignment(ctx context.Context, roleID, permissionID string) (*models.RolePermission, error) {
	assignment := &models.RolePermission{
		ID:           uuid.NewString(),
		RoleID:       roleID,
		PermissionID: permissionID,
		IsActive:     true,
	}

	err := dao.DB.QueryRowContext(ctx, `
		INSERT INTO ticketing.role_permission (id, role_id, permission_id, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING created_date, updated_date
	`, assignment.ID, roleID, permissionID).Scan(&assignment.CreatedDate, &assignment.UpdatedDate)

	if isUniqueViolation(err) {
		return nil, apperrors.Conflict("permission already assigned to role")
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"role_id":       roleID,
			"permission_id": permissionID,
			"error":         err.Error(),
		}).Error("Failed to assign permission to role")
		return nil, apperrors.Internal("failed to assign permission to role", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"assignment_id": assignment.ID,
		"role_id":       roleID,
		"permission_id": permissionID,
	}).Info("Successfully assigned permission to role")

	return assignment, nil
}

// SetAssignmentActive activates or deactivates an assignment without deleting it
func (dao *RolePermissionDao) SetAssignmentActive(ctx context.Context, assignmentID string, isActive bool) (*models.RolePermission, error) {
	var assignment models.RolePermission
	err := dao.DB.QueryRowContext(ctx, `
		UPDATE ticketing.role_permission
		SET is_active = $1, updated_date = NOW()
		WHERE id = $2
		RETURNING id, role_id, permission_id, is_active, created_date, updated_date
	`, isActive, assignmentID).Scan(
		&assignment.ID,
		&assignment.RoleID,
		&assignment.PermissionID,
		&assignment.IsActive,
		&assignment.CreatedDate,
		&assignment.UpdatedDate,
	)

	if err == sql.ErrNoRows {
		dao.Logger.WithField("assignment_id", assignmentID).Warn("Assignment not found for update")
		return nil, apperrors.NotFound("assignment")
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"assignment_id": assignmentID,
			"error":         err.Error(),
		}).Error("Failed to update assignment")
		return nil, apperrors.Internal("failed to update assignment", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"assignment_id": assignmentID,
		"is_active":     isActive,
	}).Info("Successfully updated assignment")

	return &assignment, nil
}

// DeleteAssignment removes an assignment
func (dao *RolePermissionDao) DeleteAssignment(ctx context.Context, assignmentID string) error {
	result, err := dao.DB.ExecContext(ctx, `
		DELETE FROM ticketing.role_permission WHERE id = $1
	`, assignmentID)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"assignment_id": assignmentID,
			"error":         err.Error(),
		}).Error("Failed to delete assignment")
		return apperrors.Internal("failed to delete assignment", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		dao.Logger.WithField("assignment_id", assignmentID).Warn("Assignment not found for deletion")
		return apperrors.NotFound("assignment")
	}

	dao.Logger.WithField("assignment_id", assignmentID).Info("Successfully deleted assignment")
	return nil
}

// GetAssignments returns every assignment for the admin assignment table
func (dao *RolePermissionDao) GetAssignments(ctx context.Context) ([]models.RolePermissionDetail, error) {
	rows, err := dao.DB.QueryContext(ctx, `
		SELECT rp.id, rp.role_id, rp.permission_id, rp.is_active, rp.created_date, rp.updated_date,
		       r.name, p.name
		FROM ticketing.role_permission rp
		JOIN ticketing.role r ON r.id = rp.role_id
		JOIN ticketing.permission p ON p.id = rp.permission_id
		ORDER BY r.name ASC, p.name ASC
	`)
	if err != nil {
		dao.Logger.WithError(err).Error("Failed to query assignments")
		return nil, apperrors.Internal("failed to query assignments", err)
	}
	defer rows.Close()

	assignments := []models.RolePermissionDetail{}
	for rows.Next() {
		var detail models.RolePermissionDetail
		err := rows.Scan(
			&detail.ID,
			&detail.RoleID,
			&detail.PermissionID,
			&detail.IsActive,
			&detail.CreatedDate,
			&detail.UpdatedDate,
			&detail.RoleName,
			&detail.PermissionName,
		)
		if err != nil {
			dao.Logger.WithError(err).Error("Failed to scan assignment row")
			return nil, apperrors.Internal("failed to scan assignment", err)
		}
		assignments = append(assignments, detail)
	}
	if err = rows.Err(); err != nil {
		dao.Logger.WithError(err).Error("Error iterating assignment rows")
		return nil, apperrors.Internal("error iterating assignments", err)
	}

	dao.Logger.WithField("count", len(assignments)).Debug("Successfully retrieved assignments")
	return assignments, nil
}

// GetPermissionsByRole is the unfiltered read: inactive grants are included
// with IsActive false.
func (dao *RolePermissionDao) GetPermissionsByRole(ctx context.Context, roleID string) ([]models.PermissionGrant, error) {
	grants := []models.PermissionGrant{}
	if roleID == "" {
		return grants, nil
	}

	rows, err := dao.DB.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, rp.id, rp.is_active
		FROM ticketing.permission p
		JOIN ticketing.role_permission rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name ASC
	`, roleID)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"role_id": roleID,
			"error":   err.Error(),
		}).Error("Failed to query role permissions")
		return nil, apperrors.Internal("failed to query role permissions", err)
	}
	defer rows.Close()

	for rows.Next() {
		var grant models.PermissionGrant
		if err := rows.Scan(&grant.ID, &grant.Name, &grant.Description, &grant.AssignmentID, &grant.IsActive); err != nil {
			dao.Logger.WithError(err).Error("Failed to scan permission row")
			return nil, apperrors.Internal("failed to scan permission", err)
		}
		grants = append(grants, grant)
	}
	if err = rows.Err(); err != nil {
		dao.Logger.WithError(err).Error("Error iterating permission rows")
		return nil, apperrors.Internal("error iterating permissions", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"role_id": roleID,
		"count":   len(grants),
	}).Debug("Successfully retrieved role permissions")
	return grants, nil
}

// GetActivePermissionsByRole returns the permission rows of active assignments only
func (dao *RolePermissionDao) GetActivePermissionsByRole(ctx context.Context, roleID string) ([]models.Permission, error) {
	permissions := []models.Permission{}
	if roleID == "" {
		return permissions, nil
	}

	rows, err := dao.DB.QueryContext(ctx, `
		SELECT p.id, p.name, p.description
		FROM ticketing.permission p
		JOIN ticketing.role_permission rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1 AND rp.is_active = TRUE
		ORDER BY p.name ASC
	`, roleID)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"role_id": roleID,
			"error":   err.Error(),
		}).Error("Failed to query active role permissions")
		return nil, apperrors.Internal("failed to query role permissions", err)
	}
	defer rows.Close()

	for rows.Next() {
		var permission models.Permission
		if err := rows.Scan(&permission.ID, &permission.Name, &permission.Description); err != nil {
			dao.Logger.WithError(err).Error("Failed to scan permission row")
			return nil, apperrors.Internal("failed to scan permission", err)
		}
		permissions = append(permissions, permission)
	}
	if err = rows.Err(); err != nil {
		dao.Logger.WithError(err).Error("Error iterating permission rows")
		return nil, apperrors.Internal("error iterating permissions", err)
	}

	return permissions, nil
}
