package data

import (
	"context"
	"database/sql"
	"ticketing/lib/models"

	"github.com/sirupsen/logrus"
)

// PermissionRepository defines the interface for permission data operations
type PermissionRepository interface {
	// CreatePermission creates a new permission; the name must be unused
	CreatePermission(ctx context.Context, req *models.CreatePermissionRequest) (*models.Permission, error)

	// GetPermissions retrieves every permission ordered by name
	GetPermissions(ctx context.Context) ([]models.Permission, error)

	// GetPermissionByID retrieves a specific permission by ID
	GetPermissionByID(ctx context.Context, permissionID string) (*models.Permission, error)

	// UpdatePermission renames or re-describes an existing permission
	UpdatePermission(ctx context.Context, permissionID string, req *models.UpdatePermissionRequest) (*models.Permission, error)

	// DeletePermission deletes a permission together with its role assignments
	DeletePermission(ctx context.Context, permissionID string) error
}

// PermissionDao implements PermissionRepository interface using PostgreSQL
type PermissionDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
}

func (dao *PermissionDao) registry() registryTable {
	return registryTable{
		table:            "ticketing.permission",
		entity:           "permission",
		assignmentColumn: "permission_id",
		db:               dao.DB,
		logger:           dao.Logger,
	}
}

func toPermission(row *namedRow) *models.Permission {
	return &models.Permission{ID: row.ID, Name: row.Name, Description: row.Description}
}

// CreatePermission creates a new permission
func (dao *PermissionDao) CreatePermission(ctx context.Context, req *models.CreatePermissionRequest) (*models.Permission, error) {
	row, err := dao.registry().create(ctx, req.Name, req.Description)
	if err != nil {
		return nil, err
	}
	return toPermission(row), nil
}

// GetPermissions retrieves all permissions
func (dao *PermissionDao) GetPermissions(ctx context.Context) ([]models.Permission, error) {
	rows, err := dao.registry().list(ctx)
	if err != nil {
		return nil, err
	}
	permissions := make([]models.Permission, 0, len(rows))
	for i := range rows {
		permissions = append(permissions, *toPermission(&rows[i]))
	}
	return permissions, nil
}

// GetPermissionByID retrieves a specific permission by ID
func (dao *PermissionDao) GetPermissionByID(ctx context.Context, permissionID string) (*models.Permission, error) {
	row, err := dao.registry().getByID(ctx, permissionID)
	if err != nil {
		return nil, err
	}
	return toPermission(row), nil
}

// UpdatePermission updates an existing permission
func (dao *PermissionDao) UpdatePermission(ctx context.Context, permissionID string, req *models.UpdatePermissionRequest) (*models.Permission, error) {
	row, err := dao.registry().update(ctx, permissionID, req.Name, req.Description)
	if err != nil {
		return nil, err
	}
	return toPermission(row), nil
}

// DeletePermission removes a permission and all its role assignments
func (dao *PermissionDao) DeletePermission(ctx context.Context, permissionID string) error {
	return dao.registry().delete(ctx, permissionID)
}
