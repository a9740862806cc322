package data

import (
	"context"
	"database/sql"
	"ticketing/lib/models"

	"github.com/sirupsen/logrus"
)

// RoleRepository defines the interface for role data operations
type RoleRepository interface {
	// CreateRole creates a new role; the name must be unused
	CreateRole(ctx context.Context, req *models.CreateRoleRequest) (*models.Role, error)

	// GetRoles retrieves every role ordered by name
	GetRoles(ctx context.Context) ([]models.Role, error)

	// GetRoleByID retrieves a specific role by ID
	GetRoleByID(ctx context.Context, roleID string) (*models.Role, error)

	// UpdateRole renames or re-describes an existing role
	UpdateRole(ctx context.Context, roleID string, req *models.UpdateRoleRequest) (*models.Role, error)

	// DeleteRole deletes a role together with its permission assignments
	DeleteRole(ctx context.Context, roleID string) error
}

// RoleDao implements RoleRepository interface using PostgreSQL
type RoleDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
}

func (dao *RoleDao) registry() registryTable {
	return registryTable{
		table:            "ticketing.role",
		entity:           "role",
		assignmentColumn: "role_id",
		db:               dao.DB,
		logger:           dao.Logger,
	}
}

func toRole(row *namedRow) *models.Role {
	return &models.Role{ID: row.ID, Name: row.Name, Description: row.Description}
}

// CreateRole creates a new role
func (dao *RoleDao) CreateRole(ctx context.Context, req *models.CreateRoleRequest) (*models.Role, error) {
	row, err := dao.registry().create(ctx, req.Name, req.Description)
	if err != nil {
		return nil, err
	}
	return toRole(row), nil
}

// GetRoles retrieves all roles
func (dao *RoleDao) GetRoles(ctx context.Context) ([]models.Role, error) {
	rows, err := dao.registry().list(ctx)
	if err != nil {
		return nil, err
	}
	roles := make([]models.Role, 0, len(rows))
	for i := range rows {
		roles = append(roles, *toRole(&rows[i]))
	}
	return roles, nil
}

// GetRoleByID retrieves a specific role by ID
func (dao *RoleDao) GetRoleByID(ctx context.Context, roleID string) (*models.Role, error) {
	row, err := dao.registry().getByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return toRole(row), nil
}

// UpdateRole updates an existing role
func (dao *RoleDao) UpdateRole(ctx context.Context, roleID string, req *models.UpdateRoleRequest) (*models.Role, error) {
	row, err := dao.registry().update(ctx, roleID, req.Name, req.Description)
	if err != nil {
		return nil, err
	}
	return toRole(row), nil
}

// DeleteRole removes a role and all its permission assignments
func (dao *RoleDao) DeleteRole(ctx context.Context, roleID string) error {
	return dao.registry().delete(ctx, roleID)
}
