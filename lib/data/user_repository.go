package data

import (
	"context"
	"database/sql"
	"ticketing/lib/apperrors"
	"ticketing/lib/models"

	"github.com/sirupsen/logrus"
)

// UserRepository defines the contract for user data operations.
// Users are looked up by Cognito ID at login since it is the identifier
// Cognito hands to the token trigger.
type UserRepository interface {
	// GetUserByCognitoID retrieves a user and the name of their role
	GetUserByCognitoID(ctx context.Context, cognitoID string) (*models.AppUser, error)

	// GetUserByID retrieves a user by internal ID
	GetUserByID(ctx context.Context, userID string) (*models.AppUser, error)

	// UpdateUserRole points the user at an existing role
	UpdateUserRole(ctx context.Context, userID, roleID string) error
}

// UserDao implements UserRepository interface using PostgreSQL database.
type UserDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
}

const userSelect = `
	SELECT u.id, u.cognito_id, u.email, u.is_super_admin, u.role_id, r.name
	FROM ticketing.app_user u
	LEFT JOIN ticketing.role r ON r.id = u.role_id
`

func (dao *UserDao) getUser(ctx context.Context, where, value string) (*models.AppUser, error) {
	var user models.AppUser
	err := dao.DB.QueryRowContext(ctx, userSelect+where, value).Scan(
		&user.ID,
		&user.CognitoID,
		&user.Email,
		&user.IsSuperAdmin,
		&user.RoleID,
		&user.RoleName,
	)

	if err == sql.ErrNoRows {
		dao.Logger.WithField("lookup", value).Warn("User not found in database")
		return nil, apperrors.NotFound("user")
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"lookup": value,
			"error":  err.Error(),
		}).Error("Error fetching user from database")
		return nil, apperrors.Internal("error fetching user", err)
	}
	return &user, nil
}

// GetUserByCognitoID fetches a user by their Cognito 'sub'
func (dao *UserDao) GetUserByCognitoID(ctx context.Context, cognitoID string) (*models.AppUser, error) {
	return dao.getUser(ctx, "WHERE u.cognito_id = $1", cognitoID)
}

// GetUserByID fetches a user by internal ID
func (dao *UserDao) GetUserByID(ctx context.Context, userID string) (*models.AppUser, error) {
	return dao.getUser(ctx, "WHERE u.id = $1", userID)
}

// UpdateUserRole assigns roleID to the user after checking the role exists
func (dao *UserDao) UpdateUserRole(ctx context.Context, userID, roleID string) error {
	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		dao.Logger.WithError(err).Error("Failed to start transaction for user role update")
		return apperrors.Internal("failed to start transaction", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ticketing.role WHERE id = $1
	`, roleID).Scan(&count); err != nil {
		dao.Logger.WithError(err).Error("Failed to validate role")
		return apperrors.Internal("failed to validate role", err)
	}
	if count == 0 {
		dao.Logger.WithField("role_id", roleID).Warn("Role not found")
		return apperrors.NotFound("role")
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE ticketing.app_user SET role_id = $1 WHERE id = $2
	`, roleID, userID)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"user_id": userID,
			"role_id": roleID,
			"error":   err.Error(),
		}).Error("Failed to update user role")
		return apperrors.Internal("failed to update user role", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		dao.Logger.WithField("user_id", userID).Warn("User not found for role update")
		return apperrors.NotFound("user")
	}

	if err = tx.Commit(); err != nil {
		dao.Logger.WithError(err).Error("Failed to commit user role update")
		return apperrors.Internal("failed to commit transaction", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"user_id": userID,
		"role_id": roleID,
	}).Info("Successfully updated user role")
	return nil
}
