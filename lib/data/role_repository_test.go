package data

import (
	"context"
	"errors"
	"testing"
	"ticketing/lib/apperrors"
	"ticketing/lib/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCreateRole_Success(t *testing.T) {
	db, mock := newMockDB(t)
	dao := &RoleDao{DB: db, Logger: quietLogger()}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ticketing.role WHERE name = \$1 AND id <> \$2`).
		WithArgs("agent", "").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO ticketing.role`).
		WithArgs(sqlmock.AnyArg(), "agent", "Front line support").
		WillReturnResult(sqlmock.NewResult(0, 1))

	role, err := dao.CreateRole(context.Background(), &models.CreateRoleRequest{Name: "agent", Description: "Front line support"})

	require.NoError(t, err)
	assert.NotEmpty(t, role.ID)
	assert.Equal(t, "agent", role.Name)
}

func TestCreateRole_DuplicateName(t *testing.T) {
	db, mock := newMockDB(t)
	dao := &RoleDao{DB: db, Logger: quietLogger()}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ticketing.role WHERE name`).
		WithArgs("agent", "").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := dao.CreateRole(context.Background(), &models.CreateRoleRequest{Name: "agent"})

	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, `role name "agent" already exists`, err.Error())
}

func TestCreateRole_ConcurrentInsertMapsToConflict(t *testing.T) {
	db, mock := newMockDB(t)
	dao := &RoleDao{DB: db, Logger: quietLogger()}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ticketing.role WHERE name`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO ticketing.role`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := dao.CreateRole(context.Background(), &models.CreateRoleRequest{Name: "agent"})

	assert.True(t, apperrors.IsConflict(err))
}

func TestGetRoles_OrderedByName(t *testing.T) {
	db, mock := newMockDB(t)
	dao := &RoleDao{DB: db, Logger: quietLogger()}

	mock.ExpectQuery(`SELECT id, name, description FROM ticketing.role ORDER BY name ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).
			AddRow("r2", "admin", "").
			AddRow("r1", "agent", "Front line support"))

	roles, err := dao.GetRoles(context.Background())

	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "admin", roles[0].Name)
	assert.Equal(t, "Front line support", roles[1].Description)
}

func TestGetRoleByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	dao := &RoleDao{DB: db, Logger: quietLogger()}

	mock.ExpectQuery(`FROM ticketing.role WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}))

	_, err := dao.GetRoleByID(context.Background(), "missing")

	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, "role not found", err.Error())
}

func TestUpdateRole_RenameOntoExistingName(t *testing.T) {
	db, mock := newMockDB(t)
	dao := &RoleDao{DB: db, Logger: quietLogger()}

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM ticketing.role WHERE id = \$1 FOR UPDATE`).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).AddRow("r1", "agent", ""))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ticketing.role WHERE name = \$1 AND id <> \$2`).
		WithArgs("admin", "r1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := dao.UpdateRole(context.Background(), "r1", &models.UpdateRoleRequest{Name: strPtr("admin")})

	assert.True(t, apperrors.IsConflict(err))
}

func TestUpdateRole_KeepsSameNameAndChangesDescription(t *testing.T) {
	db, mock := newMockDB(t)
	dao := &RoleDao{DB: db, Logger: quietLogger()}

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM ticketing.role WHERE id = \$1 FOR UPDATE`).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).AddRow("r1", "agent", "old"))
	mock.ExpectExec(`UPDATE ticketing.role SET name = \$1, description = \$2 WHERE id = \$3`).
		WithArgs("agent", "new", "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	role, err := dao.UpdateRole(context.Background(), "r1", &models.UpdateRoleRequest{Name: strPtr("agent"), Description: strPtr("new")})

	require.NoError(t, err)
	assert.Equal(t, "new", role.Description)
}

func TestUpdateRole_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	dao := &RoleDao{DB: db, Logger: quietLogger()}

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM ticketing.role WHERE id = \$1 FOR UPDATE`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}))
	mock.ExpectRollback()

	_, err := dao.UpdateRole(context.Background(), "missing", &models.UpdateRoleRequest{Name: strPtr("x")})

	assert.True(t, apperrors.IsNotFound(err))
}

// Deleting a role that still has assignments succeeds and takes the
// assignments with it.
func TestDeleteRole_WithAssignmentsSucceeds(t *testing.T) {
	db, mock := newMockDB(t)
	dao := &RoleDao{DB: db, Logger: quietLogger()}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM ticketing.role_permission WHERE role_id = \$1`).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM ticketing.role WHERE id = \$1`).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := dao.DeleteRole(context.Background(), "r1")

	assert.NoError(t, err)
}

func TestDeleteRole_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	dao := &RoleDao{DB: db, Logger: quietLogger()}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM ticketing.role_permission WHERE role_id = \$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM ticketing.role WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := dao.DeleteRole(context.Background(), "missing")

	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteRole_DatabaseErrorIsInternal(t *testing.T) {
	db, mock := newMockDB(t)
	dao := &RoleDao{DB: db, Logger: quietLogger()}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM ticketing.role_permission`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := dao.DeleteRole(context.Background(), "r1")

	assert.Equal(t, apperrors.TypeInternal, apperrors.TypeOf(err))
}
