package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"ticketing/lib/data"
	"ticketing/lib/models"
	"ticketing/lib/service"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTest(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	logger = logrus.New()
	logger.SetOutput(io.Discard)
	authorizationService = &service.AuthorizationService{
		Repo:   &data.RolePermissionDao{DB: db, Logger: logger},
		Logger: logger,
	}
	return mock
}

func adminRequest(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Body:       body,
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID: "req-1",
			Authorizer: map[string]interface{}{
				"user_id":      "u-admin",
				"email":        "admin@example.com",
				"sub":          "cognito-admin",
				"isSuperAdmin": true,
			},
		},
	}
}

func agentRequest(method, path, roleID string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		RequestContext: events.APIGatewayProxyRequestContext{
			Authorizer: map[string]interface{}{
				"user_id": "u-agent",
				"email":   "agent@example.com",
				"sub":     "cognito-agent",
				"role_id": roleID,
			},
		},
	}
}

func countRows(n int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

type bulkEnvelope struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Data    models.BulkAssignResult `json:"data"`
}

func TestAssignPermissions_PartialSuccess(t *testing.T) {
	mock := setupTest(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM ticketing.role WHERE id = \$1`).WithArgs("r1").WillReturnRows(countRows(1))
	mock.ExpectQuery(`FROM ticketing.permission WHERE id = \$1`).WithArgs("p1").WillReturnRows(countRows(1))
	mock.ExpectQuery(`FROM ticketing.role_permission WHERE role_id`).WithArgs("r1", "p1").WillReturnRows(countRows(1))
	mock.ExpectQuery(`FROM ticketing.permission WHERE id = \$1`).WithArgs("p2").WillReturnRows(countRows(1))
	mock.ExpectQuery(`FROM ticketing.role_permission WHERE role_id`).WithArgs("r1", "p2").WillReturnRows(countRows(0))
	mock.ExpectQuery(`INSERT INTO ticketing.role_permission`).
		WithArgs(sqlmock.AnyArg(), "r1", "p2").
		WillReturnRows(sqlmock.NewRows([]string{"created_date", "updated_date"}).AddRow(now, now))

	response, err := Handler(context.Background(), adminRequest(http.MethodPost, "/role-permissions",
		`{"role_id":"r1","permission_ids":["p1","p1","p2"]}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, response.StatusCode)

	var body bulkEnvelope
	require.NoError(t, json.Unmarshal([]byte(response.Body), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Data.Success)
	assert.Equal(t, 1, body.Data.Failed)
	assert.Equal(t, []string{"p2"}, body.Data.Succeeded())
	assert.Equal(t, "p1", body.Data.Errors[0].PermissionID)
}

func TestAssignPermissions_AllFailedIs400(t *testing.T) {
	mock := setupTest(t)

	mock.ExpectQuery(`FROM ticketing.role WHERE id = \$1`).WithArgs("r1").WillReturnRows(countRows(1))
	mock.ExpectQuery(`FROM ticketing.permission WHERE id = \$1`).WithArgs("nope").WillReturnRows(countRows(0))

	response, err := Handler(context.Background(), adminRequest(http.MethodPost, "/role-permissions",
		`{"role_id":"r1","permission_ids":["nope"]}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	var body bulkEnvelope
	require.NoError(t, json.Unmarshal([]byte(response.Body), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "permission not found", body.Data.Errors[0].Error)
}

func TestAssignPermissions_MissingFields(t *testing.T) {
	setupTest(t)

	response, err := Handler(context.Background(), adminRequest(http.MethodPost, "/role-permissions", `{"role_id":"r1","permission_ids":[]}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	response, err = Handler(context.Background(), adminRequest(http.MethodPost, "/role-permissions", `{"permission_ids":["p1"]}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestAssignPermissions_UnknownRole(t *testing.T) {
	mock := setupTest(t)

	mock.ExpectQuery(`FROM ticketing.role WHERE id = \$1`).WithArgs("r9").WillReturnRows(countRows(0))

	response, err := Handler(context.Background(), adminRequest(http.MethodPost, "/role-permissions",
		`{"role_id":"r9","permission_ids":["p1"]}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}

func TestToggleAssignment(t *testing.T) {
	mock := setupTest(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE ticketing.role_permission SET is_active`).
		WithArgs(false, "a1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role_id", "permission_id", "is_active", "created_date", "updated_date"}).
			AddRow("a1", "r1", "p1", false, now, now))

	response, err := Handler(context.Background(), adminRequest(http.MethodPatch, "/role-permissions/a1", `{"is_active":false}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, response.Body, `"is_active":false`)
}

func TestToggleAssignment_MissingFlag(t *testing.T) {
	setupTest(t)

	response, err := Handler(context.Background(), adminRequest(http.MethodPatch, "/role-permissions/a1", `{}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestDeleteAssignment_NotFound(t *testing.T) {
	mock := setupTest(t)

	mock.ExpectExec(`DELETE FROM ticketing.role_permission WHERE id = \$1`).
		WithArgs("a9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	response, err := Handler(context.Background(), adminRequest(http.MethodDelete, "/role-permissions/a9", ""))

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}

func TestGetRolePermissions_OwnRoleActiveOnly(t *testing.T) {
	mock := setupTest(t)

	mock.ExpectQuery(`AND rp.is_active = TRUE`).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).
			AddRow("p1", "ticket-read", "").
			AddRow("p2", "ticket-create", ""))

	response, err := Handler(context.Background(), agentRequest(http.MethodGet, "/role-permissions/role/r1", "r1"))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, response.Body, "ticket-read")
}

func TestGetRolePermissions_IncludeInactive(t *testing.T) {
	mock := setupTest(t)

	mock.ExpectQuery(`WHERE rp.role_id = \$1 ORDER BY p.name`).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "assignment_id", "is_active"}).
			AddRow("p3", "ticket-delete", "", "a3", false))

	request := adminRequest(http.MethodGet, "/role-permissions/role/r1", "")
	request.QueryStringParameters = map[string]string{"include_inactive": "true"}
	response, err := Handler(context.Background(), request)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, response.Body, `"is_active":false`)
}

func TestGetRolePermissions_OtherRoleForbidden(t *testing.T) {
	setupTest(t)

	response, err := Handler(context.Background(), agentRequest(http.MethodGet, "/role-permissions/role/r2", "r1"))

	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, response.StatusCode)
}

func TestGetRolePermissions_MissingRoleID(t *testing.T) {
	setupTest(t)

	response, err := Handler(context.Background(), adminRequest(http.MethodGet, "/role-permissions/role", ""))

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestAdminRoutesRequireSuperAdmin(t *testing.T) {
	setupTest(t)

	response, err := Handler(context.Background(), agentRequest(http.MethodGet, "/role-permissions", "r1"))

	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, response.StatusCode)
}

func TestMissingClaims(t *testing.T) {
	setupTest(t)

	response, err := Handler(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/role-permissions"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
}
