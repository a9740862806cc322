package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"testing"
	"ticketing/lib/apperrors"
	"ticketing/lib/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRolePermissionRepository is a mock implementation of RolePermissionRepository
type MockRolePermissionRepository struct {
	mock.Mock
}

func (m *MockRolePermissionRepository) RoleExists(ctx context.Context, roleID string) (bool, error) {
	args := m.Called(ctx, roleID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRolePermissionRepository) PermissionExists(ctx context.Context, permissionID string) (bool, error) {
	args := m.Called(ctx, permissionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRolePermissionRepository) IsPermissionAssignedToRole(ctx context.Context, roleID, permissionID string) (bool, error) {
	args := m.Called(ctx, roleID, permissionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRolePermissionRepository) CreateAssignment(ctx context.Context, roleID, permissionID string) (*models.RolePermission, error) {
	args := m.Called(ctx, roleID, permissionID)
	if assignment := args.Get(0); assignment != nil {
		return assignment.(*models.RolePermission), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRolePermissionRepository) SetAssignmentActive(ctx context.Context, assignmentID string, isActive bool) (*models.RolePermission, error) {
	args := m.Called(ctx, assignmentID, isActive)
	if assignment := args.Get(0); assignment != nil {
		return assignment.(*models.RolePermission), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRolePermissionRepository) DeleteAssignment(ctx context.Context, assignmentID string) error {
	args := m.Called(ctx, assignmentID)
	return args.Error(0)
}

func (m *MockRolePermissionRepository) GetAssignments(ctx context.Context) ([]models.RolePermissionDetail, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.RolePermissionDetail), args.Error(1)
}

func (m *MockRolePermissionRepository) GetPermissionsByRole(ctx context.Context, roleID string) ([]models.PermissionGrant, error) {
	args := m.Called(ctx, roleID)
	return args.Get(0).([]models.PermissionGrant), args.Error(1)
}

func (m *MockRolePermissionRepository) GetActivePermissionsByRole(ctx context.Context, roleID string) ([]models.Permission, error) {
	args := m.Called(ctx, roleID)
	return args.Get(0).([]models.Permission), args.Error(1)
}

// memoryRepository keeps assignments in memory so properties spanning
// several calls can be checked
type memoryRepository struct {
	roles       map[string]bool
	permissions map[string]string // id -> name
	assignments []models.RolePermission
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{roles: map[string]bool{}, permissions: map[string]string{}}
}

func (r *memoryRepository) RoleExists(_ context.Context, roleID string) (bool, error) {
	return r.roles[roleID], nil
}

func (r *memoryRepository) PermissionExists(_ context.Context, permissionID string) (bool, error) {
	_, ok := r.permissions[permissionID]
	return ok, nil
}

func (r *memoryRepository) IsPermissionAssignedToRole(_ context.Context, roleID, permissionID string) (bool, error) {
	for _, a := range r.assignments {
		if a.RoleID == roleID && a.PermissionID == permissionID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepository) CreateAssignment(_ context.Context, roleID, permissionID string) (*models.RolePermission, error) {
	a := models.RolePermission{ID: uuid.NewString(), RoleID: roleID, PermissionID: permissionID, IsActive: true}
	r.assignments = append(r.assignments, a)
	return &a, nil
}

func (r *memoryRepository) SetAssignmentActive(_ context.Context, assignmentID string, isActive bool) (*models.RolePermission, error) {
	for i := range r.assignments {
		if r.assignments[i].ID == assignmentID {
			r.assignments[i].IsActive = isActive
			a := r.assignments[i]
			return &a, nil
		}
	}
	return nil, apperrors.NotFound("assignment")
}

func (r *memoryRepository) DeleteAssignment(_ context.Context, assignmentID string) error {
	for i := range r.assignments {
		if r.assignments[i].ID == assignmentID {
			r.assignments = append(r.assignments[:i], r.assignments[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("assignment")
}

func (r *memoryRepository) GetAssignments(_ context.Context) ([]models.RolePermissionDetail, error) {
	details := []models.RolePermissionDetail{}
	for _, a := range r.assignments {
		details = append(details, models.RolePermissionDetail{RolePermission: a, PermissionName: r.permissions[a.PermissionID]})
	}
	return details, nil
}

func (r *memoryRepository) GetPermissionsByRole(_ context.Context, roleID string) ([]models.PermissionGrant, error) {
	grants := []models.PermissionGrant{}
	for _, a := range r.assignments {
		if a.RoleID == roleID {
			grants = append(grants, models.PermissionGrant{
				Permission:   models.Permission{ID: a.PermissionID, Name: r.permissions[a.PermissionID]},
				AssignmentID: a.ID,
				IsActive:     a.IsActive,
			})
		}
	}
	return grants, nil
}

func (r *memoryRepository) GetActivePermissionsByRole(ctx context.Context, roleID string) ([]models.Permission, error) {
	grants, _ := r.GetPermissionsByRole(ctx, roleID)
	permissions := []models.Permission{}
	for _, g := range grants {
		if g.IsActive {
			permissions = append(permissions, g.Permission)
		}
	}
	return permissions, nil
}

func (r *memoryRepository) assignmentFor(roleID, permissionID string) string {
	for _, a := range r.assignments {
		if a.RoleID == roleID && a.PermissionID == permissionID {
			return a.ID
		}
	}
	return ""
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestAssignBulk_RepeatedAndAlreadyAssigned(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRolePermissionRepository)
	svc := &AuthorizationService{Repo: repo, Logger: quietLogger()}

	repo.On("RoleExists", ctx, "r1").Return(true, nil)
	repo.On("PermissionExists", ctx, "p1").Return(true, nil).Once()
	repo.On("IsPermissionAssignedToRole", ctx, "r1", "p1").Return(true, nil).Once()
	repo.On("PermissionExists", ctx, "p2").Return(true, nil).Once()
	repo.On("IsPermissionAssignedToRole", ctx, "r1", "p2").Return(false, nil).Once()
	repo.On("CreateAssignment", ctx, "r1", "p2").
		Return(&models.RolePermission{ID: "a2", RoleID: "r1", PermissionID: "p2", IsActive: true}, nil).Once()

	result, err := svc.AssignBulk(ctx, "r1", []string{"p1", "p1", "p2"})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"p2"}, result.Succeeded())
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "p1", result.Errors[0].PermissionID)
	assert.Equal(t, "permission already assigned to role", result.Errors[0].Error)
	repo.AssertExpectations(t)
}

func TestAssignBulk_UnknownRoleFailsWholeCall(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRolePermissionRepository)
	svc := &AuthorizationService{Repo: repo, Logger: quietLogger()}

	repo.On("RoleExists", ctx, "r9").Return(false, nil)

	_, err := svc.AssignBulk(ctx, "r9", []string{"p1"})

	assert.True(t, apperrors.IsNotFound(err))
	repo.AssertNotCalled(t, "PermissionExists", mock.Anything, mock.Anything)
}

func TestAssignBulk_ValidatesInput(t *testing.T) {
	svc := &AuthorizationService{Repo: new(MockRolePermissionRepository), Logger: quietLogger()}

	_, err := svc.AssignBulk(context.Background(), "", []string{"p1"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.AssignBulk(context.Background(), "r1", nil)
	assert.True(t, apperrors.IsValidation(err))
}

// One failing lookup does not stop the rest of the batch, and its cause is
// not exposed.
func TestAssignBulk_ContinuesAfterInternalError(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRolePermissionRepository)
	svc := &AuthorizationService{Repo: repo, Logger: quietLogger()}

	repo.On("RoleExists", ctx, "r1").Return(true, nil)
	repo.On("PermissionExists", ctx, "p1").Return(false, apperrors.Internal("failed to run existence check", errors.New("timeout")))
	repo.On("PermissionExists", ctx, "p2").Return(false, nil)
	repo.On("PermissionExists", ctx, "p3").Return(true, nil)
	repo.On("IsPermissionAssignedToRole", ctx, "r1", "p3").Return(false, nil)
	repo.On("CreateAssignment", ctx, "r1", "p3").Return(&models.RolePermission{ID: "a3", PermissionID: "p3"}, nil)

	result, err := svc.AssignBulk(ctx, "r1", []string{"p1", "p2", "p3"})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, "failed to assign permission", result.Errors[0].Error)
	assert.Equal(t, "permission not found", result.Errors[1].Error)
	repo.AssertExpectations(t)
}

func TestAssignBulk_AllFailed(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRolePermissionRepository)
	svc := &AuthorizationService{Repo: repo, Logger: quietLogger()}

	repo.On("RoleExists", ctx, "r1").Return(true, nil)
	repo.On("PermissionExists", ctx, "p1").Return(false, nil)

	result, err := svc.AssignBulk(ctx, "r1", []string{"p1"})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Success)
	assert.NotNil(t, result.Results)
	assert.Len(t, result.Errors, 1)
}

func TestAssignBulk_TwiceKeepsOneAssignment(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository()
	repo.roles["r1"] = true
	repo.permissions["p1"] = "ticket-read"
	repo.permissions["p2"] = "ticket-create"
	svc := &AuthorizationService{Repo: repo, Logger: quietLogger()}

	first, err := svc.AssignBulk(ctx, "r1", []string{"p1"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Success)

	second, err := svc.AssignBulk(ctx, "r1", []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Success)
	assert.Equal(t, 1, second.Failed)
	assert.Equal(t, "p1", second.Errors[0].PermissionID)

	all, _ := svc.ListAll(ctx)
	assert.Len(t, all, 2)
}

func TestGetPermissionsByRole_NoAssignments(t *testing.T) {
	svc := &AuthorizationService{Repo: newMemoryRepository(), Logger: quietLogger()}

	names, err := svc.GetPermissionsByRole(context.Background(), "r1")

	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestPermissionsByRole_ActiveAndInactive(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository()
	repo.roles["r1"] = true
	repo.permissions["p1"] = "ticket-read"
	repo.permissions["p2"] = "ticket-create"
	repo.permissions["p3"] = "ticket-delete"
	svc := &AuthorizationService{Repo: repo, Logger: quietLogger()}

	_, err := svc.AssignBulk(ctx, "r1", []string{"p1", "p2", "p3"})
	require.NoError(t, err)
	_, err = svc.ToggleActive(ctx, repo.assignmentFor("r1", "p3"), false)
	require.NoError(t, err)

	all, err := svc.GetPermissionsByRole(ctx, "r1")
	require.NoError(t, err)
	sort.Strings(all)
	assert.Equal(t, []string{"ticket-create", "ticket-delete", "ticket-read"}, all)

	active, err := svc.EffectivePermissions(ctx, "r1")
	require.NoError(t, err)
	assert.NotContains(t, active, "ticket-delete")
	assert.Contains(t, active, "ticket-read")

	// The inactive row is still listed.
	assignments, _ := svc.ListAll(ctx)
	assert.Len(t, assignments, 3)

	allowed, err := svc.Authorize(ctx, "r1", "ticket-delete")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = svc.Authorize(ctx, "r1", "ticket-read")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAuthorize_EmptyRole(t *testing.T) {
	repo := new(MockRolePermissionRepository)
	svc := &AuthorizationService{Repo: repo, Logger: quietLogger()}

	allowed, err := svc.Authorize(context.Background(), "", "ticket-read")

	require.NoError(t, err)
	assert.False(t, allowed)
	repo.AssertNotCalled(t, "GetActivePermissionsByRole", mock.Anything, mock.Anything)
}

func TestAuthorize_RepositoryError(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRolePermissionRepository)
	svc := &AuthorizationService{Repo: repo, Logger: quietLogger()}

	repo.On("GetActivePermissionsByRole", ctx, "r1").Return([]models.Permission(nil), errors.New("db down"))

	allowed, err := svc.Authorize(ctx, "r1", "ticket-read")

	assert.Error(t, err)
	assert.False(t, allowed)
}

func TestDeleteAssignment_NotFound(t *testing.T) {
	svc := &AuthorizationService{Repo: newMemoryRepository(), Logger: quietLogger()}

	err := svc.DeleteAssignment(context.Background(), "missing")

	assert.True(t, apperrors.IsNotFound(err))
}
