package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"ticketing/lib/api"
	"ticketing/lib/auth"
	"ticketing/lib/clients"
	"ticketing/lib/constants"
	"ticketing/lib/data"
	"ticketing/lib/models"
	"ticketing/lib/service"
	"ticketing/lib/util"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"
)

// Global variables for Lambda cold start optimization
var (
	logger               *logrus.Logger
	isLocal              bool
	ssmRepository        data.SSMRepository
	ssmParams            map[string]string
	sqlDB                *sql.DB
	authorizationService *service.AuthorizationService
)

func Handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestLogger := logger.WithFields(logrus.Fields{
		"operation":  "Handler",
		"request_id": api.RequestID(request),
		"method":     request.HTTPMethod,
		"path":       request.Path,
	})
	requestLogger.Info("Role permissions request received")

	claims, err := auth.ExtractClaimsFromRequest(request)
	if err != nil {
		requestLogger.WithError(err).Error("Failed to extract claims")
		return api.ErrorResponse(http.StatusUnauthorized, "Unauthorized: "+err.Error(), logger), nil
	}

	// /role-permissions, /role-permissions/{id} or /role-permissions/role/{roleId}
	pathSegments := api.PathSegments(request.Path)

	// The role lookup is what the client permission gate calls, so users may
	// read their own role. Everything else is admin only.
	if request.HTTPMethod == http.MethodGet && len(pathSegments) >= 2 && pathSegments[1] == "role" {
		if len(pathSegments) < 3 {
			return api.ErrorResponse(http.StatusBadRequest, "Role ID is required", logger), nil
		}
		roleID := pathSegments[2]
		if !claims.IsSuperAdmin && claims.RoleID != roleID {
			requestLogger.WithFields(logrus.Fields{
				"user_id": claims.UserID,
				"role_id": roleID,
			}).Warn("User requested permissions of another role")
			return api.ErrorResponse(http.StatusForbidden, "Forbidden: cannot read permissions of another role", logger), nil
		}
		return handleGetRolePermissions(ctx, roleID, api.QueryBool(request, "include_inactive")), nil
	}

	if !claims.IsSuperAdmin {
		requestLogger.WithField("user_id", claims.UserID).Warn("User is not a super admin")
		return api.ErrorResponse(http.StatusForbidden, "Forbidden: Only super admins can manage role permissions", logger), nil
	}

	var assignmentID string
	if len(pathSegments) >= 2 {
		assignmentID = pathSegments[1]
	}

	switch request.HTTPMethod {
	case http.MethodPost:
		return handleAssignPermissions(ctx, claims.UserID, request.Body), nil

	case http.MethodGet:
		return handleGetAssignments(ctx), nil

	case http.MethodPatch:
		if assignmentID == "" {
			return api.ErrorResponse(http.StatusBadRequest, "Assignment ID required for update", logger), nil
		}
		return handleToggleAssignment(ctx, assignmentID, request.Body), nil

	case http.MethodDelete:
		if assignmentID == "" {
			return api.ErrorResponse(http.StatusBadRequest, "Assignment ID required for deletion", logger), nil
		}
		return handleDeleteAssignment(ctx, assignmentID), nil

	default:
		return api.ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", logger), nil
	}
}

// handleAssignPermissions handles POST /role-permissions. Items are assigned
// independently; the call is 201 when any succeeded and 400 when none did.
func handleAssignPermissions(ctx context.Context, userID, body string) events.APIGatewayProxyResponse {
	var assignReq models.AssignPermissionsRequest
	if err := util.DecodeAndValidate(body, &assignReq); err != nil {
		return api.FromError(err, logger)
	}

	result, err := authorizationService.AssignBulk(ctx, assignReq.RoleID, assignReq.PermissionIDs)
	if err != nil {
		return api.FromError(err, logger)
	}

	logger.WithFields(logrus.Fields{
		"user_id": userID,
		"role_id": assignReq.RoleID,
		"success": result.Success,
		"failed":  result.Failed,
	}).Info("Role permissions assigned")

	if result.Success == 0 {
		return api.JSONResponse(http.StatusBadRequest, api.Envelope{
			Success: false,
			Message: "No permissions were assigned",
			Data:    result,
		}, logger)
	}
	message := fmt.Sprintf("Assigned %d permission(s)", result.Success)
	if result.Failed > 0 {
		message = fmt.Sprintf("Assigned %d permission(s), %d failed", result.Success, result.Failed)
	}
	return api.SuccessResponse(http.StatusCreated, message, result, logger)
}

// handleGetAssignments handles GET /role-permissions
func handleGetAssignments(ctx context.Context) events.APIGatewayProxyResponse {
	assignments, err := authorizationService.ListAll(ctx)
	if err != nil {
		return api.FromError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, "", assignments, logger)
}

// handleToggleAssignment handles PATCH /role-permissions/{id}
func handleToggleAssignment(ctx context.Context, assignmentID, body string) events.APIGatewayProxyResponse {
	var toggleReq models.ToggleRolePermissionRequest
	if err := util.DecodeAndValidate(body, &toggleReq); err != nil {
		return api.FromError(err, logger)
	}

	assignment, err := authorizationService.ToggleActive(ctx, assignmentID, *toggleReq.IsActive)
	if err != nil {
		return api.FromError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, "Assignment updated successfully", assignment, logger)
}

// handleDeleteAssignment handles DELETE /role-permissions/{id}
func handleDeleteAssignment(ctx context.Context, assignmentID string) events.APIGatewayProxyResponse {
	if err := authorizationService.DeleteAssignment(ctx, assignmentID); err != nil {
		return api.FromError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, "Assignment deleted successfully", nil, logger)
}

// handleGetRolePermissions handles GET /role-permissions/role/{roleId}.
// Active permissions by default; include_inactive returns every grant with its flag.
func handleGetRolePermissions(ctx context.Context, roleID string, includeInactive bool) events.APIGatewayProxyResponse {
	if includeInactive {
		grants, err := authorizationService.GetPermissionGrants(ctx, roleID)
		if err != nil {
			return api.FromError(err, logger)
		}
		return api.SuccessResponse(http.StatusOK, "", grants, logger)
	}

	permissions, err := authorizationService.ListActivePermissionsForRole(ctx, roleID)
	if err != nil {
		return api.FromError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, "", permissions, logger)
}

// main is the Lambda function entry point
func main() {
	setup()
	lambda.Start(Handler)
}

func setup() {
	var err error

	isLocal = parseIsLocal()
	logger = util.NewLogger(isLocal, os.Getenv("LOG_LEVEL"))

	ssmRepository = &data.SSMDao{
		SSM:    clients.NewSSMClient(isLocal),
		Logger: logger,
	}

	ssmParams, err = ssmRepository.GetParameters()
	if err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "setup",
			"error":     err.Error(),
		}).Fatal("Error while getting SSM params from parameter store")
	}

	if err = setupPostgresSQLClient(ssmParams); err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "setup",
			"error":     err.Error(),
		}).Fatal("Error setting up PostgreSQL client")
	}

	logger.WithField("operation", "setup").Info("Role Permissions Lambda initialization completed successfully")
}

func parseIsLocal() bool {
	isLocal, _ := strconv.ParseBool(os.Getenv("IS_LOCAL"))
	return isLocal
}

func setupPostgresSQLClient(ssmParams map[string]string) error {
	var err error

	sqlDB, err = clients.NewPostgresSQLClient(
		ssmParams[constants.DATABASE_RDS_ENDPOINT],
		ssmParams[constants.DATABASE_PORT],
		ssmParams[constants.DATABASE_NAME],
		ssmParams[constants.DATABASE_USERNAME],
		ssmParams[constants.DATABASE_PASSWORD],
		ssmParams[constants.SSL_MODE],
	)
	if err != nil {
		return fmt.Errorf("error creating PostgreSQL client: %w", err)
	}

	authorizationService = &service.AuthorizationService{
		Repo: &data.RolePermissionDao{
			DB:     sqlDB,
			Logger: logger,
		},
		Logger: logger,
	}

	logger.WithField("operation", "setupPostgresSQLClient").Debug("PostgreSQL client initialized successfully")
	return nil
}
