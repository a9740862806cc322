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
	"ticketing/lib/util"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"
)

// Global variables for Lambda cold start optimization
var (
	logger                   *logrus.Logger
	isLocal                  bool
	ssmRepository            data.SSMRepository
	ssmParams                map[string]string
	sqlDB                    *sql.DB
	roleRepository           data.RoleRepository
	rolePermissionRepository data.RolePermissionRepository
)

func Handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestLogger := logger.WithFields(logrus.Fields{
		"operation":  "Handler",
		"request_id": api.RequestID(request),
		"method":     request.HTTPMethod,
		"path":       request.Path,
	})
	requestLogger.Info("Roles management request received")

	claims, err := auth.RequireSuperAdmin(request)
	if err != nil {
		requestLogger.WithError(err).Warn("Rejected roles management request")
		return api.FromError(err, logger), nil
	}

	// /roles or /roles/{id}
	pathSegments := api.PathSegments(request.Path)
	var roleID string
	if len(pathSegments) >= 2 {
		roleID = pathSegments[1]
	}

	switch request.HTTPMethod {
	case http.MethodPost:
		return handleCreateRole(ctx, claims.UserID, request.Body), nil

	case http.MethodGet:
		if roleID != "" {
			return handleGetRole(ctx, roleID), nil
		}
		return handleGetRoles(ctx), nil

	case http.MethodPut:
		if roleID == "" {
			return api.ErrorResponse(http.StatusBadRequest, "Role ID required for update", logger), nil
		}
		return handleUpdateRole(ctx, roleID, request.Body), nil

	case http.MethodDelete:
		if roleID == "" {
			return api.ErrorResponse(http.StatusBadRequest, "Role ID required for deletion", logger), nil
		}
		return handleDeleteRole(ctx, roleID), nil

	default:
		return api.ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", logger), nil
	}
}

// handleCreateRole handles POST /roles
func handleCreateRole(ctx context.Context, userID, body string) events.APIGatewayProxyResponse {
	var createReq models.CreateRoleRequest
	if err := util.DecodeAndValidate(body, &createReq); err != nil {
		return api.FromError(err, logger)
	}

	role, err := roleRepository.CreateRole(ctx, &createReq)
	if err != nil {
		return api.FromError(err, logger)
	}

	logger.WithFields(logrus.Fields{
		"user_id": userID,
		"role_id": role.ID,
	}).Info("Role created")
	return api.SuccessResponse(http.StatusCreated, "Role created successfully", role, logger)
}

// handleGetRoles handles GET /roles
func handleGetRoles(ctx context.Context) events.APIGatewayProxyResponse {
	roles, err := roleRepository.GetRoles(ctx)
	if err != nil {
		return api.FromError(err, logger)
	}

	return api.SuccessResponse(http.StatusOK, "", models.RoleListResponse{
		Roles: roles,
		Total: len(roles),
	}, logger)
}

// handleGetRole handles GET /roles/{id} and includes the role's active permissions
func handleGetRole(ctx context.Context, roleID string) events.APIGatewayProxyResponse {
	role, err := roleRepository.GetRoleByID(ctx, roleID)
	if err != nil {
		return api.FromError(err, logger)
	}

	permissions, err := rolePermissionRepository.GetActivePermissionsByRole(ctx, roleID)
	if err != nil {
		return api.FromError(err, logger)
	}

	return api.SuccessResponse(http.StatusOK, "", models.RoleWithPermissions{
		Role:        *role,
		Permissions: permissions,
	}, logger)
}

// handleUpdateRole handles PUT /roles/{id}
func handleUpdateRole(ctx context.Context, roleID, body string) events.APIGatewayProxyResponse {
	var updateReq models.UpdateRoleRequest
	if err := util.DecodeAndValidate(body, &updateReq); err != nil {
		return api.FromError(err, logger)
	}

	role, err := roleRepository.UpdateRole(ctx, roleID, &updateReq)
	if err != nil {
		return api.FromError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, "Role updated successfully", role, logger)
}

// handleDeleteRole handles DELETE /roles/{id}
func handleDeleteRole(ctx context.Context, roleID string) events.APIGatewayProxyResponse {
	if err := roleRepository.DeleteRole(ctx, roleID); err != nil {
		return api.FromError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, "Role deleted successfully", nil, logger)
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

	logger.WithField("operation", "setup").Info("Roles Management Lambda initialization completed successfully")
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

	roleRepository = &data.RoleDao{
		DB:     sqlDB,
		Logger: logger,
	}
	rolePermissionRepository = &data.RolePermissionDao{
		DB:     sqlDB,
		Logger: logger,
	}

	logger.WithField("operation", "setupPostgresSQLClient").Debug("PostgreSQL client initialized successfully")
	return nil
}
