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
	logger               *logrus.Logger
	isLocal              bool
	ssmRepository        data.SSMRepository
	ssmParams            map[string]string
	sqlDB                *sql.DB
	permissionRepository data.PermissionRepository
)

func Handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestLogger := logger.WithFields(logrus.Fields{
		"operation":  "Handler",
		"request_id": api.RequestID(request),
		"method":     request.HTTPMethod,
		"path":       request.Path,
	})
	requestLogger.Info("Permissions management request received")

	claims, err := auth.RequireSuperAdmin(request)
	if err != nil {
		requestLogger.WithError(err).Warn("Rejected permissions management request")
		return api.FromError(err, logger), nil
	}

	// /permissions or /permissions/{id}
	pathSegments := api.PathSegments(request.Path)
	var permissionID string
	if len(pathSegments) >= 2 {
		permissionID = pathSegments[1]
	}

	switch request.HTTPMethod {
	case http.MethodPost:
		return handleCreatePermission(ctx, claims.UserID, request.Body), nil

	case http.MethodGet:
		if permissionID != "" {
			return handleGetPermission(ctx, permissionID), nil
		}
		return handleGetPermissions(ctx), nil

	case http.MethodPut:
		if permissionID == "" {
			return api.ErrorResponse(http.StatusBadRequest, "Permission ID required for update", logger), nil
		}
		return handleUpdatePermission(ctx, permissionID, request.Body), nil

	case http.MethodDelete:
		if permissionID == "" {
			return api.ErrorResponse(http.StatusBadRequest, "Permission ID required for deletion", logger), nil
		}
		return handleDeletePermission(ctx, permissionID), nil

	default:
		return api.ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", logger), nil
	}
}

// handleCreatePermission handles POST /permissions
func handleCreatePermission(ctx context.Context, userID, body string) events.APIGatewayProxyResponse {
	var createReq models.CreatePermissionRequest
	if err := util.DecodeAndValidate(body, &createReq); err != nil {
		return api.FromError(err, logger)
	}

	permission, err := permissionRepository.CreatePermission(ctx, &createReq)
	if err != nil {
		return api.FromError(err, logger)
	}

	logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"permission_id": permission.ID,
	}).Info("Permission created")
	return api.SuccessResponse(http.StatusCreated, "Permission created successfully", permission, logger)
}

// handleGetPermissions handles GET /permissions
func handleGetPermissions(ctx context.Context) events.APIGatewayProxyResponse {
	permissions, err := permissionRepository.GetPermissions(ctx)
	if err != nil {
		return api.FromError(err, logger)
	}

	return api.SuccessResponse(http.StatusOK, "", models.PermissionListResponse{
		Permissions: permissions,
		Total:       len(permissions),
	}, logger)
}

// handleGetPermission handles GET /permissions/{id}
func handleGetPermission(ctx context.Context, permissionID string) events.APIGatewayProxyResponse {
	permission, err := permissionRepository.GetPermissionByID(ctx, permissionID)
	if err != nil {
		return api.FromError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, "", permission, logger)
}

// handleUpdatePermission handles PUT /permissions/{id}
func handleUpdatePermission(ctx context.Context, permissionID, body string) events.APIGatewayProxyResponse {
	var updateReq models.UpdatePermissionRequest
	if err := util.DecodeAndValidate(body, &updateReq); err != nil {
		return api.FromError(err, logger)
	}

	permission, err := permissionRepository.UpdatePermission(ctx, permissionID, &updateReq)
	if err != nil {
		return api.FromError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, "Permission updated successfully", permission, logger)
}

// handleDeletePermission handles DELETE /permissions/{id}.
// Assignments of the permission are removed with it.
func handleDeletePermission(ctx context.Context, permissionID string) events.APIGatewayProxyResponse {
	if err := permissionRepository.DeletePermission(ctx, permissionID); err != nil {
		return api.FromError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, "Permission deleted successfully", nil, logger)
}

// main is the Lambda function entry point
func main() {
	setup()
	lambda.Start(Handler)
}

func setup() {
	var err error

	isLocal = parseIsLocal()

	// Logger Setup
	logger = util.NewLogger(isLocal, os.Getenv("LOG_LEVEL"))

	// Initialize AWS SSM Parameter Store client
	ssmRepository = &data.SSMDao{
		SSM:    clients.NewSSMClient(isLocal),
		Logger: logger,
	}

	// Retrieve all required configuration parameters from SSM
	ssmParams, err = ssmRepository.GetParameters()
	if err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "setup",
			"error":     err.Error(),
		}).Fatal("Error while getting SSM params from parameter store")
	}

	logger.WithFields(logrus.Fields{
		"operation":    "setup",
		"params_count": len(ssmParams),
	}).Debug("Retrieved SSM parameters")

	if err = setupPostgresSQLClient(ssmParams); err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "setup",
			"error":     err.Error(),
		}).Fatal("Error setting up PostgreSQL client")
	}

	logger.WithField("operation", "setup").Info("Permissions Management Lambda initialization completed successfully")
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

	permissionRepository = &data.PermissionDao{
		DB:     sqlDB,
		Logger: logger,
	}

	logger.WithField("operation", "setupPostgresSQLClient").Debug("PostgreSQL client initialized successfully")
	return nil
}
