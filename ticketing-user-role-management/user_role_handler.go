package main

import (
	"context"
	"net/http"
	"ticketing/lib/api"
	"ticketing/lib/auth"
	"ticketing/lib/data"
	"ticketing/lib/models"
	"ticketing/lib/util"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/sirupsen/logrus"
)

// CognitoAPI is the part of the Cognito admin client used to end sessions
type CognitoAPI interface {
	AdminUserGlobalSignOut(ctx context.Context, params *cognitoidentityprovider.AdminUserGlobalSignOutInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminUserGlobalSignOutOutput, error)
}

// Handler assigns roles to users. The role id lives in the session token,
// so a role change signs the user out everywhere to force a fresh token.
type Handler struct {
	UserRepository data.UserRepository
	CognitoClient  CognitoAPI
	UserPoolID     string
	Logger         *logrus.Logger
}

func (h *Handler) handleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestLogger := h.Logger.WithFields(logrus.Fields{
		"operation":  "handleRequest",
		"request_id": api.RequestID(request),
		"method":     request.HTTPMethod,
		"path":       request.Path,
	})
	requestLogger.Info("User role request received")

	claims, err := auth.RequireSuperAdmin(request)
	if err != nil {
		requestLogger.WithError(err).Warn("Rejected user role request")
		return api.FromError(err, h.Logger), nil
	}

	// /users/{id}/role
	pathSegments := api.PathSegments(request.Path)
	if len(pathSegments) != 3 || pathSegments[0] != "users" || pathSegments[2] != "role" {
		return api.ErrorResponse(http.StatusNotFound, "Route not found", h.Logger), nil
	}
	if request.HTTPMethod != http.MethodPut {
		return api.ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", h.Logger), nil
	}

	return h.assignRole(ctx, claims.UserID, pathSegments[1], request.Body), nil
}

func (h *Handler) assignRole(ctx context.Context, adminID, userID, body string) events.APIGatewayProxyResponse {
	var assignReq models.AssignUserRoleRequest
	if err := util.DecodeAndValidate(body, &assignReq); err != nil {
		return api.FromError(err, h.Logger)
	}

	if err := h.UserRepository.UpdateUserRole(ctx, userID, assignReq.RoleID); err != nil {
		return api.FromError(err, h.Logger)
	}

	response := models.UserRoleResponse{
		UserID:          userID,
		RoleID:          assignReq.RoleID,
		SessionsRevoked: h.revokeSessions(ctx, userID),
	}

	h.Logger.WithFields(logrus.Fields{
		"admin_id":         adminID,
		"user_id":          userID,
		"role_id":          assignReq.RoleID,
		"sessions_revoked": response.SessionsRevoked,
	}).Info("User role assigned")

	return api.SuccessResponse(http.StatusOK, "Role assigned successfully", response, h.Logger)
}

// revokeSessions signs the user out of Cognito. Failures are logged and
// reported in the response; the role change itself is already committed.
func (h *Handler) revokeSessions(ctx context.Context, userID string) bool {
	user, err := h.UserRepository.GetUserByID(ctx, userID)
	if err != nil {
		h.Logger.WithError(err).Warn("Failed to load user for session revocation")
		return false
	}

	_, err = h.CognitoClient.AdminUserGlobalSignOut(ctx, &cognitoidentityprovider.AdminUserGlobalSignOutInput{
		UserPoolId: aws.String(h.UserPoolID),
		Username:   aws.String(user.CognitoID),
	})
	if err != nil {
		h.Logger.WithFields(logrus.Fields{
			"user_id":    userID,
			"cognito_id": user.CognitoID,
			"error":      err.Error(),
		}).Warn("Failed to sign user out of Cognito, role applies at next login")
		return false
	}
	return true
}
