package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
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
	logger           *logrus.Logger
	isLocal          bool
	ssmRepository    data.SSMRepository
	ssmParams        map[string]string
	sqlDB            *sql.DB
	ticketRepository data.TicketRepository
	authorizer       service.Authorizer
)

func Handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestLogger := logger.WithFields(logrus.Fields{
		"operation":  "Handler",
		"request_id": api.RequestID(request),
		"method":     request.HTTPMethod,
		"path":       request.Path,
	})
	requestLogger.Info("Ticket management request received")

	claims, err := auth.ExtractClaimsFromRequest(request)
	if err != nil {
		requestLogger.WithError(err).Error("Failed to extract claims")
		return api.ErrorResponse(http.StatusUnauthorized, "Unauthorized: "+err.Error(), logger), nil
	}

	// /tickets, /tickets/{id}, /tickets/{id}/status or /projects/{projectId}/tickets
	pathSegments := api.PathSegments(request.Path)
	if len(pathSegments) == 0 {
		return api.ErrorResponse(http.StatusNotFound, "Route not found", logger), nil
	}

	switch {
	case pathSegments[0] == "projects" && len(pathSegments) == 3 && pathSegments[2] == "tickets" && request.HTTPMethod == http.MethodGet:
		if resp, ok := requirePermission(ctx, claims, constants.PermissionTicketRead); !ok {
			return resp, nil
		}
		return handleGetProjectTickets(ctx, pathSegments[1], request.QueryStringParameters["status"]), nil

	case pathSegments[0] != "tickets":
		return api.ErrorResponse(http.StatusNotFound, "Route not found", logger), nil

	case len(pathSegments) == 1 && request.HTTPMethod == http.MethodPost:
		if resp, ok := requirePermission(ctx, claims, constants.PermissionTicketCreate); !ok {
			return resp, nil
		}
		return handleCreateTicket(ctx, claims.UserID, request.Body), nil

	case len(pathSegments) == 2 && request.HTTPMethod == http.MethodGet:
		if resp, ok := requirePermission(ctx, claims, constants.PermissionTicketRead); !ok {
			return resp, nil
		}
		return handleGetTicket(ctx, pathSegments[1]), nil

	case len(pathSegments) == 3 && pathSegments[2] == "status" && request.HTTPMethod == http.MethodPatch:
		if resp, ok := requirePermission(ctx, claims, constants.PermissionTicketUpdate); !ok {
			return resp, nil
		}
		return handleUpdateTicketStatus(ctx, claims.UserID, pathSegments[1], request.Body), nil

	default:
		return api.ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", logger), nil
	}
}

// requirePermission checks the caller's role server-side. Super admins pass.
func requirePermission(ctx context.Context, claims *auth.Claims, permission string) (events.APIGatewayProxyResponse, bool) {
	if claims.IsSuperAdmin {
		return events.APIGatewayProxyResponse{}, true
	}

	allowed, err := authorizer.Authorize(ctx, claims.RoleID, permission)
	if err != nil {
		return api.FromError(err, logger), false
	}
	if !allowed {
		logger.WithFields(logrus.Fields{
			"user_id":    claims.UserID,
			"role_id":    claims.RoleID,
			"permission": permission,
		}).Warn("Permission denied")
		return api.ErrorResponse(http.StatusForbidden, "Forbidden: missing permission "+permission, logger), false
	}
	return events.APIGatewayProxyResponse{}, true
}

// handleCreateTicket handles POST /tickets
func handleCreateTicket(ctx context.Context, userID, body string) events.APIGatewayProxyResponse {
	var createReq models.CreateTicketRequest
	if err := util.DecodeAndValidate(body, &createReq); err != nil {
		return api.FromError(err, logger)
	}

	ticket, err := ticketRepository.CreateTicket(ctx, userID, &createReq)
	if err != nil {
		return api.FromError(err, logger)
	}
	return api.SuccessResponse(http.StatusCreated, "Ticket created successfully", ticket, logger)
}

// handleGetTicket handles GET /tickets/{id}
func handleGetTicket(ctx context.Context, ticketID string) events.APIGatewayProxyResponse {
	ticket, err := ticketRepository.GetTicketByID(ctx, ticketID)
	if err != nil {
		return api.FromError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, "", ticket, logger)
}

// handleGetProjectTickets handles GET /projects/{projectId}/tickets?status=open,in_progress
func handleGetProjectTickets(ctx context.Context, projectID, statusParam string) events.APIGatewayProxyResponse {
	var statuses []string
	for _, status := range strings.Split(statusParam, ",") {
		status = strings.TrimSpace(status)
		if status == "" {
			continue
		}
		if !models.IsTicketStatus(status) {
			return api.ErrorResponse(http.StatusBadRequest, fmt.Sprintf("Invalid status %q", status), logger)
		}
		statuses = append(statuses, status)
	}

	tickets, err := ticketRepository.GetTicketsByProject(ctx, projectID, statuses)
	if err != nil {
		return api.FromError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, "", models.TicketListResponse{
		Tickets: tickets,
		Total:   len(tickets),
	}, logger)
}

// handleUpdateTicketStatus handles PATCH /tickets/{id}/status
func handleUpdateTicketStatus(ctx context.Context, userID, ticketID, body string) events.APIGatewayProxyResponse {
	var updateReq models.UpdateTicketStatusRequest
	if err := util.DecodeAndValidate(body, &updateReq); err != nil {
		return api.FromError(err, logger)
	}

	ticket, err := ticketRepository.UpdateTicketStatus(ctx, ticketID, updateReq.Status)
	if err != nil {
		return api.FromError(err, logger)
	}

	logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"ticket_id": ticketID,
		"status":    ticket.Status,
	}).Info("Ticket status changed")
	return api.SuccessResponse(http.StatusOK, "Ticket status updated successfully", ticket, logger)
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

	logger.WithField("operation", "setup").Info("Ticket Management Lambda initialization completed successfully")
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

	ticketRepository = &data.TicketDao{
		DB:     sqlDB,
		Logger: logger,
	}
	authorizer = &service.AuthorizationService{
		Repo: &data.RolePermissionDao{
			DB:     sqlDB,
			Logger: logger,
		},
		Logger: logger,
	}

	logger.WithField("operation", "setupPostgresSQLClient").Debug("PostgreSQL client initialized successfully")
	return nil
}
