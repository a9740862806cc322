// Package main implements the Cognito Pre Token Generation V2.0 trigger.
//
// The trigger looks the signing-in user up in the ticketing database and adds
// user_id, role_id and isSuperAdmin to the ID and access tokens. The API
// handlers read these claims from the authorizer context, and the client
// permission gate uses role_id to fetch the role's permissions.
//
// Database problems never block a login: the event is returned unchanged and
// the user simply has no role claims, which every permission check treats as
// "no permissions".
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
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
	logger         *logrus.Logger
	isLocal        bool
	ssmRepository  data.SSMRepository
	userRepository data.UserRepository
	ssmParams      map[string]string
	sqlDB          *sql.DB
)

// Handler processes the Pre Token Generation V2.0 event.
// event.UserName holds the Cognito 'sub' of the user.
func Handler(ctx context.Context, event events.CognitoEventUserPoolsPreTokenGenV2_0) (events.CognitoEventUserPoolsPreTokenGenV2_0, error) {
	logger.WithFields(logrus.Fields{
		"trigger_source": event.TriggerSource,
		"user_pool_id":   event.UserPoolID,
		"username":       event.UserName,
		"client_id":      event.CallerContext.ClientID,
		"operation":      "Handler",
	}).Debug("Processing Cognito Pre Token Generation V2.0 event")

	if !isValidTriggerSourceV2(event.TriggerSource) {
		logger.WithFields(logrus.Fields{
			"trigger_source": event.TriggerSource,
			"operation":      "Handler",
		}).Warn("Invalid trigger source for V2.0, returning event unchanged")
		return event, nil
	}

	cognitoID := event.UserName
	if cognitoID == "" {
		logger.WithField("operation", "Handler").Error("Username (cognito_id) is empty in event")
		return event, errors.New("username cannot be empty")
	}

	user, err := userRepository.GetUserByCognitoID(ctx, cognitoID)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"cognito_id": cognitoID,
			"operation":  "Handler",
			"error":      err.Error(),
		}).Error("Failed to fetch user from database, proceeding without custom claims")
		return event, nil
	}

	claimsToAdd := buildClaims(user)

	groups := []string{}
	if user.RoleName.Valid && user.RoleName.String != "" {
		groups = append(groups, user.RoleName.String)
	}

	event.Response.ClaimsAndScopeOverrideDetails = events.ClaimsAndScopeOverrideDetailsV2_0{
		IDTokenGeneration: events.IDTokenGenerationV2_0{
			ClaimsToAddOrOverride: claimsToAdd,
			ClaimsToSuppress:      []string{},
		},
		AccessTokenGeneration: events.AccessTokenGenerationV2_0{
			ClaimsToAddOrOverride: claimsToAdd,
			ClaimsToSuppress:      []string{},
			ScopesToAdd:           []string{},
			ScopesToSuppress:      []string{},
		},
		GroupOverrideDetails: events.GroupConfigurationV2_0{
			GroupsToOverride:   groups,
			IAMRolesToOverride: []string{},
		},
	}

	logger.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"role_id":   claimsToAdd["role_id"],
		"operation": "Handler",
	}).Debug("Successfully added custom claims to token")

	return event, nil
}

// buildClaims flattens the user into token claims. Users without a role get
// an empty role_id.
func buildClaims(user *models.AppUser) map[string]interface{} {
	claims := map[string]interface{}{
		"user_id":      user.ID,
		"cognito_id":   user.CognitoID,
		"email":        user.Email,
		"role_id":      "",
		"role_name":    "",
		"isSuperAdmin": user.IsSuperAdmin,
	}
	if user.RoleID.Valid {
		claims["role_id"] = user.RoleID.String
	}
	if user.RoleName.Valid {
		claims["role_name"] = user.RoleName.String
	}
	return claims
}

// isValidTriggerSourceV2 reports whether the trigger source belongs to the V2.0 format
func isValidTriggerSourceV2(triggerSource string) bool {
	validSources := []string{
		"TokenGeneration_HostedAuth",
		"TokenGeneration_Authentication",
		"TokenGeneration_NewPasswordChallenge",
		"TokenGeneration_AuthenticateDevice",
		"TokenGeneration_RefreshTokens",
	}

	for _, valid := range validSources {
		if triggerSource == valid {
			return true
		}
	}
	return false
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

	userRepository = &data.UserDao{
		DB:     sqlDB,
		Logger: logger,
	}

	logger.WithField("operation", "setupPostgresSQLClient").Debug("PostgreSQL client initialized successfully")
	return nil
}

// main is the Lambda function entry point
func main() {
	setup()
	lambda.Start(Handler)
}

// setup runs once per cold start. Failures here stop the container so
// Cognito retries against a fresh one.
func setup() {
	var err error

	isLocal, _ = strconv.ParseBool(os.Getenv("IS_LOCAL"))
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

	logger.WithField("operation", "setup").Info("Token Customizer Lambda initialization completed successfully")
}
