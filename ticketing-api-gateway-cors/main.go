package main

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"ticketing/lib/clients"
	"ticketing/lib/constants"
	"ticketing/lib/data"
	"ticketing/lib/util"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"
)

var (
	logger        *logrus.Logger
	isLocal       bool
	ssmRepository data.SSMRepository
	ssmParams     map[string]string
)

const (
	allowedHeaders = "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token,geolocation,x-retry"
	allowedMethods = "GET, PUT, DELETE, POST, OPTIONS, PATCH"
)

// handler answers preflight requests for the ticketing API
func handler(request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestOrigin := requestHeader(request, "origin")
	if requestOrigin == "" {
		logger.WithField("operation", "handler").Warn("Origin is not present in the request headers")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, nil
	}

	if !originAllowed(requestOrigin, ssmParams[constants.ALLOWED_ORIGINS]) {
		logger.WithFields(logrus.Fields{
			"operation": "handler",
			"origin":    requestOrigin,
		}).Warn("Unauthorized origin")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest}, nil
	}

	logger.WithFields(logrus.Fields{
		"operation": "handler",
		"origin":    requestOrigin,
	}).Debug("Origin allowed")

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Access-Control-Allow-Origin":      requestOrigin,
			"Access-Control-Allow-Headers":     allowedHeaders,
			"Access-Control-Allow-Methods":     allowedMethods,
			"Access-Control-Allow-Credentials": "true",
		},
	}, nil
}

// originAllowed matches origin against a comma separated list where "*" matches anything
func originAllowed(origin, allowList string) bool {
	for _, allowed := range strings.Split(allowList, ",") {
		allowed = strings.TrimSpace(allowed)
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// requestHeader looks a header up case-insensitively; API Gateway passes them through as sent
func requestHeader(request events.APIGatewayProxyRequest, name string) string {
	for key, value := range request.Headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

func main() {
	setup()
	lambda.Start(handler)
}

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
}
