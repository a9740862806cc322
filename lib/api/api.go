package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"ticketing/lib/apperrors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Envelope is the body of every successful response
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorEnvelope is the body of every error response
type ErrorEnvelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Status     int               `json:"status"`
	Validation map[string]string `json:"validation,omitempty"`
}

func headers() map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
		"Access-Control-Allow-Methods": "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}
}

// SuccessResponse creates a successful API Gateway response
func SuccessResponse(statusCode int, message string, data interface{}, logger *logrus.Logger) events.APIGatewayProxyResponse {
	return JSONResponse(statusCode, Envelope{Success: true, Message: message, Data: data}, logger)
}

// JSONResponse marshals body as is
func JSONResponse(statusCode int, body interface{}, logger *logrus.Logger) events.APIGatewayProxyResponse {
	payload, err := json.Marshal(body)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal response data")
		return ErrorResponse(http.StatusInternalServerError, "Internal server error", logger)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Body:       string(payload),
		Headers:    headers(),
	}
}

// ErrorResponse creates an error API Gateway response
func ErrorResponse(statusCode int, message string, logger *logrus.Logger) events.APIGatewayProxyResponse {
	return errorResponse(ErrorEnvelope{Message: message, Status: statusCode}, logger)
}

// ValidationErrorResponse creates a 400 response with per-field messages
func ValidationErrorResponse(message string, fields map[string]string, logger *logrus.Logger) events.APIGatewayProxyResponse {
	return errorResponse(ErrorEnvelope{Message: message, Status: http.StatusBadRequest, Validation: fields}, logger)
}

func errorResponse(envelope ErrorEnvelope, logger *logrus.Logger) events.APIGatewayProxyResponse {
	body, err := json.Marshal(envelope)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal error response")
		body = []byte(`{"success":false,"message":"Internal server error","status":500}`)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: envelope.Status,
		Body:       string(body),
		Headers:    headers(),
	}
}

// StatusCode maps an application error type to its HTTP status
func StatusCode(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.TypeValidation, apperrors.TypeConflict:
		return http.StatusBadRequest
	case apperrors.TypeNotFound:
		return http.StatusNotFound
	case apperrors.TypeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.TypeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// FromError turns an error returned by the data or service layer into a
// response. Internal errors are logged and answered with a generic message.
func FromError(err error, logger *logrus.Logger) events.APIGatewayProxyResponse {
	status := StatusCode(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("Internal error while handling request")
		return ErrorResponse(status, "Internal server error", logger)
	}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) && len(appErr.Fields) > 0 {
		return ValidationErrorResponse(appErr.Message, appErr.Fields, logger)
	}
	return ErrorResponse(status, err.Error(), logger)
}

// PathSegments splits a request path into its non-empty segments
func PathSegments(path string) []string {
	var segments []string
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

// RequestID returns the API Gateway request id, or a fresh one when the
// request did not come through API Gateway
func RequestID(request events.APIGatewayProxyRequest) string {
	if request.RequestContext.RequestID != "" {
		return request.RequestContext.RequestID
	}
	return uuid.NewString()
}

// QueryBool reads a boolean query string parameter, false when absent or malformed
func QueryBool(request events.APIGatewayProxyRequest, name string) bool {
	value, err := strconv.ParseBool(request.QueryStringParameters[name])
	return err == nil && value
}
