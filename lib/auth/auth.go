package auth

import (
	"encoding/json"
	"fmt"
	"strconv"
	"ticketing/lib/apperrors"

	"github.com/aws/aws-lambda-go/events"
)

// Claims represents the JWT claims extracted from the API Gateway authorizer context.
// RoleID is embedded by the token customizer at login and is empty for users
// without a role.
type Claims struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	CognitoID    string `json:"sub"`
	RoleID       string `json:"role_id,omitempty"`
	IsSuperAdmin bool   `json:"isSuperAdmin"`
}

// ExtractClaimsFromRequest extracts and parses JWT claims from API Gateway request
func ExtractClaimsFromRequest(request events.APIGatewayProxyRequest) (*Claims, error) {
	var claimsMap map[string]interface{}
	var ok bool

	// Cognito user pool authorizers nest the claims, Lambda authorizers do not
	if authClaims, exists := request.RequestContext.Authorizer["claims"]; exists {
		claimsMap, ok = authClaims.(map[string]interface{})
	}
	if !ok {
		claimsMap = request.RequestContext.Authorizer
		ok = (claimsMap != nil)
	}
	if !ok || claimsMap == nil {
		return nil, fmt.Errorf("claims not found in authorizer context")
	}

	userID, err := claimString(claimsMap, "user_id")
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("user_id not found in claims")
	}

	email, ok := claimsMap["email"].(string)
	if !ok {
		return nil, fmt.Errorf("email not found or invalid in claims")
	}

	cognitoID, ok := claimsMap["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("sub not found or invalid in claims")
	}

	roleID, err := claimString(claimsMap, "role_id")
	if err != nil {
		return nil, err
	}

	var isSuperAdmin bool
	switch value := claimsMap["isSuperAdmin"].(type) {
	case bool:
		isSuperAdmin = value
	case string:
		isSuperAdmin, _ = strconv.ParseBool(value)
	}

	return &Claims{
		UserID:       userID,
		Email:        email,
		CognitoID:    cognitoID,
		RoleID:       roleID,
		IsSuperAdmin: isSuperAdmin,
	}, nil
}

// claimString reads an optional claim that may arrive as a string or a JSON number
func claimString(claims map[string]interface{}, key string) (string, error) {
	value, exists := claims[key]
	if !exists || value == nil {
		return "", nil
	}
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatInt(int64(v), 10), nil
	default:
		return "", fmt.Errorf("%s has unexpected type", key)
	}
}

// ToJSON converts claims to JSON string for logging
func (c *Claims) ToJSON() string {
	data, _ := json.Marshal(c)
	return string(data)
}

// RequireSuperAdmin extracts the claims and rejects callers without the
// isSuperAdmin claim
func RequireSuperAdmin(request events.APIGatewayProxyRequest) (*Claims, error) {
	claims, err := ExtractClaimsFromRequest(request)
	if err != nil {
		return nil, apperrors.Unauthorized("Unauthorized: " + err.Error())
	}
	if !claims.IsSuperAdmin {
		return nil, apperrors.Forbidden("Forbidden: super admin access required")
	}
	return claims, nil
}
