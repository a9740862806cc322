package clients

import (
	"ticketing/lib/constants"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
)

// NewCognitoClient builds the Cognito user pool admin client.
func NewCognitoClient(isLocal bool) *cognitoidentityprovider.Client {
	cfg := loadAWSConfig()

	return cognitoidentityprovider.NewFromConfig(cfg, func(o *cognitoidentityprovider.Options) {
		if isLocal {
			o.BaseEndpoint = aws.String(constants.LOCALSTACK_ENDPOINT)
		}
	})
}
