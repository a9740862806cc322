package clients

import (
	"context"
	"ticketing/lib/constants"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// NewSSMClient builds the Parameter Store client; local runs talk to LocalStack.
func NewSSMClient(isLocal bool) *ssm.Client {
	cfg := loadAWSConfig()

	if isLocal {
		cfg.BaseEndpoint = aws.String(constants.LOCALSTACK_ENDPOINT)
	}

	return ssm.NewFromConfig(cfg)
}

func loadAWSConfig() aws.Config {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(constants.AWS_REGION),
	)
	if err != nil {
		panic("failed to load AWS configuration: " + err.Error())
	}
	return cfg
}
