// internal/common/aws/clients.go
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// NewClients builds the SES and SNS clients for the notification backend.
func NewClients(ctx context.Context, region string) (*ses.Client, *sns.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, nil, err
	}
	return ses.NewFromConfig(cfg), sns.NewFromConfig(cfg), nil
}
