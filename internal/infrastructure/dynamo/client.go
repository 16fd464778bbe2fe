package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jerif/verification-api/internal/config"
	"github.com/jerif/verification-api/internal/domain"
)

// NewClient creates a DynamoDB client. When cfg.EndpointURL is set (LocalStack,
// dynamodb-local), it overrides the endpoint so all traffic goes to the local instance.
func NewClient(ctx context.Context, cfg config.AWSConfig) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var clientOpts []func(*dynamodb.Options)
	if cfg.EndpointURL != "" {
		clientOpts = append(clientOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		})
	}

	return dynamodb.NewFromConfig(awsCfg, clientOpts...), nil
}

// Repositories builds the domain repositories over one client.
func Repositories(client *dynamodb.Client, tables config.DynamoTables) domain.Repositories {
	campaigns := NewCampaignRepo(client, tables.Campaigns)
	return domain.Repositories{
		Campaigns:     campaigns,
		Sessions:      NewSessionRepo(client, tables.Sessions, campaigns),
		Verifications: NewVerificationRepo(client, tables.Verifications, campaigns),
		Audit:         NewAuditRepo(client, tables.AuditLogs),
	}
}
