package dynamo

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jerif/verification-api/internal/domain"
)

// VerificationRepo provides typed DynamoDB operations for the append-only
// verification_results table.
type VerificationRepo struct {
	client    *dynamodb.Client
	tableName string
	campaigns *CampaignRepo
}

func NewVerificationRepo(client *dynamodb.Client, tableName string, campaigns *CampaignRepo) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName, campaigns: campaigns}
}

func (r *VerificationRepo) Create(ctx context.Context, v *domain.Verification) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": fieldID},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("verification %s exists: %w", v.ID, domain.ErrConflict)
	}
	return err
}

// List scans with the filter pushed down, then sorts newest-first and fills
// campaign titles.
func (r *VerificationRepo) List(ctx context.Context, f domain.VerificationFilter) ([]domain.Verification, error) {
	in := &dynamodb.ScanInput{TableName: aws.String(r.tableName)}
	if fe, ok := buildVerificationFilter(f); ok {
		in.FilterExpression = aws.String(fe.Expr)
		in.ExpressionAttributeNames = fe.Names
		in.ExpressionAttributeValues = fe.Values
	}

	out := make([]domain.Verification, 0)
	p := dynamodb.NewScanPaginator(r.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []domain.Verification
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal verifications: %w", err)
		}
		out = append(out, batch...)
	}
	if len(out) == 0 {
		return out, nil
	}

	titles, err := r.campaigns.titles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load campaign titles: %w", err)
	}
	for i := range out {
		out[i].CampaignTitle = titles[out[i].CampaignID]
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
