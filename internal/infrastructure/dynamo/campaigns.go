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

// CampaignRepo provides typed DynamoDB operations for the campaigns table.
type CampaignRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewCampaignRepo(client *dynamodb.Client, tableName string) *CampaignRepo {
	return &CampaignRepo{client: client, tableName: tableName}
}

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal campaign: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": fieldID},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("campaign %s exists: %w", c.ID, domain.ErrConflict)
	}
	return err
}

func (r *CampaignRepo) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldID, id),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("campaign not found: %w", domain.ErrNotFound)
	}
	var c domain.Campaign
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal campaign: %w", err)
	}
	return &c, nil
}

// List scans the whole table. Campaign counts are small.
func (r *CampaignRepo) List(ctx context.Context) ([]domain.Campaign, error) {
	out := make([]domain.Campaign, 0)
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []domain.Campaign
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal campaigns: %w", err)
		}
		out = append(out, batch...)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// titles returns campaign titles keyed by id.
func (r *CampaignRepo) titles(ctx context.Context) (map[string]string, error) {
	cs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(cs))
	for _, c := range cs {
		m[c.ID] = c.Title
	}
	return m, nil
}
