package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jerif/verification-api/internal/domain"
)

// SessionRepo provides typed DynamoDB operations for the verification_sessions table.
// Reads join the owning campaign through campaigns.
type SessionRepo struct {
	client    *dynamodb.Client
	tableName string
	campaigns *CampaignRepo
}

func NewSessionRepo(client *dynamodb.Client, tableName string, campaigns *CampaignRepo) *SessionRepo {
	return &SessionRepo{client: client, tableName: tableName, campaigns: campaigns}
}

func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	if _, err := r.campaigns.Get(ctx, s.CampaignID); err != nil {
		return fmt.Errorf("campaign %s: %w", s.CampaignID, err)
	}
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#vid)"),
		ExpressionAttributeNames: map[string]string{"#vid": fieldVerificationID},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("session %s exists: %w", s.VerificationID, domain.ErrConflict)
	}
	return err
}

func (r *SessionRepo) get(ctx context.Context, verificationID string) (*domain.Session, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldVerificationID, verificationID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	var s domain.Session
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepo) Get(ctx context.Context, verificationID string) (*domain.Session, error) {
	s, err := r.get(ctx, verificationID)
	if err != nil {
		return nil, err
	}
	c, err := r.campaigns.Get(ctx, s.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("campaign %s of session %s: %w", s.CampaignID, verificationID, err)
	}
	s.Campaign = c
	return s, nil
}

// UpdateStatus moves the session to status. The write is conditional on the
// current status differing, so concurrent USED transitions apply once.
func (r *SessionRepo) UpdateStatus(ctx context.Context, verificationID string, status domain.SessionStatus, at time.Time) error {
	updates := map[string]any{fieldStatus: string(status)}
	if status == domain.SessionUsed {
		updates[fieldUsedAt] = at.UTC()
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ue.Names["#vid"] = fieldVerificationID
	ue.Names["#cur"] = fieldStatus
	ue.Values[":cur"] = &types.AttributeValueMemberS{Value: string(status)}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldVerificationID, verificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#vid) AND #cur <> :cur"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if !isConditionFailed(err) {
		return err
	}
	// Either missing or already in status; only the former is an error.
	if _, gerr := r.get(ctx, verificationID); gerr != nil {
		return gerr
	}
	return nil
}
