package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-waitlist-api/internal/domain"
)

// IdentityRepo provides typed DynamoDB operations for the identities table.
// Each identity is paired with a guard row keyed "email#<email>" so that
// no two identities can share an address.
type IdentityRepo struct {
	client    API
	tableName string
}

func NewIdentityRepo(client API, tableName string) *IdentityRepo {
	return &IdentityRepo{client: client, tableName: tableName}
}

func (r *IdentityRepo) Create(ctx context.Context, i *domain.Identity) error {
	item, err := attributevalue.MarshalMap(i)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	cond := aws.String("attribute_not_exists(#pk)")
	names := map[string]string{"#pk": fieldIdentityID}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName: aws.String(r.tableName),
				Item: map[string]types.AttributeValue{
					fieldIdentityID: &types.AttributeValueMemberS{Value: emailGuardPrefix + i.Email},
					"owner_id":      &types.AttributeValueMemberS{Value: i.IdentityID},
				},
				ConditionExpression:      cond,
				ExpressionAttributeNames: names,
			}},
			{Put: &types.Put{
				TableName:                aws.String(r.tableName),
				Item:                     item,
				ConditionExpression:      cond,
				ExpressionAttributeNames: names,
			}},
		},
	})
	if cancelledAt(err, 0) || cancelledAt(err, 1) {
		return fmt.Errorf("identity already exists: %w", domain.ErrConflict)
	}
	return err
}

func (r *IdentityRepo) Get(ctx context.Context, identityID string) (*domain.Identity, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldIdentityID, identityID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("identity not found: %w", domain.ErrNotFound)
	}
	var i domain.Identity
	if err := attributevalue.UnmarshalMap(out.Item, &i); err != nil {
		return nil, err
	}
	return &i, nil
}

// GetByEmail resolves the guard row first; the email-index GSI is only
// eventually consistent and a fresh signup must be visible immediately.
func (r *IdentityRepo) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldIdentityID, emailGuardPrefix+email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	owner, ok := out.Item["owner_id"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("identity not found: %w", domain.ErrNotFound)
	}
	return r.Get(ctx, owner.Value)
}

// MarkSignedIn stamps last_sign_in_at and sets email_confirmed_at the first time.
func (r *IdentityRepo) MarkSignedIn(ctx context.Context, identityID string, at time.Time) error {
	ts, err := attributevalue.Marshal(at.UTC())
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldIdentityID, identityID),
		UpdateExpression:    aws.String("SET #ls = :t, #up = :t, #ec = if_not_exists(#ec, :t)"),
		ConditionExpression: aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": fieldIdentityID,
			"#ls": fieldLastSignInAt,
			"#up": fieldUpdatedAt,
			"#ec": fieldEmailConfirmedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{":t": ts},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("identity not found: %w", domain.ErrNotFound)
	}
	return err
}
