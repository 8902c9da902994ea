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

// SubscriberRepo provides typed DynamoDB operations for newsletter subscribers.
type SubscriberRepo struct {
	client    API
	tableName string
}

func NewSubscriberRepo(client API, tableName string) *SubscriberRepo {
	return &SubscriberRepo{client: client, tableName: tableName}
}

func (r *SubscriberRepo) Get(ctx context.Context, email string) (*domain.Subscriber, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldEmail, email),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("subscriber not found: %w", domain.ErrNotFound)
	}
	var s domain.Subscriber
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert writes is_active and updated_at, keeping the first created_at.
func (r *SubscriberRepo) Upsert(ctx context.Context, s *domain.Subscriber) error {
	created, err := attributevalue.Marshal(s.CreatedAt.UTC())
	if err != nil {
		return err
	}
	updated, err := attributevalue.Marshal(s.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey(fieldEmail, s.Email),
		UpdateExpression: aws.String("SET #a = :a, #u = :u, #c = if_not_exists(#c, :c)"),
		ExpressionAttributeNames: map[string]string{
			"#a": fieldIsActive,
			"#u": fieldUpdatedAt,
			"#c": fieldCreatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":a": &types.AttributeValueMemberBOOL{Value: s.IsActive},
			":u": updated,
			":c": created,
		},
	})
	return err
}

// Deactivate clears is_active. Unknown emails are ignored.
func (r *SubscriberRepo) Deactivate(ctx context.Context, email string) error {
	now, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldEmail, email),
		UpdateExpression:    aws.String("SET #a = :f, #u = :u"),
		ConditionExpression: aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": fieldEmail,
			"#a":  fieldIsActive,
			"#u":  fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":f": &types.AttributeValueMemberBOOL{Value: false},
			":u": now,
		},
	})
	if isConditionFailed(err) {
		return nil
	}
	return err
}
