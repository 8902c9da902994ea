package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-waitlist-api/internal/domain"
)

// EntrantRepo provides typed DynamoDB operations for the waitlist table.
// Email uniqueness comes from the primary key; ref_code uniqueness from a
// guard row in refCodeTable written in the same transaction.
type EntrantRepo struct {
	client       API
	tableName    string
	refCodeTable string
}

func NewEntrantRepo(client API, tableName, refCodeTable string) *EntrantRepo {
	return &EntrantRepo{client: client, tableName: tableName, refCodeTable: refCodeTable}
}

func (r *EntrantRepo) GetByEmail(ctx context.Context, email string) (*domain.Entrant, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldEmail, email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("entrant not found: %w", domain.ErrNotFound)
	}
	var e domain.Entrant
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts the entrant and its ref_code guard atomically.
func (r *EntrantRepo) Create(ctx context.Context, e *domain.Entrant) error {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal entrant: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(#pk)"),
				ExpressionAttributeNames: map[string]string{
					"#pk": fieldEmail,
				},
			}},
			{Put: &types.Put{
				TableName: aws.String(r.refCodeTable),
				Item: map[string]types.AttributeValue{
					fieldRefCode: &types.AttributeValueMemberS{Value: e.RefCode},
					fieldEmail:   &types.AttributeValueMemberS{Value: e.Email},
				},
				ConditionExpression: aws.String("attribute_not_exists(#pk)"),
				ExpressionAttributeNames: map[string]string{
					"#pk": fieldRefCode,
				},
			}},
		},
	})
	switch {
	case err == nil:
		return nil
	case cancelledAt(err, 0):
		return fmt.Errorf("email already on waitlist: %w", domain.ErrConflict)
	case cancelledAt(err, 1):
		return domain.ErrRefCodeTaken
	default:
		return err
	}
}

// MarkVerified flips is_verified false->true with a conditional write.
// It reports false when the entrant was already verified.
func (r *EntrantRepo) MarkVerified(ctx context.Context, email, userID string, at time.Time) (bool, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldIsVerified: true,
		fieldVerifiedAt: at.UTC(),
		fieldUserID:     userID,
	})
	if err != nil {
		return false, err
	}
	ue.Names["#v"] = fieldIsVerified
	ue.Names["#pk"] = fieldEmail
	ue.Values[":unverified"] = &types.AttributeValueMemberBOOL{Value: false}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.tableName),
		Key:                                 strKey(fieldEmail, email),
		UpdateExpression:                    aws.String(ue.Expr),
		ConditionExpression:                 aws.String("attribute_exists(#pk) AND #v = :unverified"),
		ExpressionAttributeNames:            ue.Names,
		ExpressionAttributeValues:           ue.Values,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err == nil {
		return true, nil
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		if ccf.Item == nil {
			return false, fmt.Errorf("entrant not found: %w", domain.ErrNotFound)
		}
		return false, nil
	}
	return false, err
}

// CountReferrals counts rows whose referred_by equals refCode via the sparse GSI.
func (r *EntrantRepo) CountReferrals(ctx context.Context, refCode string) (int, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("referred_by-index"),
		KeyConditionExpression:    aws.String("#rb = :code"),
		ExpressionAttributeNames:  map[string]string{"#rb": fieldReferredBy},
		ExpressionAttributeValues: map[string]types.AttributeValue{":code": &types.AttributeValueMemberS{Value: refCode}},
		Select:                    types.SelectCount,
	})
	total := 0
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		total += int(page.Count)
	}
	return total, nil
}

// CountVerifiedBefore counts verified entrants created strictly before t.
// created_at is stored as RFC3339 text, so the comparison happens after
// unmarshalling rather than in a filter expression.
func (r *EntrantRepo) CountVerifiedBefore(ctx context.Context, t time.Time) (int, error) {
	verified, err := r.ListVerified(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range verified {
		if e.CreatedAt.Before(t) {
			n++
		}
	}
	return n, nil
}

func (r *EntrantRepo) ListVerified(ctx context.Context) ([]domain.Entrant, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String("#v = :t"),
		ExpressionAttributeNames:  map[string]string{"#v": fieldIsVerified},
		ExpressionAttributeValues: map[string]types.AttributeValue{":t": &types.AttributeValueMemberBOOL{Value: true}},
	})
	var out []domain.Entrant
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []domain.Entrant
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

// ReferralTally returns referral counts keyed by the referrer's ref_code.
func (r *EntrantRepo) ReferralTally(ctx context.Context) (map[string]int, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String("referred_by-index"),
		ProjectionExpression:     aws.String("#rb"),
		ExpressionAttributeNames: map[string]string{"#rb": fieldReferredBy},
	})
	tally := make(map[string]int)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if v, ok := item[fieldReferredBy].(*types.AttributeValueMemberS); ok && v.Value != "" {
				tally[v.Value]++
			}
		}
	}
	return tally, nil
}
