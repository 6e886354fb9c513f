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
	"github.com/share-gate-api/internal/domain"
)

// OtpRepo provides typed DynamoDB operations for the shared_link_otps table.
// PK: otp_id. GSI email-created_at-index: hash email, range created_at.
type OtpRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewOtpRepo(client *dynamodb.Client, tableName string) *OtpRepo {
	return &OtpRepo{client: client, tableName: tableName}
}

func (r *OtpRepo) Put(ctx context.Context, rec *domain.OtpRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// InvalidateOutstanding deletes every unused record for the
// (email, shareType, shareID) tuple. Idempotent; must run before Put for the
// same tuple so at most one unused code exists at a time.
func (r *OtpRepo) InvalidateOutstanding(ctx context.Context, email string, shareType domain.ShareType, shareID string) error {
	recs, err := r.queryByEmail(ctx, email, shareType, shareID, "")
	if err != nil {
		return err
	}
	for _, rec := range recs {
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       strKey("otp_id", rec.OtpID),
		})
		if err != nil {
			return fmt.Errorf("delete outstanding otp %s: %w", rec.OtpID, err)
		}
	}
	return nil
}

// FindActive returns the unused record matching all four fields exactly,
// or domain.ErrNotFound.
func (r *OtpRepo) FindActive(ctx context.Context, email string, shareType domain.ShareType, shareID, code string) (*domain.OtpRecord, error) {
	recs, err := r.queryByEmail(ctx, email, shareType, shareID, code)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("active otp: %w", domain.ErrNotFound)
	}
	return &recs[0], nil
}

// MarkUsed flips used to true as a single conditional update. Exactly one
// concurrent caller can observe the condition holding; the losers get
// domain.ErrNotFound, same as a record that never existed.
func (r *OtpRepo) MarkUsed(ctx context.Context, otpID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("otp_id", otpID),
		UpdateExpression:    aws.String("SET used = :t"),
		ConditionExpression: aws.String("used = :f"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": boolVal(true),
			":f": boolVal(false),
		},
	})
	if err != nil {
		var ccfe *types.ConditionalCheckFailedException
		if errors.As(err, &ccfe) {
			return fmt.Errorf("otp already used: %w", domain.ErrNotFound)
		}
		return err
	}
	return nil
}

// CountCreatedSince counts records created for email at or after since,
// across all share tuples. Used by the issuance rate limiter.
func (r *OtpRepo) CountCreatedSince(ctx context.Context, email string, since time.Time) (int, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("email-created_at-index"),
		KeyConditionExpression: aws.String("email = :e AND created_at >= :since"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e":     strVal(email),
			":since": strVal(since.UTC().Format(time.RFC3339)),
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, err
	}
	return int(out.Count), nil
}

// queryByEmail queries the email GSI and filters for unused records matching
// the share tuple, and optionally a specific code.
func (r *OtpRepo) queryByEmail(ctx context.Context, email string, shareType domain.ShareType, shareID, code string) ([]domain.OtpRecord, error) {
	filter := "share_type = :st AND share_id = :sid AND used = :f"
	values := map[string]types.AttributeValue{
		":e":   strVal(email),
		":st":  strVal(string(shareType)),
		":sid": strVal(shareID),
		":f":   boolVal(false),
	}
	if code != "" {
		filter += " AND otp_code = :code"
		values[":code"] = strVal(code)
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("email-created_at-index"),
		KeyConditionExpression:    aws.String("email = :e"),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return nil, fmt.Errorf("query otps for %s: %w", email, err)
	}

	var recs []domain.OtpRecord
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &recs); err != nil {
		return nil, fmt.Errorf("unmarshal otp records: %w", err)
	}
	return recs, nil
}
