package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/share-gate-api/internal/domain"
)

// MaterialRepo reads the materials table. The share gate never writes it;
// upload and organisation belong to the main application.
type MaterialRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewMaterialRepo(client *dynamodb.Client, tableName string) *MaterialRepo {
	return &MaterialRepo{client: client, tableName: tableName}
}

func (r *MaterialRepo) Get(ctx context.Context, materialID string) (*domain.Material, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("material_id", materialID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("material not found: %w", domain.ErrNotFound)
	}
	var m domain.Material
	if err := attributevalue.UnmarshalMap(out.Item, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListPublicByFolder queries the folder_id GSI and filters for public materials.
func (r *MaterialRepo) ListPublicByFolder(ctx context.Context, folderID string) ([]domain.Material, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("folder_id-index"),
		KeyConditionExpression: aws.String("folder_id = :fid"),
		FilterExpression:       aws.String("is_public = :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":fid": strVal(folderID),
			":t":   boolVal(true),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query materials for folder %s: %w", folderID, err)
	}
	var ms []domain.Material
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &ms); err != nil {
		return nil, err
	}
	return ms, nil
}
