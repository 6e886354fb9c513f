package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/share-gate-api/internal/domain"
)

// FolderRepo reads the folders table.
type FolderRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewFolderRepo(client *dynamodb.Client, tableName string) *FolderRepo {
	return &FolderRepo{client: client, tableName: tableName}
}

func (r *FolderRepo) Get(ctx context.Context, folderID string) (*domain.Folder, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("folder_id", folderID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("folder not found: %w", domain.ErrNotFound)
	}
	var f domain.Folder
	if err := attributevalue.UnmarshalMap(out.Item, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
