package domain

import "time"

// Material is a shared teaching material backed by an S3 object.
// Only public materials are visible through share links.
type Material struct {
	MaterialID  string    `json:"id" dynamodbav:"material_id"`
	Title       string    `json:"title" dynamodbav:"title"`
	FolderID    *string   `json:"folder_id" dynamodbav:"folder_id"`
	FileKey     string    `json:"-" dynamodbav:"file_key"`
	ContentType string    `json:"content_type" dynamodbav:"content_type"`
	IsPublic    bool      `json:"is_public" dynamodbav:"is_public"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"created_at"`
}

// Folder groups materials for folder-level shares.
type Folder struct {
	FolderID  string    `json:"id" dynamodbav:"folder_id"`
	Name      string    `json:"name" dynamodbav:"name"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}
