package domain

import "time"

// ShareType discriminates what a share link points at.
type ShareType string

const (
	ShareTypeFile   ShareType = "file"
	ShareTypeFolder ShareType = "folder"
)

func (t ShareType) Valid() bool {
	return t == ShareTypeFile || t == ShareTypeFolder
}

// OtpRecord is one issued access code for a share tuple.
// PK: otp_id. GSI email-created_at-index: hash email, range created_at.
// CreatedAt is RFC3339 so lexicographic range conditions order chronologically.
// TTL is the DynamoDB collection timestamp; it lies well past ExpiresAt so the
// issuance rate window never loses rows to cleanup.
type OtpRecord struct {
	OtpID     string    `json:"id" dynamodbav:"otp_id"`
	Email     string    `json:"email" dynamodbav:"email"`
	ShareType ShareType `json:"share_type" dynamodbav:"share_type"`
	ShareID   string    `json:"share_id" dynamodbav:"share_id"`
	Code      string    `json:"-" dynamodbav:"otp_code"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"` // Unix seconds
	Used      bool      `json:"used" dynamodbav:"used"`
	CreatedAt string    `json:"created_at" dynamodbav:"created_at"` // RFC3339
	TTL       int64     `json:"-" dynamodbav:"ttl"`                 // Unix seconds
}

// Expired reports whether the code's validity window has passed at now.
func (r *OtpRecord) Expired(now time.Time) bool {
	return now.Unix() >= r.ExpiresAt
}

// AccessGrant is the result of a successful verification: a signed token the
// client presents when fetching the shared resource.
type AccessGrant struct {
	AccessToken string    `json:"access_token"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at"`
}
