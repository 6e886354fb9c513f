package http

import (
	"github.com/share-gate-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/share-gate-api/internal/infrastructure/jwt"
	s3infra "github.com/share-gate-api/internal/infrastructure/s3"
	"github.com/share-gate-api/internal/infrastructure/smtp"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	OtpRepo      *dynamo.OtpRepo
	MaterialRepo *dynamo.MaterialRepo
	FolderRepo   *dynamo.FolderRepo
	S3Store      *s3infra.Store
	Mailer       smtp.Mailer
	JWTProvider  *jwtinfra.Provider
}
