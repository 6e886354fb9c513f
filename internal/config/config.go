package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	DynamoTables DynamoTables
	S3BucketName string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string

	// OTP policy.
	OtpTTL          time.Duration // how long an emailed code stays valid
	AccessTTL       time.Duration // how long a verified grant admits the client
	RateWindow      time.Duration // trailing window for issuance counting
	RateMaxRequests int           // issuances per email per window

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	AllowedOrigins []string // CORS allow-list; the first entry is the primary origin
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	SharedLinkOtps string
	Materials      string
	Folders        string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		DynamoTables: DynamoTables{
			SharedLinkOtps: getEnv("DYNAMO_TABLE_SHARED_LINK_OTPS", "shared_link_otps"),
			Materials:      getEnv("DYNAMO_TABLE_MATERIALS", "materials"),
			Folders:        getEnv("DYNAMO_TABLE_FOLDERS", "folders"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "share-gate-materials"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),

		OtpTTL:          getEnvDuration("OTP_TTL_MINUTES", 5),
		AccessTTL:       getEnvDuration("ACCESS_TTL_MINUTES", 30),
		RateWindow:      getEnvDuration("OTP_RATE_WINDOW_MINUTES", 60),
		RateMaxRequests: getEnvInt("OTP_RATE_MAX_REQUESTS", 3),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "Materialedeling <noreply@materialedeling.dk>"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "https://materialedeling.dk,http://localhost:3000,http://localhost:5173"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallbackMinutes int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackMinutes)) * time.Minute
}
