package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDynamo   = "dynamo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	SiteURL        string   // public origin used in action links and redirects
	AllowedOrigins []string // CORS allowed origins

	StoreDriver string
	DatabaseURL string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTPrivateKeyPath  string
	JWTPublicKeyPath   string
	JWTExpiry          time.Duration
	RefreshTokenExpiry time.Duration

	ActionLinkTTL  time.Duration
	OTPTTL         time.Duration
	VerifyOnRedeem bool

	MailFrom     string
	ResendAPIKey string
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string

	RedisURL          string
	RedisPassword     string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitTimeout  time.Duration

	CheckEmailDomain bool
	DNSTimeout       time.Duration

	SNSTopicARN string

	S3BucketName                string
	LeaderboardSnapshotInterval time.Duration
	LeaderboardSize             int

	WaitWindow   time.Duration
	PollInterval time.Duration
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Entrants      string
	RefCodes      string
	Identities    string
	Sessions      string
	Verifications string
	Subscribers   string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		SiteURL:        strings.TrimRight(getEnv("SITE_URL", "http://localhost:3000"), "/"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		StoreDriver: getEnv("STORE_DRIVER", StoreDynamo),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Entrants:      getEnv("DYNAMO_TABLE_ENTRANTS", "waitlist"),
			RefCodes:      getEnv("DYNAMO_TABLE_REF_CODES", "waitlist_ref_codes"),
			Identities:    getEnv("DYNAMO_TABLE_IDENTITIES", "identities"),
			Sessions:      getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			Verifications: getEnv("DYNAMO_TABLE_VERIFICATIONS", "verifications"),
			Subscribers:   getEnv("DYNAMO_TABLE_SUBSCRIBERS", "newsletter_subscribers"),
		},

		JWTPrivateKeyPath:  getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:   getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:          getEnvDuration("JWT_EXPIRY", time.Hour),
		RefreshTokenExpiry: getEnvDuration("REFRESH_TOKEN_EXPIRY", 30*24*time.Hour),

		ActionLinkTTL:  getEnvDuration("ACTION_LINK_TTL", 10*time.Minute),
		OTPTTL:         getEnvDuration("OTP_TTL", 5*time.Minute),
		VerifyOnRedeem: getEnvBool("VERIFY_ON_REDEEM", false),

		MailFrom:     getEnv("MAIL_FROM", "BaseRise Confirmation <verify@baserise.online>"),
		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		RedisURL:          getEnv("REDIS_URL", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 3),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", 60*time.Second),
		RateLimitTimeout:  getEnvDuration("RATE_LIMIT_TIMEOUT", 3*time.Second),

		CheckEmailDomain: getEnvBool("CHECK_EMAIL_DOMAIN", false),
		DNSTimeout:       getEnvDuration("DNS_TIMEOUT", 5*time.Second),

		SNSTopicARN: getEnv("SNS_TOPIC_ARN", ""),

		S3BucketName:                getEnv("S3_BUCKET_NAME", ""),
		LeaderboardSnapshotInterval: getEnvDuration("LEADERBOARD_SNAPSHOT_INTERVAL", 0),
		LeaderboardSize:             getEnvInt("LEADERBOARD_SIZE", 100),

		WaitWindow:   getEnvDuration("WAIT_WINDOW", 10*time.Minute),
		PollInterval: getEnvDuration("POLL_INTERVAL", 3*time.Second),
	}
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
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

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s", "10m"); a bare integer is read as seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
