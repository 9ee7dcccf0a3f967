package config

import (
	"os"
	"strconv"
	"time"
)

// InviteEmailPolicy decides what happens when the invitation email fails
// after the user row was already created.
type InviteEmailPolicy string

const (
	// InvitePolicyContinue logs the failure and reports success; the
	// admin can resend the invitation later.
	InvitePolicyContinue InviteEmailPolicy = "continue"
	// InvitePolicyRollback deletes the just-created account and fails
	// the request.
	InvitePolicyRollback InviteEmailPolicy = "rollback"
)

type Config struct {
	DB     DBConfig
	MinIO  MinIOConfig
	JWT    JWTConfig
	Server ServerConfig
	SMTP   SMTPConfig
	FCM    FCMConfig
	Invite InviteConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	AdminEmail    string
	AdminPassword string
}

type MinIOConfig struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

type ServerConfig struct {
	Port        string
	FrontendURL string
	CORSOrigins string
}

type SMTPConfig struct {
	Host       string
	Port       string
	SenderName string
	From       string
	Password   string
}

type FCMConfig struct {
	CredentialsFile string
	BroadcastTopic  string
}

type InviteConfig struct {
	TokenTTL    time.Duration
	EmailPolicy InviteEmailPolicy
}

func Load() *Config {
	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "parolevive"),
			Password: getEnv("DB_PASSWORD", "parolevive_secret"),
			Name:     getEnv("DB_NAME", "parolevive"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			AdminEmail:    getEnv("ADMIN_EMAIL", "admin@parolevive.local"),
			AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
		},
		MinIO: MinIOConfig{
			Endpoint:       getEnv("MINIO_ENDPOINT", "localhost:9000"),
			PublicEndpoint: getEnv("MINIO_PUBLIC_ENDPOINT", getEnv("MINIO_ENDPOINT", "localhost:9000")),
			AccessKey:      getEnv("MINIO_ACCESS_KEY", "parolevive"),
			SecretKey:      getEnv("MINIO_SECRET_KEY", "parolevive_secret"),
			Bucket:         getEnv("MINIO_BUCKET", "parolevive-media"),
			UseSSL:         getEnvAsBool("MINIO_USE_SSL", false),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3001"),
			CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3001,http://127.0.0.1:3001"),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:       getEnv("SMTP_PORT", "587"),
			SenderName: getEnv("SMTP_SENDER_NAME", "Parole Vive"),
			From:       getEnv("SMTP_FROM", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
		},
		FCM: FCMConfig{
			CredentialsFile: getEnv("FCM_CREDENTIALS_FILE", ""),
			BroadcastTopic:  getEnv("FCM_BROADCAST_TOPIC", "all_users"),
		},
		Invite: InviteConfig{
			TokenTTL:    getEnvAsDuration("INVITE_TOKEN_TTL", 168*time.Hour),
			EmailPolicy: inviteEmailPolicy(getEnv("INVITE_EMAIL_FAILURE_POLICY", string(InvitePolicyContinue))),
		},
	}
}

func inviteEmailPolicy(value string) InviteEmailPolicy {
	if InviteEmailPolicy(value) == InvitePolicyRollback {
		return InvitePolicyRollback
	}
	return InvitePolicyContinue
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
