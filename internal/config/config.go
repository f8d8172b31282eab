package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	QBO    QBOConfig
	Copy   CopyConfig
	S3     S3Config
	Email  EmailConfig
	Log    LogConfig
	CORS   CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// QBOConfig holds the remote accounting platform credentials and endpoints.
type QBOConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	PublicURL    string `mapstructure:"public_url"`
	APIBaseURL   string `mapstructure:"api_base_url"`
	StateSecret  string `mapstructure:"state_secret"`
}

// CopyConfig holds attachment copy run settings.
type CopyConfig struct {
	ReportEmail string `mapstructure:"report_email"`
}

// S3Config holds the export-archive object store settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// EmailConfig holds email delivery settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the QBRIDGE_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "development")

	// Remote platform defaults
	v.SetDefault("qbo.client_id", "")
	v.SetDefault("qbo.client_secret", "")
	v.SetDefault("qbo.public_url", "")
	v.SetDefault("qbo.api_base_url", "https://quickbooks.api.intuit.com")
	v.SetDefault("qbo.state_secret", "change-me-in-production")

	// Copy run defaults
	v.SetDefault("copy.report_email", "")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.presign_expiry", 3600)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "ap-south-1")
	v.SetDefault("email.from_address", "noreply@qbridge.local")
	v.SetDefault("email.from_name", "QBridge")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":          "QBRIDGE_SERVER_PORT",
		"server.read_timeout":  "QBRIDGE_SERVER_READ_TIMEOUT",
		"server.write_timeout": "QBRIDGE_SERVER_WRITE_TIMEOUT",
		"server.environment":   "QBRIDGE_SERVER_ENVIRONMENT",
		"qbo.client_id":        "QBRIDGE_QBO_CLIENT_ID",
		"qbo.client_secret":    "QBRIDGE_QBO_CLIENT_SECRET",
		"qbo.public_url":       "QBRIDGE_QBO_PUBLIC_URL",
		"qbo.api_base_url":     "QBRIDGE_QBO_API_BASE_URL",
		"qbo.state_secret":     "QBRIDGE_QBO_STATE_SECRET",
		"copy.report_email":    "QBRIDGE_COPY_REPORT_EMAIL",
		"s3.region":            "QBRIDGE_S3_REGION",
		"s3.bucket":            "QBRIDGE_S3_BUCKET",
		"s3.endpoint":          "QBRIDGE_S3_ENDPOINT",
		"s3.access_key":        "QBRIDGE_S3_ACCESS_KEY",
		"s3.secret_key":        "QBRIDGE_S3_SECRET_KEY",
		"s3.presign_expiry":    "QBRIDGE_S3_PRESIGN_EXPIRY",
		"email.provider":       "QBRIDGE_EMAIL_PROVIDER",
		"email.region":         "QBRIDGE_EMAIL_REGION",
		"email.from_address":   "QBRIDGE_EMAIL_FROM_ADDRESS",
		"email.from_name":      "QBRIDGE_EMAIL_FROM_NAME",
		"log.level":            "QBRIDGE_LOG_LEVEL",
		"log.format":           "QBRIDGE_LOG_FORMAT",
		"cors.allowed_origins": "QBRIDGE_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if QBRIDGE_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("QBRIDGE_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.QBO = QBOConfig{
		ClientID:     v.GetString("qbo.client_id"),
		ClientSecret: v.GetString("qbo.client_secret"),
		PublicURL:    strings.TrimRight(v.GetString("qbo.public_url"), "/"),
		APIBaseURL:   v.GetString("qbo.api_base_url"),
		StateSecret:  v.GetString("qbo.state_secret"),
	}
	cfg.Copy = CopyConfig{
		ReportEmail: v.GetString("copy.report_email"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	return cfg, nil
}
