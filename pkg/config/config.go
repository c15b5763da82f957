package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultLegacyThreshold is the posting date up to which eligibility waives
// the percentage, passout year and department gates.
const DefaultLegacyThreshold = "2025-07-12"

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Placement     PlacementConfig
	Notifications NotificationConfig
	SMTP          SMTPConfig
	WhatsApp      WhatsAppConfig
	Storage       StorageConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PlacementConfig tunes the eligibility and workflow engine.
type PlacementConfig struct {
	LegacyThreshold    time.Time
	RequestTimeout     time.Duration
	ProjectionCacheTTL time.Duration
	AdminUserTypes     []string
}

// NotificationConfig controls the fan-out worker pool and channels.
type NotificationConfig struct {
	Enabled         bool
	Workers         int
	BufferSize      int
	MaxRetries      int
	RetryDelay      time.Duration
	EmailEnabled    bool
	WhatsAppEnabled bool
	LedgerTTL       time.Duration
}

// SMTPConfig describes the outbound mail relay.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
}

// WhatsAppConfig describes the WhatsApp business messaging endpoint.
type WhatsAppConfig struct {
	BaseURL       string
	Token         string
	PhoneNumberID string
	Language      string
	Timeout       time.Duration
}

// StorageConfig configures the object store used for resumes and offer letters.
type StorageConfig struct {
	BaseDir          string
	PublicBaseURL    string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	threshold, err := ParseDate(v.GetString("LEGACY_THRESHOLD_DATE"))
	if err != nil {
		return nil, err
	}
	cfg.Placement = PlacementConfig{
		LegacyThreshold:    threshold,
		RequestTimeout:     parseDuration(v.GetString("REQUEST_TIMEOUT"), 10*time.Second),
		ProjectionCacheTTL: parseDuration(v.GetString("PROJECTION_CACHE_TTL"), time.Minute),
		AdminUserTypes:     splitAndTrim(v.GetString("ADMIN_USER_TYPES")),
	}

	cfg.Notifications = NotificationConfig{
		Enabled:         v.GetBool("ENABLE_NOTIFICATIONS"),
		Workers:         v.GetInt("NOTIFY_WORKERS"),
		BufferSize:      v.GetInt("NOTIFY_BUFFER_SIZE"),
		MaxRetries:      v.GetInt("NOTIFY_MAX_RETRIES"),
		RetryDelay:      parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), 2*time.Second),
		EmailEnabled:    v.GetBool("NOTIFY_EMAIL"),
		WhatsAppEnabled: v.GetBool("NOTIFY_WHATSAPP"),
		LedgerTTL:       parseDuration(v.GetString("NOTIFY_LEDGER_TTL"), 72*time.Hour),
	}

	cfg.SMTP = SMTPConfig{
		Host:      v.GetString("SMTP_HOST"),
		Port:      v.GetInt("SMTP_PORT"),
		Username:  v.GetString("SMTP_USERNAME"),
		Password:  v.GetString("SMTP_PASSWORD"),
		FromName:  v.GetString("SMTP_FROM_NAME"),
		FromEmail: v.GetString("SMTP_FROM_EMAIL"),
	}

	cfg.WhatsApp = WhatsAppConfig{
		BaseURL:       v.GetString("WHATSAPP_BASE_URL"),
		Token:         v.GetString("WHATSAPP_TOKEN"),
		PhoneNumberID: v.GetString("WHATSAPP_PHONE_NUMBER_ID"),
		Language:      v.GetString("WHATSAPP_LANGUAGE"),
		Timeout:       parseDuration(v.GetString("WHATSAPP_TIMEOUT"), 10*time.Second),
	}

	maxFileSize := v.GetInt64("STORAGE_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 5 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		BaseDir:          v.GetString("STORAGE_DIR"),
		PublicBaseURL:    v.GetString("STORAGE_PUBLIC_BASE_URL"),
		SignedURLSecret:  v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), 7*24*time.Hour),
		MaxFileSizeBytes: maxFileSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("STORAGE_ALLOWED_MIME_TYPES")),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "placement")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("LEGACY_THRESHOLD_DATE", DefaultLegacyThreshold)
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("PROJECTION_CACHE_TTL", "1m")
	v.SetDefault("ADMIN_USER_TYPES", "admin,superadmin,bde")

	v.SetDefault("ENABLE_NOTIFICATIONS", true)
	v.SetDefault("NOTIFY_WORKERS", 4)
	v.SetDefault("NOTIFY_BUFFER_SIZE", 1024)
	v.SetDefault("NOTIFY_MAX_RETRIES", 3)
	v.SetDefault("NOTIFY_RETRY_DELAY", "2s")
	v.SetDefault("NOTIFY_EMAIL", true)
	v.SetDefault("NOTIFY_WHATSAPP", true)
	v.SetDefault("NOTIFY_LEDGER_TTL", "72h")

	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM_NAME", "Placement Cell")
	v.SetDefault("SMTP_FROM_EMAIL", "placements@localhost")

	v.SetDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com/v19.0")
	v.SetDefault("WHATSAPP_TOKEN", "")
	v.SetDefault("WHATSAPP_PHONE_NUMBER_ID", "")
	v.SetDefault("WHATSAPP_LANGUAGE", "en")
	v.SetDefault("WHATSAPP_TIMEOUT", "10s")

	v.SetDefault("STORAGE_DIR", "./storage")
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080/files")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "168h")
	v.SetDefault("STORAGE_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("STORAGE_ALLOWED_MIME_TYPES", "application/pdf,image/jpeg,image/png")
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(raw string) (time.Time, error) {
	if raw == "" {
		raw = DefaultLegacyThreshold
	}
	return time.ParseInLocation(time.DateOnly, raw, time.UTC)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// viper reports a missing explicit config file as a path error rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}
