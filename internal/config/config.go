package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// BotConfig holds Telegram Bot API settings.
type BotConfig struct {
	Token             string
	APIURL            string
	PollTimeout       time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	// SendRate is the maximum number of outbound Bot API calls per second.
	SendRate float64
}

// StorageConfig holds the taxonomy store settings.
type StorageConfig struct {
	Root string
	// TaxonomyFile overrides the embedded taxonomy definition when set.
	TaxonomyFile string
}

// LedgerConfig selects where download counters are persisted.
type LedgerConfig struct {
	Backend string // "json" or "postgres"
	Path    string
}

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for the upload mirror.
// The mirror is disabled when Endpoint is empty.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether an object storage mirror is configured.
func (c MinIOConfig) Enabled() bool {
	return c.Endpoint != ""
}

// InferenceConfig holds settings for the AI chat mode.
type InferenceConfig struct {
	Provider     string // "openai" or "echo"
	Endpoint     string
	APIKey       string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Timeout      time.Duration
}

// LogConfig holds process and error log settings.
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
	Dir    string
}

// HTTPConfig holds the ops API settings.
type HTTPConfig struct {
	Enabled bool
	Port    string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	TimeZone  string
	Bot       BotConfig
	Storage   StorageConfig
	Ledger    LedgerConfig
	Database  DatabaseConfig
	MinIO     MinIOConfig
	Inference InferenceConfig
	Log       LogConfig
	HTTP      HTTPConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		TimeZone: getEnv("TZ_NAME", "UTC"),
		Bot: BotConfig{
			Token:             getEnv("BOT_TOKEN", ""),
			APIURL:            getEnv("BOT_API_URL", "https://api.telegram.org"),
			PollTimeout:       getEnvDuration("BOT_POLL_TIMEOUT", 30*time.Second),
			ReconnectAttempts: getEnvInt("BOT_RECONNECT_ATTEMPTS", 5),
			ReconnectDelay:    getEnvDuration("BOT_RECONNECT_DELAY", 5*time.Second),
			SendRate:          getEnvFloat("BOT_SEND_RATE", 25),
		},
		Storage: StorageConfig{
			Root:         getEnv("STORAGE_ROOT", "uploads"),
			TaxonomyFile: getEnv("STORAGE_TAXONOMY_FILE", ""),
		},
		Ledger: LedgerConfig{
			Backend: strings.ToLower(getEnv("LEDGER_BACKEND", "json")),
			Path:    getEnv("LEDGER_PATH", "download_stats.json"),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Inference: InferenceConfig{
			Provider:     strings.ToLower(getEnv("INFERENCE_PROVIDER", "echo")),
			Endpoint:     getEnv("INFERENCE_ENDPOINT", ""),
			APIKey:       getEnv("INFERENCE_API_KEY", ""),
			Model:        getEnv("INFERENCE_MODEL", "gpt-4o-mini"),
			SystemPrompt: getEnv("INFERENCE_SYSTEM_PROMPT", "You are a helpful assistant. Answer concisely."),
			MaxTokens:    getEnvInt("INFERENCE_MAX_TOKENS", 512),
			Timeout:      getEnvDuration("INFERENCE_TIMEOUT", 2*time.Minute),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
			Dir:    getEnv("LOG_DIR", "logs"),
		},
		HTTP: HTTPConfig{
			Enabled: getEnvBool("HTTP_ENABLED", true),
			Port:    getEnv("PORT", "8080"),
		},
	}
}

// Validate checks the settings required to run the bot.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Bot.Token == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	if c.Storage.Root == "" {
		errs = append(errs, errors.New("STORAGE_ROOT must not be empty"))
	}
	switch c.Ledger.Backend {
	case "json":
		if c.Ledger.Path == "" {
			errs = append(errs, errors.New("LEDGER_PATH is required for the json ledger"))
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
			errs = append(errs, errors.New("DB_HOST, DB_USER and DB_NAME are required for the postgres ledger"))
		}
	default:
		errs = append(errs, errors.New("LEDGER_BACKEND must be json or postgres"))
	}
	if c.Bot.ReconnectAttempts < 0 {
		errs = append(errs, errors.New("BOT_RECONNECT_ATTEMPTS must not be negative"))
	}
	return errors.Join(errs...)
}

// Location resolves TimeZone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
