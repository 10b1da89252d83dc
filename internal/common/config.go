package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-intake/constants"
)

// Config holds all application configuration
type Config struct {
	Database    DatabaseConfig
	Server      ServerConfig
	OCR         OCRConfig
	Decoder     DecoderConfig
	VATRegistry VATRegistryConfig
	Batch       BatchConfig
	Upload      UploadConfig
	Layouts     LayoutConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // "postgres" or "sqlite"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr   string
	GRPCAddr   string
	MaxUpload  int64
	PlainLogs  bool
	LogLevel   string
	AuditQueue int
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract   string
	Pdftoppm    string
	Pdftotext   string
	TessdataDir string
	DPI         int
	PSM         int
	OEM         int
	ScratchDir  string
}

// DecoderConfig configures the remote QR decode service.
type DecoderConfig struct {
	URL       string
	Timeout   time.Duration
	RatePerS  float64
	RateBurst int
}

// VATRegistryConfig configures company-name lookups.
type VATRegistryConfig struct {
	Enabled bool
	URL     string
	Timeout time.Duration
}

// BatchConfig holds staging lifecycle settings.
type BatchConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// UploadConfig holds the per-request execution budget.
type UploadConfig struct {
	Budget time.Duration
	Margin time.Duration
}

// LayoutConfig holds layout-selection settings.
type LayoutConfig struct {
	DefaultName string
	DateLocales []string
}

// LoadDotEnv loads variables from the given .env files (or ./.env) without overriding
// the process environment. A missing file is not an error.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "postgres"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:   getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:   getEnv("GRPC_ADDR", ":8081"),
			MaxUpload:  int64(getEnvAsInt("MAX_UPLOAD_BYTES", 32<<20)),
			PlainLogs:  getEnvAsBool("LOG_PLAIN", false),
			LogLevel:   getEnv("LOG_LEVEL", "info"),
			AuditQueue: getEnvAsInt("AUDIT_QUEUE_SIZE", 256),
		},
		OCR: OCRConfig{
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			Pdftoppm:    getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Pdftotext:   getEnv("PDFTOTEXT_BIN", "pdftotext"),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			DPI:         getEnvAsInt("OCR_DPI", 300),
			PSM:         getEnvAsInt("OCR_PSM", 6),
			OEM:         getEnvAsInt("OCR_OEM", 3),
			ScratchDir:  getEnv("SCRATCH_DIR", os.TempDir()),
		},
		Decoder: DecoderConfig{
			URL:       getEnv("DECODER_API_URL", ""),
			Timeout:   getEnvAsDuration("DECODER_API_TIMEOUT", 15*time.Second),
			RatePerS:  getEnvAsFloat64("DECODER_API_RPS", 2),
			RateBurst: getEnvAsInt("DECODER_API_BURST", 4),
		},
		VATRegistry: VATRegistryConfig{
			Enabled: getEnvAsBool("VIES_ENABLED", true),
			URL:     getEnv("VIES_URL", "https://ec.europa.eu/taxation_customs/vies/rest-api"),
			Timeout: getEnvAsDuration("VIES_TIMEOUT", 10*time.Second),
		},
		Batch: BatchConfig{
			TTL:           getEnvAsDuration("BATCH_TTL", 24*time.Hour),
			SweepInterval: getEnvAsDuration("BATCH_SWEEP_INTERVAL", time.Hour),
		},
		Upload: UploadConfig{
			Budget: getEnvAsDuration("UPLOAD_TIMEOUT", 70*time.Second),
			Margin: getEnvAsDuration("UPLOAD_TIMEOUT_MARGIN", 10*time.Second),
		},
		Layouts: LayoutConfig{
			DefaultName: getEnv("DEFAULT_LAYOUT", constants.DefaultLayoutName),
			DateLocales: getEnvAsList("DATE_LOCALES", []string{"en-GB", "es-ES", "pt-PT", "it"}),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Upload.Margin >= c.Upload.Budget {
		return NewAppError("CONFIG_ERROR", "UPLOAD_TIMEOUT_MARGIN must be smaller than UPLOAD_TIMEOUT", ErrInvalidInput)
	}
	if c.Batch.TTL <= 0 || c.Batch.SweepInterval <= 0 {
		return NewAppError("CONFIG_ERROR", "BATCH_TTL and BATCH_SWEEP_INTERVAL must be positive", ErrInvalidInput)
	}
	return nil
}
