package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	AppEnv     string
	ServerPort string

	DBDriver   string // "pgx" or "postgres" (lib/pq)
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	AWSRegion        string
	SQSEventQueueURL string
	IoTMQTTEndpoint  string
	IoTTopicPrefix   string

	JWTSecret          string
	JWTExpirationHours time.Duration

	// Bootstrap admin; skipped when either is empty.
	AdminUsername string
	AdminPassword string

	OCREngine        string // "rekognition" or "tesseract"
	OCRLanguage      string
	OCRUpscaleFactor int
	UploadDir        string

	// Minimum similarity for a detected plate to count as the reserved one.
	PlateMatchThreshold float64
}

// Load reads .env (when present) and the process environment.
// A nil logger is replaced by a no-op one.
func Load(logger *zap.Logger) *Config {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := loader{logger: logger.Named("config")}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		l.logger.Warn("could not load .env file", zap.Error(err))
	}

	// Upscaling only helps the local engine; Rekognition works on the
	// original frame and caps inline images at 5 MB.
	ocrEngine := l.getEnv("OCR_ENGINE", "rekognition")
	defaultUpscale := 2
	if ocrEngine == "rekognition" {
		defaultUpscale = 1
	}

	return &Config{
		AppEnv:     l.getEnv("APP_ENV", "production"),
		ServerPort: l.getEnv("SERVER_PORT", "8080"),

		DBDriver:   l.getEnv("DB_DRIVER", "pgx"),
		DBHost:     l.getEnv("DB_HOST", "localhost"),
		DBPort:     l.getInt("DB_PORT", 5432),
		DBUser:     l.getEnv("DB_USER", "zonaverde"),
		DBPassword: l.getEnv("DB_PASSWORD", "zonaverde"),
		DBName:     l.getEnv("DB_NAME", "zona_verde"),
		DBSslMode:  l.getEnv("DB_SSLMODE", "disable"),

		AWSRegion:        l.getEnv("AWS_REGION", "sa-east-1"),
		SQSEventQueueURL: l.getEnv("SQS_EVENT_QUEUE_URL", ""),
		IoTMQTTEndpoint:  l.getEnv("IOT_MQTT_ENDPOINT", ""),
		IoTTopicPrefix:   l.getEnv("IOT_TOPIC_PREFIX", "zona_verde"),

		JWTSecret:          l.getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpirationHours: time.Duration(l.getInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,

		AdminUsername: l.getEnv("ADMIN_USERNAME", ""),
		AdminPassword: l.getEnv("ADMIN_PASSWORD", ""),

		OCREngine:        ocrEngine,
		OCRLanguage:      l.getEnv("OCR_LANGUAGE", "por"),
		OCRUpscaleFactor: l.getInt("OCR_UPSCALE_FACTOR", defaultUpscale),
		UploadDir:        l.getEnv("UPLOAD_DIR", "uploads"),

		PlateMatchThreshold: l.getFloat("PLATE_MATCH_THRESHOLD", 0.8),
	}
}

// IsDevelopment reports whether APP_ENV asks for development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

type loader struct {
	logger *zap.Logger
}

func (l loader) getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	l.logger.Debug("environment variable not set, using default", zap.String("key", key), zap.String("default", fallback))
	return fallback
}

func (l loader) getInt(key string, fallback int) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		l.logger.Warn("invalid integer, using default", zap.String("key", key), zap.String("value", raw), zap.Int("default", fallback))
		return fallback
	}
	return v
}

func (l loader) getFloat(key string, fallback float64) float64 {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		l.logger.Warn("invalid number, using default", zap.String("key", key), zap.String("value", raw), zap.Float64("default", fallback))
		return fallback
	}
	return v
}
