package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Providers understood by the service. "none" disables a capability.
const (
	ProviderAzure  = "azure"
	ProviderOllama = "ollama"
	ProviderStub   = "stub"
	ProviderNone   = "none"
)

// Config holds all configuration for the photo annotation pipeline service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Server configuration
	Port string

	// Photo storage: directory the web application uploads photos into
	UploadPath string

	// Backend selection
	CaptionProvider  string
	DetectorProvider string

	// Azure Computer Vision configuration
	AzureEndpoint string
	AzureKey      string

	// Ollama configuration
	OllamaURL   string
	OllamaModel string

	// Annotation configuration
	AnnotateInterval time.Duration
	BatchSize        int
	CaptionMaxLength int

	// Start point: skip photos with id <= this value
	PhotoStartFrom int

	// RabbitMQ configuration (optional)
	AMQPURL             string
	AMQPExchange        string
	AnnotatedRoutingKey string
}

// Load loads configuration from environment variables. A .env file is read
// first when present.
func Load() *Config {
	_ = godotenv.Load()

	config := &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "moments"),
		DBPassword: getEnv("DB_PASSWORD", "secret_app"),
		DBName:     getEnv("DB_NAME", "moments"),

		// Server defaults
		Port: getEnv("PORT", "8080"),

		UploadPath: getEnv("UPLOAD_PATH", "./uploads"),

		// Backend defaults
		CaptionProvider:  getEnv("CAPTION_PROVIDER", ProviderOllama),
		DetectorProvider: getEnv("DETECTOR_PROVIDER", ProviderAzure),

		// Azure Computer Vision
		AzureEndpoint: getEnv("AZURE_COMPUTER_VISION_ENDPOINT", ""),
		AzureKey:      getEnv("AZURE_COMPUTER_VISION_KEY", ""),

		// Ollama
		OllamaURL:   getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel: getEnv("OLLAMA_MODEL", "llava"),

		// Annotation defaults
		AnnotateInterval: getDurationEnv("ANNOTATE_INTERVAL", 30*time.Second),
		BatchSize:        getIntEnv("BATCH_SIZE", 10),
		CaptionMaxLength: getIntEnv("CAPTION_MAX_LENGTH", 500),

		// Start point
		PhotoStartFrom: getIntEnv("PHOTO_START_FROM", 0),

		// RabbitMQ
		AMQPURL:             getEnv("AMQP_URL", ""),
		AMQPExchange:        getEnv("AMQP_EXCHANGE", "moments"),
		AnnotatedRoutingKey: getEnv("AMQP_ANNOTATED_ROUTING_KEY", "photo.annotated"),
	}

	return config
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
