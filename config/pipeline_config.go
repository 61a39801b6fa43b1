package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string

	// Database
	DatabaseURL string
	RedisURL    string

	// JWT
	JWTSecret string

	// OpenAI
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeoutSec  int

	// Worker
	NodeID          int64
	WorkerCount     int
	WorkerBatchSize int
	WorkerChanSize  int
	WorkerRetries   int
	JobTimeoutSec   int
	PollIntervalSec int

	// Queue
	QueueBatchSize int

	// Consumer (Redis Stream)
	ConsumerGroup      string
	ConsumerName       string
	ConsumerMaxRetries int

	// Webhook notifications
	WebhookEndpoint string
	WebhookSecret   string

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		// OpenAI
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1024),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
		LLMTimeoutSec:  getEnvInt("LLM_TIMEOUT_SEC", 15),

		// Worker
		NodeID:          int64(getEnvInt("NODE_ID", 1)),
		WorkerCount:     getEnvInt("WORKER_COUNT", 8),
		WorkerBatchSize: getEnvInt("WORKER_BATCH_SIZE", 10),
		WorkerChanSize:  getEnvInt("WORKER_CHAN_SIZE", 100),
		WorkerRetries:   getEnvInt("WORKER_MAX_RETRIES", 3),
		JobTimeoutSec:   getEnvInt("JOB_TIMEOUT_SEC", 60),
		PollIntervalSec: getEnvInt("POLL_INTERVAL_SEC", 2),

		// Queue
		QueueBatchSize: getEnvInt("QUEUE_BATCH_SIZE", 20),

		// Consumer
		ConsumerGroup:      getEnv("CONSUMER_GROUP", "email-pipeline"),
		ConsumerName:       getEnv("CONSUMER_NAME", generateConsumerName()),
		ConsumerMaxRetries: getEnvInt("CONSUMER_MAX_RETRIES", 3),

		// Webhook
		WebhookEndpoint: getEnv("WEBHOOK_ENDPOINT", ""),
		WebhookSecret:   getEnv("WEBHOOK_SECRET", ""),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}, nil
}

// generateConsumerName creates a unique consumer name from hostname and PID
func generateConsumerName() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "pipeline"
	}
	return hostname + "-" + strconv.Itoa(os.Getpid())
}

// JobTimeout returns the per-job processing ceiling.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutSec) * time.Second
}

// PollInterval returns the dispatcher polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
