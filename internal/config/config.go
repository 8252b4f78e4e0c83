package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server Config
	ServerAddress string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration

	// Screenshot storage
	ScreenshotDir string

	// Oracle (remote authenticity classifier)
	OracleAPIURL   string
	OracleAPIKey   string
	OracleModel    string
	OracleTimeout  time.Duration
	OracleCacheLen int // LRU entries kept per analysis mode

	// Video stream
	VideoAnalyzeEvery int // Analyze every Nth frame (default: 10)
	VideoBufferCap    int // Max frames buffered per session (default: 30)
	VideoHistoryCap   int // Max analysis results retained (default: 50)
	VideoAckInterval  int // Acknowledge every Nth frame (default: 30)

	// Audio stream
	AudioBufferThreshold int // Bytes buffered before analysis (default: 100000)
	AudioHistoryCap      int // Max analysis results retained (default: 20)
	AudioAckInterval     int // Acknowledge every Nth chunk (default: 20)
	AudioMimeType        string

	// Alert policy
	ConfidenceThreshold float64 // Per-result confidence gate (default: 0.7)
	VideoAlertRatio     float64 // Suspicious ratio that triggers alert (default: 0.3)
	AudioAlertRatio     float64 // AI-generated ratio that triggers alert (default: 0.5)

	// PostgreSQL Config
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSchema   string
	PostgresSSLMode  string

	// RabbitMQ Config
	RabbitMQURL        string // RabbitMQ connection URL
	RabbitMQExchange   string // Exchange name
	RabbitMQQueue      string // Queue name
	RabbitMQRoutingKey string // Routing key prefix, stream kind is appended
	RabbitMQEnabled    bool   // Enable RabbitMQ publishing
}

func New() *Config {
	return &Config{
		// Server
		ServerAddress: getEnv("SERVER_ADDRESS", ":8092"),
		ReadTimeout:   getEnvAsDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:  getEnvAsDuration("WRITE_TIMEOUT", 30*time.Second),

		// Screenshot storage
		ScreenshotDir: getEnv("SCREENSHOT_DIR", "storage/screenshots"),

		// Oracle
		OracleAPIURL:   getEnv("ORACLE_API_URL", "http://localhost:8011/v1/analyze"),
		OracleAPIKey:   getEnv("ORACLE_API_KEY", ""),
		OracleModel:    getEnv("ORACLE_MODEL", "gemini-2.5-flash"),
		OracleTimeout:  getEnvAsDuration("ORACLE_TIMEOUT", 30*time.Second),
		OracleCacheLen: getEnvAsInt("ORACLE_CACHE_LEN", 1024),

		// Video stream
		VideoAnalyzeEvery: getEnvAsInt("VIDEO_ANALYZE_EVERY", 10),
		VideoBufferCap:    getEnvAsInt("VIDEO_BUFFER_CAP", 30),
		VideoHistoryCap:   getEnvAsInt("VIDEO_HISTORY_CAP", 50),
		VideoAckInterval:  getEnvAsInt("VIDEO_ACK_INTERVAL", 30),

		// Audio stream
		AudioBufferThreshold: getEnvAsInt("AUDIO_BUFFER_THRESHOLD", 100000),
		AudioHistoryCap:      getEnvAsInt("AUDIO_HISTORY_CAP", 20),
		AudioAckInterval:     getEnvAsInt("AUDIO_ACK_INTERVAL", 20),
		AudioMimeType:        getEnv("AUDIO_MIME_TYPE", "audio/webm"),

		// Alert policy
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.7),
		VideoAlertRatio:     getEnvAsFloat("VIDEO_ALERT_RATIO", 0.3),
		AudioAlertRatio:     getEnvAsFloat("AUDIO_ALERT_RATIO", 0.5),

		// PostgreSQL
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "P@ssw0rd123"),
		PostgresDB:       getEnv("POSTGRES_DB", "postgres"),
		PostgresSchema:   getEnv("POSTGRES_SCHEMA", "stream_verification"),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		// RabbitMQ
		RabbitMQURL:        getEnv("RABBITMQ_URL", "amqp://admin:P@ssw0rd123@localhost:5672/"),
		RabbitMQExchange:   getEnv("RABBITMQ_EXCHANGE", "verification.alerts"),
		RabbitMQQueue:      getEnv("RABBITMQ_QUEUE", "stream.alerts"),
		RabbitMQRoutingKey: getEnv("RABBITMQ_ROUTING_KEY", "alerts"),
		RabbitMQEnabled:    getEnvAsBool("RABBITMQ_ENABLED", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
