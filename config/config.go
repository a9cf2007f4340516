package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config структура конфигурации приложения
type Config struct {
	Server      ServerConfig
	Logging     LoggingConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Intent      IntentServiceConfig
	Entitlement EntitlementServiceConfig
	Gateway     GatewayConfig
	Activation  ActivationConfig
}

// ServerConfig конфигурация HTTP сервера
type ServerConfig struct {
	Port            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

// LoggingConfig конфигурация логгера
type LoggingConfig struct {
	Level string
}

// DatabaseConfig конфигурация базы данных
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig конфигурация Redis
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig конфигурация Kafka
type KafkaConfig struct {
	Brokers []string
	Enabled bool
}

// IntentServiceConfig конфигурация сервиса платежных намерений
type IntentServiceConfig struct {
	BaseURL string
	Timeout int
}

// EntitlementServiceConfig конфигурация сервиса подписок
type EntitlementServiceConfig struct {
	BaseURL string
	Timeout int
}

// GatewayConfig конфигурация платежного шлюза
type GatewayConfig struct {
	BaseURL            string
	Timeout            int
	ActionPollInterval int
}

// ActivationConfig конфигурация опроса активации подписки
type ActivationConfig struct {
	MaxAttempts int
	IntervalMs  int
}

// GetDSN возвращает строку подключения к базе данных
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("SERVER_WRITE_TIMEOUT", 120),
			ShutdownTimeout: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT", 30),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Database: getEnv("DB_NAME", "subscription_service"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsSlice("KAFKA_BROKERS", nil),
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
		},
		Intent: IntentServiceConfig{
			BaseURL: getEnv("INTENT_SERVICE_URL", "http://localhost:8081"),
			Timeout: getEnvAsInt("INTENT_SERVICE_TIMEOUT", 15),
		},
		Entitlement: EntitlementServiceConfig{
			BaseURL: getEnv("ENTITLEMENT_SERVICE_URL", "http://localhost:8082"),
			Timeout: getEnvAsInt("ENTITLEMENT_SERVICE_TIMEOUT", 10),
		},
		Gateway: GatewayConfig{
			BaseURL:            getEnv("GATEWAY_URL", "http://localhost:8083"),
			Timeout:            getEnvAsInt("GATEWAY_TIMEOUT", 30),
			ActionPollInterval: getEnvAsInt("GATEWAY_ACTION_POLL_INTERVAL", 2),
		},
		Activation: ActivationConfig{
			MaxAttempts: getEnvAsInt("ACTIVATION_MAX_ATTEMPTS", 10),
			IntervalMs:  getEnvAsInt("ACTIVATION_INTERVAL_MS", 2000),
		},
	}

	return cfg, nil
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt получает значение переменной окружения как int или возвращает значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool получает значение переменной окружения как bool или возвращает значение по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsSlice получает значение переменной окружения как список через запятую
func getEnvAsSlice(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
