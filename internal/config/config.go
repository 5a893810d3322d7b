/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the ledger-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort              string `mapstructure:"SERVER_PORT"`
	DatabaseURL             string `mapstructure:"DATABASE_URL"`
	RabbitMQURL             string `mapstructure:"RABBITMQ_URL"`
	LedgerEventExchange     string `mapstructure:"LEDGER_EVENT_EXCHANGE"`
	PaygateAPIBaseURL       string `mapstructure:"PAYGATE_API_BASE_URL"`
	PaygateAPIKey           string `mapstructure:"PAYGATE_API_KEY"`
	PaygateTimeoutSeconds   int    `mapstructure:"PAYGATE_TIMEOUT_SECONDS"`
	PaygateWebhookSecret    string `mapstructure:"PAYGATE_WEBHOOK_SECRET"`
	AuthJWKSURL             string `mapstructure:"AUTH_JWKS_URL"`
	SystemConfirmerID       string `mapstructure:"SYSTEM_CONFIRMER_ID"`
	RedisURL                string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix    string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	WebhookRateLimitPerMin  int    `mapstructure:"WEBHOOK_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LEDGER_EVENT_EXCHANGE", "famtree.events")
	viper.SetDefault("PAYGATE_TIMEOUT_SECONDS", 10)
	viper.SetDefault("SYSTEM_CONFIRMER_ID", "00000000-0000-0000-0000-000000000001")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "famtree:rate_limit")
	viper.SetDefault("WEBHOOK_RATE_LIMIT_PER_MINUTE", 120)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("LEDGER_EVENT_EXCHANGE")
	_ = viper.BindEnv("PAYGATE_API_BASE_URL")
	_ = viper.BindEnv("PAYGATE_API_KEY")
	_ = viper.BindEnv("PAYGATE_TIMEOUT_SECONDS")
	_ = viper.BindEnv("PAYGATE_WEBHOOK_SECRET", "PAYGATE_WEBHOOK_SECRET", "LEDGER_WEBHOOK_SECRET")
	_ = viper.BindEnv("AUTH_JWKS_URL")
	_ = viper.BindEnv("SYSTEM_CONFIRMER_ID")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("WEBHOOK_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.PaygateWebhookSecret = strings.TrimSpace(config.PaygateWebhookSecret)
	if config.PaygateWebhookSecret == "" {
		config.PaygateWebhookSecret = strings.TrimSpace(os.Getenv("LEDGER_WEBHOOK_SECRET"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "famtree:rate_limit"
	}

	if config.PaygateTimeoutSeconds <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive paygate timeout configured; using default\" timeout_seconds=%d", config.PaygateTimeoutSeconds)
		config.PaygateTimeoutSeconds = 10
	}
	if config.PaygateTimeoutSeconds > 60 {
		log.Printf("level=warn component=config msg=\"paygate timeout too high; capping at 60s\" timeout_seconds=%d", config.PaygateTimeoutSeconds)
		config.PaygateTimeoutSeconds = 60
	}
	if config.WebhookRateLimitPerMin < 0 {
		config.WebhookRateLimitPerMin = 0
	}

	return
}
