package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config is built once in main and injected into every component.
// Business logic never reads the environment directly.
type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

type ServiceConfig struct {
	Name string `mapstructure:"name"`
	Port int    `mapstructure:"port"`
	// PublicURL is the externally reachable base URL of the API; it is
	// embedded in verification links sent by email.
	PublicURL string `mapstructure:"public_url"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type AuthConfig struct {
	// SessionSecret signs tenant and customer session tokens.
	SessionSecret string `mapstructure:"session_secret"`
	// VerificationSecret signs the one-hour email verification tokens.
	// It is deliberately distinct from the session secret.
	VerificationSecret string `mapstructure:"verification_secret"`
}

type StorageConfig struct {
	// BaseURL of the external blob host images are uploaded to.
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// Load reads config.yaml from path and applies STOREFRONT_* environment
// overrides (STOREFRONT_POSTGRES_URL, STOREFRONT_AUTH_SESSION_SECRET, ...).
func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("storefront")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults double as env bindings: AutomaticEnv only resolves keys
	// viper already knows about.
	viper.SetDefault("service.name", "storefront-api")
	viper.SetDefault("service.port", 8080)
	viper.SetDefault("service.public_url", "http://localhost:8080")
	viper.SetDefault("postgres.url", "")
	viper.SetDefault("kafka.brokers", []string{})
	viper.SetDefault("kafka.topic", "notification.requested")
	viper.SetDefault("auth.session_secret", "")
	viper.SetDefault("auth.verification_secret", "")
	viper.SetDefault("storage.base_url", "")
	viper.SetDefault("storage.api_key", "")

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional when everything comes from the
		// environment.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
