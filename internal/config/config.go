package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// HubConfig configures the hub connection.
type HubConfig struct {
	URL                  string        `mapstructure:"URL"`
	HandshakeTimeout     time.Duration `mapstructure:"HANDSHAKE_TIMEOUT"`
	PingInterval         time.Duration `mapstructure:"PING_INTERVAL"`
	ReconnectBaseDelay   time.Duration `mapstructure:"RECONNECT_BASE_DELAY"`
	MaxReconnectAttempts int           `mapstructure:"MAX_RECONNECT_ATTEMPTS"`
	TypingSupported      bool          `mapstructure:"TYPING_SUPPORTED"`
}

// APIConfig configures the configuration and contact REST API.
type APIConfig struct {
	BaseURL string        `mapstructure:"BASE_URL"`
	Timeout time.Duration `mapstructure:"TIMEOUT"`
}

// SessionConfig identifies the signed-in user and tenant.
type SessionConfig struct {
	ApplicationID int    `mapstructure:"APPLICATION_ID"`
	CompanyID     int    `mapstructure:"COMPANY_ID"`
	Token         string `mapstructure:"TOKEN"`
	UserID        string `mapstructure:"USER_ID"`
	UserName      string `mapstructure:"USER_NAME"`
	TenantCode    string `mapstructure:"TENANT_CODE"`
	CompanyCode   string `mapstructure:"COMPANY_CODE"`
	Language      string `mapstructure:"LANGUAGE"`
}

type LogConfig struct {
	Level  string `mapstructure:"LEVEL"`
	Format string `mapstructure:"FORMAT"`
}

// DebugConfig configures the local status server.
type DebugConfig struct {
	Enabled bool   `mapstructure:"ENABLED"`
	Addr    string `mapstructure:"ADDR"`
	Token   string `mapstructure:"TOKEN"`
}

type AMQPConfig struct {
	URL      string `mapstructure:"URL"`
	Exchange string `mapstructure:"EXCHANGE"`
}

type TracingConfig struct {
	Enabled  bool   `mapstructure:"ENABLED"`
	Endpoint string `mapstructure:"ENDPOINT"`
	Insecure bool   `mapstructure:"INSECURE"`
}

// Config holds all configuration for the session process.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AppName     string        `mapstructure:"APP_NAME"`
	Environment string        `mapstructure:"ENVIRONMENT"`
	Hub         HubConfig     `mapstructure:"HUB"`
	API         APIConfig     `mapstructure:"API"`
	Session     SessionConfig `mapstructure:"SESSION"`
	Log         LogConfig     `mapstructure:"LOG"`
	Debug       DebugConfig   `mapstructure:"DEBUG"`
	AMQP        AMQPConfig    `mapstructure:"AMQP"`
	Tracing     TracingConfig `mapstructure:"TRACING"`
}

// LoadConfig reads configuration from file or environment variables. An
// empty path searches ./config and the working directory for config.yaml;
// a missing file there is not an error.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()

	v.SetDefault("APP_NAME", "chat-session")
	v.SetDefault("ENVIRONMENT", "development")

	v.SetDefault("HUB.URL", "http://localhost:5000/hubs/chat")
	v.SetDefault("HUB.HANDSHAKE_TIMEOUT", 15*time.Second)
	v.SetDefault("HUB.PING_INTERVAL", 15*time.Second)
	v.SetDefault("HUB.RECONNECT_BASE_DELAY", 2*time.Second)
	v.SetDefault("HUB.MAX_RECONNECT_ATTEMPTS", 5)
	v.SetDefault("HUB.TYPING_SUPPORTED", false)

	v.SetDefault("API.BASE_URL", "http://localhost:5000/api")
	v.SetDefault("API.TIMEOUT", 10*time.Second)

	v.SetDefault("SESSION.APPLICATION_ID", 1)
	v.SetDefault("SESSION.COMPANY_ID", 0)
	v.SetDefault("SESSION.TOKEN", "")
	v.SetDefault("SESSION.USER_ID", "")
	v.SetDefault("SESSION.USER_NAME", "")
	v.SetDefault("SESSION.TENANT_CODE", "")
	v.SetDefault("SESSION.COMPANY_CODE", "")
	v.SetDefault("SESSION.LANGUAGE", "")

	v.SetDefault("LOG.LEVEL", "info")
	v.SetDefault("LOG.FORMAT", "text")

	v.SetDefault("DEBUG.ENABLED", false)
	v.SetDefault("DEBUG.ADDR", "127.0.0.1:8090")
	v.SetDefault("DEBUG.TOKEN", "")

	v.SetDefault("AMQP.URL", "")
	v.SetDefault("AMQP.EXCHANGE", "chat.session")

	v.SetDefault("TRACING.ENABLED", false)
	v.SetDefault("TRACING.ENDPOINT", "localhost:4317")
	v.SetDefault("TRACING.INSECURE", true)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// HUB.URL is overridden by HUB_URL.
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
