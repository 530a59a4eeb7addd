package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type AlertConfig struct {
	// DefaultKeyword is used when a user has no SOS keyword configured.
	DefaultKeyword string        `mapstructure:"default_keyword"`
	DedupWindow    time.Duration `mapstructure:"dedup_window"`
	ExpiryAge      time.Duration `mapstructure:"expiry_age"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	// AccountSweepInterval controls the unverified-account cleanup cadence.
	AccountSweepInterval time.Duration `mapstructure:"account_sweep_interval"`
	AccountMaxAge        time.Duration `mapstructure:"account_max_age"`
}

type DispatchConfig struct {
	PerRecipientTimeout time.Duration `mapstructure:"per_recipient_timeout"`
	OverallTimeout      time.Duration `mapstructure:"overall_timeout"`
	MaxParallel         int           `mapstructure:"max_parallel"`
	ProximityRadiusKm   float64       `mapstructure:"proximity_radius_km"`
}

type EmailConfig struct {
	From     string `mapstructure:"from"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type SMSConfig struct {
	GatewayURL string `mapstructure:"gateway_url"`
	APIKey     string `mapstructure:"api_key"`
	Sender     string `mapstructure:"sender"`
}

type PushConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	ServerKey string `mapstructure:"server_key"`
}

type TranscriptionConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Config struct {
	DatabaseURL   string              `mapstructure:"database_url"`
	ServerPort    string              `mapstructure:"server_port"`
	JWTSecret     string              `mapstructure:"jwt_secret"`
	Alert         AlertConfig         `mapstructure:"alert"`
	Dispatch      DispatchConfig      `mapstructure:"dispatch"`
	Email         EmailConfig         `mapstructure:"email"`
	SMS           SMSConfig           `mapstructure:"sms"`
	Push          PushConfig          `mapstructure:"push"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}
	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}

	if config.Alert.DefaultKeyword == "" {
		config.Alert.DefaultKeyword = "help"
	}
	if config.Alert.DedupWindow == 0 {
		config.Alert.DedupWindow = 60 * time.Second
	}
	if config.Alert.ExpiryAge == 0 {
		config.Alert.ExpiryAge = 24 * time.Hour
	}
	if config.Alert.SweepInterval == 0 {
		config.Alert.SweepInterval = time.Hour
	}
	if config.Alert.AccountSweepInterval == 0 {
		config.Alert.AccountSweepInterval = 24 * time.Hour
	}
	if config.Alert.AccountMaxAge == 0 {
		config.Alert.AccountMaxAge = 30 * 24 * time.Hour
	}

	if config.Dispatch.PerRecipientTimeout == 0 {
		config.Dispatch.PerRecipientTimeout = 5 * time.Second
	}
	if config.Dispatch.OverallTimeout == 0 {
		config.Dispatch.OverallTimeout = 15 * time.Second
	}
	if config.Dispatch.MaxParallel == 0 {
		config.Dispatch.MaxParallel = 8
	}

	if config.Email.SMTPPort == 0 {
		config.Email.SMTPPort = 587
	}
	if config.Transcription.Timeout == 0 {
		config.Transcription.Timeout = 30 * time.Second
	}

	return &config
}
