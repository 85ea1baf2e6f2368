package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Documents DocumentsConfig `mapstructure:"documents"`
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// DocumentsConfig holds generated document settings
type DocumentsConfig struct {
	OutputDir   string `mapstructure:"output_dir"`
	BaseURL     string `mapstructure:"base_url"`
	CompanyName string `mapstructure:"company_name"`
}

// WhatsAppConfig holds customer channel settings
type WhatsAppConfig struct {
	DefaultRegion string `mapstructure:"default_region"`
	LinkBase      string `mapstructure:"link_base"`
}

// WorkflowConfig holds workflow engine tuning
type WorkflowConfig struct {
	ConflictRetries    int           `mapstructure:"conflict_retries"`
	LeadFollowUpDays   int           `mapstructure:"lead_follow_up_days"`
	AsyncNotifications bool          `mapstructure:"async_notifications"`
	EffectRetries      int           `mapstructure:"effect_retries"`
	EffectBackoff      time.Duration `mapstructure:"effect_backoff"`
	EffectTimeout      time.Duration `mapstructure:"effect_timeout"`

	FollowUpPollInterval time.Duration `mapstructure:"follow_up_poll_interval"`
	FollowUpBatchSize    int           `mapstructure:"follow_up_batch_size"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads an optional .env file, then the YAML file at configPath (if
// present), then environment overrides prefixed with WORKFLOW_
func Load(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := gotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WORKFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.path", "data/workflow.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	v.SetDefault("auth.issuer", "service-workflow")

	v.SetDefault("documents.output_dir", "data/documents")
	v.SetDefault("documents.base_url", "http://localhost:8080/documents")
	v.SetDefault("documents.company_name", "Service Center")

	v.SetDefault("whatsapp.default_region", "IN")
	v.SetDefault("whatsapp.link_base", "https://wa.me")

	v.SetDefault("workflow.conflict_retries", 1)
	v.SetDefault("workflow.lead_follow_up_days", 7)
	v.SetDefault("workflow.async_notifications", false)
	v.SetDefault("workflow.effect_retries", 1)
	v.SetDefault("workflow.effect_backoff", 200*time.Millisecond)
	v.SetDefault("workflow.effect_timeout", 10*time.Second)
	v.SetDefault("workflow.follow_up_poll_interval", time.Minute)
	v.SetDefault("workflow.follow_up_batch_size", 20)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds the unprefixed names deployments commonly set
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("auth.jwt_secret", "WORKFLOW_AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("database.path", "WORKFLOW_DATABASE_PATH", "DATABASE_PATH")
	_ = v.BindEnv("documents.company_name", "WORKFLOW_DOCUMENTS_COMPANY_NAME", "COMPANY_NAME")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Documents.OutputDir == "" {
		return fmt.Errorf("documents.output_dir is required")
	}
	if len(c.WhatsApp.DefaultRegion) != 2 {
		return fmt.Errorf("whatsapp.default_region must be a two-letter region code")
	}
	if c.Workflow.ConflictRetries < 0 {
		return fmt.Errorf("workflow.conflict_retries must not be negative")
	}
	if c.Workflow.LeadFollowUpDays <= 0 {
		return fmt.Errorf("workflow.lead_follow_up_days must be positive")
	}
	if c.Workflow.FollowUpBatchSize < 0 {
		return fmt.Errorf("workflow.follow_up_batch_size must not be negative")
	}
	return nil
}

// Address returns the host:port the HTTP server listens on
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
