package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cardclub/tabled/internal/clock"
	"github.com/spf13/viper"
)

// Config holds the complete application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Club    ClubConfig    `mapstructure:"club"`
	Admin   AdminConfig   `mapstructure:"admin"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig defines listener ports and addresses.
type ServerConfig struct {
	WebPort     int    `mapstructure:"web_port"`
	MetricsPort int    `mapstructure:"metrics_port"`
	BindAddress string `mapstructure:"bind_address"`
}

// StorageConfig defines where the club data lives.
type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
	AuditPath    string `mapstructure:"audit_path"`
}

// ClubConfig defines club-local conventions: timezone, clock resolution,
// and the usual start of play.
type ClubConfig struct {
	Name             string `mapstructure:"name"`
	Timezone         string `mapstructure:"timezone"`
	ClockResolution  string `mapstructure:"clock_resolution"`
	SessionStartTime string `mapstructure:"session_start_time"`
}

// AdminConfig defines the operator login. With an empty password hash
// the web UI runs unauthenticated (trusted club LAN).
type AdminConfig struct {
	Username        string `mapstructure:"username"`
	PasswordHash    string `mapstructure:"password_hash"`
	JWTSecret       string `mapstructure:"jwt_secret"`
	TokenExpiration string `mapstructure:"token_expiration"`
}

// LoggingConfig defines log output settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads the configuration file, applies TABLED_* environment
// overrides, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetEnvPrefix("TABLED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.web_port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.bind_address", "0.0.0.0")

	v.SetDefault("storage.database_path", "/var/lib/tabled/club.db")
	v.SetDefault("storage.audit_path", "/var/lib/tabled/audit.db")

	v.SetDefault("club.name", "Card Club")
	v.SetDefault("club.timezone", "America/New_York")
	v.SetDefault("club.clock_resolution", "seconds")
	v.SetDefault("club.session_start_time", "19:30")

	v.SetDefault("admin.username", "operator")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("admin.jwt_secret", "")
	v.SetDefault("admin.token_expiration", "24h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// validate checks semantic constraints.
func validate(c *Config) error {
	if c.Server.WebPort < 1 || c.Server.WebPort > 65535 {
		return fmt.Errorf("server.web_port out of range: %d", c.Server.WebPort)
	}
	if c.Server.MetricsPort < 1 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("server.metrics_port out of range: %d", c.Server.MetricsPort)
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage.database_path is required")
	}
	if _, err := c.Club.Location(); err != nil {
		return err
	}
	if _, err := c.Club.Resolution(); err != nil {
		return err
	}
	if _, err := time.Parse("15:04", c.Club.SessionStartTime); err != nil {
		return fmt.Errorf("club.session_start_time %q: want HH:MM", c.Club.SessionStartTime)
	}
	if c.Admin.PasswordHash != "" && c.Admin.JWTSecret == "" {
		return fmt.Errorf("admin.jwt_secret is required when a password hash is set")
	}
	if _, err := time.ParseDuration(c.Admin.TokenExpiration); err != nil {
		return fmt.Errorf("admin.token_expiration %q: %w", c.Admin.TokenExpiration, err)
	}
	return nil
}

// Location loads the club timezone.
func (c ClubConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("club.timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Resolution parses the clock resolution setting.
func (c ClubConfig) Resolution() (clock.Resolution, error) {
	return clock.ParseResolution(c.ClockResolution)
}
