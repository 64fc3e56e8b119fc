package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Response variants served by the echo listener.
const (
	VariantJSON = "json"
	VariantText = "text"
)

// Default listening ports, one per variant.
const (
	DefaultJSONPort = 9000
	DefaultTextPort = 8899
)

// ServerConfig holds the echo listener settings.
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`    // 0 = default for the variant
	Variant string `yaml:"variant"` // "json" or "text"
}

// LoggingConfig holds access log settings.
type LoggingConfig struct {
	Format string `yaml:"format"` // "json" or "text"
}

// AdminConfig holds the admin listener settings (health, metrics, dashboard).
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// DashboardConfig holds request inspection settings
type DashboardConfig struct {
	Enabled     bool `yaml:"enabled"`
	LogCapacity int  `yaml:"log_capacity"`
	SSEBuffer   int  `yaml:"sse_buffer"`
}

// AuthConfig holds authentication settings. Auth is off when both are empty.
type AuthConfig struct {
	APIKeys   []string `yaml:"api_keys"`
	JWTSecret string   `yaml:"jwt_secret"`
}

// Enabled reports whether any credential is configured.
func (a AuthConfig) Enabled() bool {
	return len(a.APIKeys) > 0 || a.JWTSecret != ""
}

// Config is the top-level configuration for the test backend.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	Admin     AdminConfig     `yaml:"admin,omitempty"`
	Dashboard DashboardConfig `yaml:"dashboard,omitempty"`
	Auth      AuthConfig      `yaml:"auth,omitempty"`
}

// Default returns the configuration used when no file is given.
// Server.Port is left at 0 so Normalize can pick the variant's port.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "127.0.0.1",
			Variant: VariantJSON,
		},
		Logging: LoggingConfig{Format: "json"},
		Admin: AdminConfig{
			Host: "127.0.0.1",
			Port: 9090,
		},
		Dashboard: DashboardConfig{
			Enabled:     true,
			LogCapacity: 1000,
			SSEBuffer:   256,
		},
	}
}

// DefaultPort returns the listening port used by a variant when none is configured.
func DefaultPort(variant string) int {
	if variant == VariantText {
		return DefaultTextPort
	}
	return DefaultJSONPort
}

// LoadConfig reads a YAML config file and overlays it on Default().
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Normalize fills in values that depend on other settings.
func (c *Config) Normalize() {
	if c.Server.Variant == "" {
		c.Server.Variant = VariantJSON
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort(c.Server.Variant)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Admin.Host == "" {
		c.Admin.Host = "127.0.0.1"
	}
}

// Validate checks the configuration for values the server cannot start with.
func (c *Config) Validate() error {
	switch c.Server.Variant {
	case VariantJSON, VariantText:
	default:
		return fmt.Errorf("invalid server.variant %q: must be %q or %q", c.Server.Variant, VariantJSON, VariantText)
	}

	if err := validPort("server.port", c.Server.Port); err != nil {
		return err
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging.format %q: must be \"json\" or \"text\"", c.Logging.Format)
	}

	if c.Admin.Enabled {
		if err := validPort("admin.port", c.Admin.Port); err != nil {
			return err
		}
	}

	if c.Dashboard.LogCapacity < 0 {
		return fmt.Errorf("invalid dashboard.log_capacity %d: must not be negative", c.Dashboard.LogCapacity)
	}
	if c.Dashboard.SSEBuffer < 0 {
		return fmt.Errorf("invalid dashboard.sse_buffer %d: must not be negative", c.Dashboard.SSEBuffer)
	}

	return nil
}

func validPort(field string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("invalid %s %d: must be between 0 and 65535", field, port)
	}
	return nil
}
