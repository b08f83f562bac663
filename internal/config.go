package internal

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/geocore/pkg/geocore"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Geocore  GeocoreConfig     `yaml:"geocore"`
	Uploader UploaderConfig    `yaml:"uploader"`
	MCP      MCPConfig         `yaml:"mcp"`
}

// Validate validates the configuration. The uploader section is checked
// only by the watch mode, which is the only one that uses it.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Geocore.Validate(); err != nil {
		return fmt.Errorf("geocore: %w", err)
	}
	return c.MCP.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In(slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError)),
	)
}

// GeocoreConfig locates the Geocore project.
type GeocoreConfig struct {
	BaseURL   string        `yaml:"base_url"`
	ProjectID string        `yaml:"project_id"`
	DeviceID  string        `yaml:"device_id"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Validate validates the Geocore configuration.
func (c *GeocoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.ProjectID, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// ClientConfig converts the section into SDK configuration.
func (c *GeocoreConfig) ClientConfig() geocore.Config {
	return geocore.Config{
		BaseURL:   c.BaseURL,
		ProjectID: c.ProjectID,
		DeviceID:  c.DeviceID,
		Timeout:   c.Timeout,
	}
}

func httpURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an absolute http(s) URL")
	}
	return nil
}

// UploaderConfig describes the directory mirrored into object binaries.
type UploaderConfig struct {
	Dir       string `yaml:"dir"`
	ObjectID  string `yaml:"object_id"`
	KeyPrefix string `yaml:"key_prefix"`
	// Extensions limits uploads to these file extensions. Empty means all.
	Extensions []string `yaml:"extensions"`
}

// Validate validates the uploader configuration.
func (c *UploaderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.ObjectID, validation.Required),
		validation.Field(&c.Extensions, validation.Each(validation.By(extension))),
	)
}

func extension(value any) error {
	s, _ := value.(string)
	if !strings.HasPrefix(s, ".") || len(s) < 2 {
		return fmt.Errorf("extension %q must start with a dot", s)
	}
	return nil
}

// MCPConfig holds MCP server configuration.
type MCPConfig struct {
	Name string `yaml:"name"`
}

// Validate validates the MCP configuration.
func (c *MCPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Geocore: GeocoreConfig{
			Timeout: 30 * time.Second,
		},
		Uploader: UploaderConfig{
			Dir: "./uploads",
		},
		MCP: MCPConfig{
			Name: "geocore",
		},
	}
}
