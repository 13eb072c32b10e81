package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/smartblock/internal/blocks"
	"github.com/starford/smartblock/internal/models"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// AI providers.
const (
	AIProviderNone   = "none"
	AIProviderOpenAI = "openai"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Blocks BlocksConfig      `yaml:"blocks"`
	AI     AIConfig          `yaml:"ai"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Blocks.Validate(); err != nil {
		return err
	}
	return c.AI.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// BlocksConfig configures the block engine and where derived files go.
type BlocksConfig struct {
	Types              []string `yaml:"types"`
	MinContentLength   int      `yaml:"min_content_length"`
	MaxContentLength   int      `yaml:"max_content_length"`
	DefaultReorderable bool     `yaml:"default_reorderable"`
	SidecarDir         string   `yaml:"sidecar_dir"`
	ExtractDir         string   `yaml:"extract_dir"`
}

// Validate validates the blocks configuration.
func (c *BlocksConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Types, validation.Required),
		validation.Field(&c.MinContentLength, validation.Min(1)),
		validation.Field(&c.MaxContentLength, validation.Required),
		validation.Field(&c.SidecarDir, validation.Required),
		validation.Field(&c.ExtractDir, validation.Required),
	); err != nil {
		return err
	}
	if c.MinContentLength > c.MaxContentLength {
		return fmt.Errorf("blocks: min_content_length %d exceeds max_content_length %d",
			c.MinContentLength, c.MaxContentLength)
	}
	if c.SidecarDir == c.ExtractDir {
		return fmt.Errorf("blocks: sidecar_dir and extract_dir must differ")
	}
	return nil
}

// EngineOptions converts the configuration into block engine options.
func (c *BlocksConfig) EngineOptions() []blocks.Option {
	return []blocks.Option{
		blocks.WithTypes(c.Types...),
		blocks.WithContentBounds(c.MinContentLength, c.MaxContentLength),
		blocks.WithDefaultReorderable(c.DefaultReorderable),
	}
}

// AIConfig selects the summarizer and reorder scorer.
//
// With provider "none" summaries are truncated content and reorder suggestions
// keep document order. With "openai" the OpenAI chat API is used; BaseURL may
// point at any compatible endpoint.
type AIConfig struct {
	Provider          string `yaml:"provider"`
	APIKey            string `yaml:"api_key"`
	BaseURL           string `yaml:"base_url"`
	Model             string `yaml:"model"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	SummaryLength     int    `yaml:"summary_length"`
}

// Validate validates the AI configuration.
func (c *AIConfig) Validate() error {
	if c.Provider == "" {
		c.Provider = AIProviderNone
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.In(AIProviderNone, AIProviderOpenAI)),
		validation.Field(&c.APIKey, validation.When(c.Provider == AIProviderOpenAI, validation.Required)),
		validation.Field(&c.Model, validation.When(c.Provider == AIProviderOpenAI, validation.Required)),
		validation.Field(&c.RequestsPerMinute, validation.Min(0)),
		validation.Field(&c.SummaryLength, validation.Min(0)),
	)
}

// Enabled reports whether a remote model is configured.
func (c *AIConfig) Enabled() bool {
	return c.Provider == AIProviderOpenAI
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./smartblock.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Blocks: BlocksConfig{
			Types:            models.DefaultTypes(),
			MinContentLength: blocks.DefaultMinContentLength,
			MaxContentLength: blocks.DefaultMaxContentLength,
			SidecarDir:       ".smartblock",
			ExtractDir:       "extracted",
		},
		AI: AIConfig{
			Provider:          AIProviderNone,
			Model:             "gpt-4o-mini",
			RequestsPerMinute: 60,
			SummaryLength:     200,
		},
	}
}
