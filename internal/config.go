package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Summary providers.
const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Inference InferenceConfig   `yaml:"inference"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Inference.Validate(); err != nil {
		return fmt.Errorf("inference: %w", err)
	}
	return nil
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

// AuthConfig holds session signing settings.
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	PurgeInterval time.Duration `yaml:"purge_interval"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.JWTSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.SessionTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.PurgeInterval, validation.Required, validation.Min(time.Second)),
	)
}

// InferenceConfig holds hosted model settings. An empty API key is valid:
// note creation then reports the missing key instead of calling out.
type InferenceConfig struct {
	BaseURL          string        `yaml:"base_url"`
	APIKey           string        `yaml:"api_key"`
	SummaryModel     string        `yaml:"summary_model"`
	NERModel         string        `yaml:"ner_model"`
	SummaryMaxLength int           `yaml:"summary_max_length"`
	SummaryMinLength int           `yaml:"summary_min_length"`
	Timeout          time.Duration `yaml:"timeout"`
	SummaryProvider  string        `yaml:"summary_provider"`
	OpenAI           OpenAIConfig  `yaml:"openai"`
}

// Validate validates the inference configuration.
func (c *InferenceConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.SummaryModel, validation.Required),
		validation.Field(&c.NERModel, validation.Required),
		validation.Field(&c.SummaryMaxLength, validation.Required, validation.Min(1)),
		validation.Field(&c.SummaryMinLength, validation.Min(0)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.SummaryProvider, validation.Required, validation.In(ProviderHuggingFace, ProviderOpenAI)),
	); err != nil {
		return err
	}
	if c.SummaryMinLength > c.SummaryMaxLength {
		return fmt.Errorf("summary_min_length %d exceeds summary_max_length %d", c.SummaryMinLength, c.SummaryMaxLength)
	}
	if c.SummaryProvider == ProviderOpenAI {
		return c.OpenAI.Validate()
	}
	return nil
}

// OpenAIConfig configures the optional chat-completion summarizer.
type OpenAIConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"`
}

// Validate validates the OpenAI configuration.
func (c *OpenAIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.BaseURL, is.URL),
		validation.Field(&c.MaxTokens, validation.Min(0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
// JWTSecret has no default and must come from the file or environment.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./contextwise.db",
		},
		Auth: AuthConfig{
			SessionTTL:    24 * time.Hour,
			PurgeInterval: time.Hour,
		},
		Inference: InferenceConfig{
			BaseURL:          "https://api-inference.huggingface.co/models",
			SummaryModel:     "facebook/bart-large-cnn",
			NERModel:         "dslim/bert-base-NER",
			SummaryMaxLength: 100,
			SummaryMinLength: 30,
			SummaryProvider:  ProviderHuggingFace,
			OpenAI: OpenAIConfig{
				Model:     "gpt-4o-mini",
				MaxTokens: 200,
			},
		},
	}
}
