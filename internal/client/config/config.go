package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/flogger/internal/common"
	"github.com/go-playground/validator/v10"
)

// Provider names accepted by Config.Provider.
const (
	ProviderDropbox = "dropbox"
	ProviderS3      = "s3"
	ProviderMemory  = "memory"
)

// Config holds runtime settings for the flogger CLI.
type Config struct {
	Provider string `validate:"oneof=dropbox s3 memory"`

	// Loopback address the OAuth callback endpoint listens on.
	CallbackAddr string `validate:"required,hostname_port"`

	OAuthClientID    string `validate:"required_if=Provider dropbox"`
	OAuthAuthURL     string `validate:"required,url"`
	OAuthTokenURL    string `validate:"required,url"`
	OAuthRedirectURI string `validate:"required,url"`

	DropboxAPIURL     string `validate:"required,url"`
	DropboxContentURL string `validate:"required,url"`

	S3Bucket          string `validate:"required_if=Provider s3"`
	S3Region          string
	S3Endpoint        string `validate:"omitempty,url"`
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Prefix          string

	// SessionDSN selects the SQLite session store; empty keeps the session
	// in memory for the life of the process.
	SessionDSN string

	TemplateDir     string
	DefaultDocument string `validate:"required"`
	TagIndexPath    string `validate:"required,startswith=/"`

	LogBackend string `validate:"oneof=slog zap"`
	LogFormat  string `validate:"oneof=text json"`
	LogLevel   string `validate:"oneof=debug info warn error"`
	LogFile    string

	RequestTimeout time.Duration `validate:"gt=0"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Provider = ProviderDropbox
	c.CallbackAddr = "127.0.0.1:53682"
	c.OAuthAuthURL = "https://www.dropbox.com/oauth2/authorize"
	c.OAuthTokenURL = "https://api.dropboxapi.com/oauth2/token"
	c.OAuthRedirectURI = "http://127.0.0.1:53682/auth-callback/"
	c.DropboxAPIURL = "https://api.dropboxapi.com"
	c.DropboxContentURL = "https://content.dropboxapi.com"
	c.S3Region = "us-east-1"
	c.DefaultDocument = common.DefaultDocumentPath
	c.TagIndexPath = common.TagIndexPath
	c.LogBackend = "slog"
	c.LogFormat = "text"
	c.LogLevel = "info"
	c.RequestTimeout = 30 * time.Second
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
