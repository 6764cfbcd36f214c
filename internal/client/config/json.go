package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/flogger/internal/flagx"
	"github.com/dmitrijs2005/flogger/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from "empty" so a file only overrides what it
// names. RequestTimeout accepts "30s" or integer nanoseconds.
type JsonConfig struct {
	Provider          *string         `json:"provider"`
	CallbackAddr      *string         `json:"callback_addr"`
	OAuthClientID     *string         `json:"oauth_client_id"`
	OAuthAuthURL      *string         `json:"oauth_auth_url"`
	OAuthTokenURL     *string         `json:"oauth_token_url"`
	OAuthRedirectURI  *string         `json:"oauth_redirect_uri"`
	DropboxAPIURL     *string         `json:"dropbox_api_url"`
	DropboxContentURL *string         `json:"dropbox_content_url"`
	S3Bucket          *string         `json:"s3_bucket"`
	S3Region          *string         `json:"s3_region"`
	S3Endpoint        *string         `json:"s3_endpoint"`
	S3AccessKeyID     *string         `json:"s3_access_key_id"`
	S3SecretAccessKey *string         `json:"s3_secret_access_key"`
	S3Prefix          *string         `json:"s3_prefix"`
	SessionDSN        *string         `json:"session_dsn"`
	TemplateDir       *string         `json:"template_dir"`
	DefaultDocument   *string         `json:"default_document"`
	TagIndexPath      *string         `json:"tag_index_path"`
	LogBackend        *string         `json:"log_backend"`
	LogFormat         *string         `json:"log_format"`
	LogLevel          *string         `json:"log_level"`
	LogFile           *string         `json:"log_file"`
	RequestTimeout    *timex.Duration `json:"request_timeout"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Without either flag it does nothing. Read and unmarshal
// errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&cfg.Provider, jc.Provider)
	set(&cfg.CallbackAddr, jc.CallbackAddr)
	set(&cfg.OAuthClientID, jc.OAuthClientID)
	set(&cfg.OAuthAuthURL, jc.OAuthAuthURL)
	set(&cfg.OAuthTokenURL, jc.OAuthTokenURL)
	set(&cfg.OAuthRedirectURI, jc.OAuthRedirectURI)
	set(&cfg.DropboxAPIURL, jc.DropboxAPIURL)
	set(&cfg.DropboxContentURL, jc.DropboxContentURL)
	set(&cfg.S3Bucket, jc.S3Bucket)
	set(&cfg.S3Region, jc.S3Region)
	set(&cfg.S3Endpoint, jc.S3Endpoint)
	set(&cfg.S3AccessKeyID, jc.S3AccessKeyID)
	set(&cfg.S3SecretAccessKey, jc.S3SecretAccessKey)
	set(&cfg.S3Prefix, jc.S3Prefix)
	set(&cfg.SessionDSN, jc.SessionDSN)
	set(&cfg.TemplateDir, jc.TemplateDir)
	set(&cfg.DefaultDocument, jc.DefaultDocument)
	set(&cfg.TagIndexPath, jc.TagIndexPath)
	set(&cfg.LogBackend, jc.LogBackend)
	set(&cfg.LogFormat, jc.LogFormat)
	set(&cfg.LogLevel, jc.LogLevel)
	set(&cfg.LogFile, jc.LogFile)
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}
