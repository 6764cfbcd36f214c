package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// envPrefix namespaces every variable read by parseEnv.
const envPrefix = "FLOGGER_"

// parseEnv overlays Config with FLOGGER_* variables. A .env file in the
// working directory is loaded first when present; variables already set in
// the process environment win over the file.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	str := map[string]*string{
		"PROVIDER":             &cfg.Provider,
		"CALLBACK_ADDR":        &cfg.CallbackAddr,
		"OAUTH_CLIENT_ID":      &cfg.OAuthClientID,
		"OAUTH_AUTH_URL":       &cfg.OAuthAuthURL,
		"OAUTH_TOKEN_URL":      &cfg.OAuthTokenURL,
		"OAUTH_REDIRECT_URI":   &cfg.OAuthRedirectURI,
		"DROPBOX_API_URL":      &cfg.DropboxAPIURL,
		"DROPBOX_CONTENT_URL":  &cfg.DropboxContentURL,
		"S3_BUCKET":            &cfg.S3Bucket,
		"S3_REGION":            &cfg.S3Region,
		"S3_ENDPOINT":          &cfg.S3Endpoint,
		"S3_ACCESS_KEY_ID":     &cfg.S3AccessKeyID,
		"S3_SECRET_ACCESS_KEY": &cfg.S3SecretAccessKey,
		"S3_PREFIX":            &cfg.S3Prefix,
		"SESSION_DSN":          &cfg.SessionDSN,
		"TEMPLATE_DIR":         &cfg.TemplateDir,
		"DEFAULT_DOCUMENT":     &cfg.DefaultDocument,
		"TAG_INDEX_PATH":       &cfg.TagIndexPath,
		"LOG_BACKEND":          &cfg.LogBackend,
		"LOG_FORMAT":           &cfg.LogFormat,
		"LOG_LEVEL":            &cfg.LogLevel,
		"LOG_FILE":             &cfg.LogFile,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv(envPrefix + "REQUEST_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}
}
