package config

import (
	"os"
	"time"
)

// parseEnv overlays Config fields from environment variables. Only set,
// non-empty variables take effect, so .env files (loaded by the entrypoint)
// and real environments compose with defaults, JSON and flags.
func parseEnv(config *Config) {
	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		config.EndpointAddrHTTP = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		config.SecretKey = v
	}
	if v := os.Getenv("MOCK_OPENID"); v != "" {
		config.MockIdentity = v
	}
	if v := os.Getenv("TEMP_URL_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.TempURLValidityDuration = d
		}
	}
	if v := os.Getenv("PDF_FONT_PATH"); v != "" {
		config.PDFFontPath = v
	}
	if v := os.Getenv("S3_ROOT_USER"); v != "" {
		config.S3RootUser = v
	}
	if v := os.Getenv("S3_ROOT_PASSWORD"); v != "" {
		config.S3RootPassword = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		config.S3Bucket = v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		config.S3Region = v
	}
	if v := os.Getenv("S3_BASE_ENDPOINT"); v != "" {
		config.S3BaseEndpoint = v
	}
}
