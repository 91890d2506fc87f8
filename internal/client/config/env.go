package config

import "os"

// parseEnv overlays secrets from the environment. Secrets are deliberately
// not accepted as flags or JSON values so they never end up in shell
// history or config files checked into dotfile repos.
//
// Recognized variables:
//
//	LEXORA_OAUTH_CLIENT_ID
//	LEXORA_OAUTH_CLIENT_SECRET
//	LEXORA_S3_ACCESS_KEY
//	LEXORA_S3_SECRET_KEY
func parseEnv(cfg *Config) {
	if v := os.Getenv("LEXORA_OAUTH_CLIENT_ID"); v != "" {
		cfg.OAuthClientID = v
	}
	if v := os.Getenv("LEXORA_OAUTH_CLIENT_SECRET"); v != "" {
		cfg.OAuthClientSecret = v
	}
	if v := os.Getenv("LEXORA_S3_ACCESS_KEY"); v != "" {
		cfg.S3AccessKey = v
	}
	if v := os.Getenv("LEXORA_S3_SECRET_KEY"); v != "" {
		cfg.S3SecretKey = v
	}
}
