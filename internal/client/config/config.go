package config

import "time"

// Backend selects the remote storage implementation.
type Backend string

const (
	BackendDrive Backend = "drive"
	BackendS3    Backend = "s3"
)

// Config holds runtime settings for the Lexora sync CLI.
//
// Units: DebounceInterval and OnlineCheckInterval are time.Durations.
type Config struct {
	DatabaseDSN         string
	RemoteBackend       Backend
	SyncFileName        string
	DebounceInterval    time.Duration
	OnlineCheckInterval time.Duration
	ProbeURL            string

	// OAuth settings for the drive backend. ClientSecret comes from the
	// environment only.
	OAuthClientID     string
	OAuthClientSecret string
	OAuthMetadataURL  string
	OAuthScope        string

	// S3 settings for the s3 backend. Credentials come from the
	// environment only.
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "lexora.db"
	c.RemoteBackend = BackendDrive
	c.SyncFileName = "lexora-sync.json"
	c.DebounceInterval = 5 * time.Second
	c.OnlineCheckInterval = 30 * time.Second
	c.OAuthMetadataURL = "https://accounts.google.com/.well-known/openid-configuration"
	c.OAuthScope = "https://www.googleapis.com/auth/drive.file"
	c.S3Region = "us-east-1"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), command-line flags, and finally environment variables
// for secrets. Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	parseEnv(cfg)
	return cfg
}
