package config

import (
	"encoding/json"
	"os"

	"github.com/lexora-app/lexora-sync/internal/flagx"
	"github.com/lexora-app/lexora-sync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "5s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	DatabaseDSN         string         `json:"database_dsn"`
	RemoteBackend       string         `json:"remote_backend"`
	SyncFileName        string         `json:"sync_file_name"`
	DebounceInterval    timex.Duration `json:"debounce_interval"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	ProbeURL            string         `json:"probe_url"`
	OAuthClientID       string         `json:"oauth_client_id"`
	OAuthMetadataURL    string         `json:"oauth_metadata_url"`
	OAuthScope          string         `json:"oauth_scope"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3Endpoint          string         `json:"s3_endpoint"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Only fields actually present in the file override the defaults. The
// function panics on read or unmarshal errors (caller should recover if
// desired).
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.RemoteBackend != "" {
		cfg.RemoteBackend = Backend(jc.RemoteBackend)
	}
	if jc.SyncFileName != "" {
		cfg.SyncFileName = jc.SyncFileName
	}
	if jc.DebounceInterval.Duration != 0 {
		cfg.DebounceInterval = jc.DebounceInterval.Duration
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.ProbeURL != "" {
		cfg.ProbeURL = jc.ProbeURL
	}
	if jc.OAuthClientID != "" {
		cfg.OAuthClientID = jc.OAuthClientID
	}
	if jc.OAuthMetadataURL != "" {
		cfg.OAuthMetadataURL = jc.OAuthMetadataURL
	}
	if jc.OAuthScope != "" {
		cfg.OAuthScope = jc.OAuthScope
	}
	if jc.S3Bucket != "" {
		cfg.S3Bucket = jc.S3Bucket
	}
	if jc.S3Region != "" {
		cfg.S3Region = jc.S3Region
	}
	if jc.S3Endpoint != "" {
		cfg.S3Endpoint = jc.S3Endpoint
	}
}
