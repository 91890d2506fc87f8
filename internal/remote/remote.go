// Package remote defines the contract every remote-storage backend
// implements: one JSON snapshot kept in a single cloud file, addressed by a
// fixed name with an id used only as a cache hint. Backends classify every
// transport/HTTP outcome into the syncerr taxonomy and hold no local state.
package remote

import "context"

// FileMetadata describes the remote snapshot file.
type FileMetadata struct {
	ID           string
	Name         string
	ModifiedTime string
}

// Payload is a downloaded snapshot file: its metadata plus raw JSON bytes.
// The bytes are not parsed here; the orchestrator owns decode and
// validation so a corrupt file is classified in one place.
type Payload struct {
	File FileMetadata
	JSON []byte
}

// UploadResult reports where the snapshot landed and whether the file was
// created rather than updated in place.
type UploadResult struct {
	File    FileMetadata
	Created bool
}

// Storage is the remote-storage adapter.
//
// Error classification contract, per operation:
//   - transport failure          → NETWORK_FAILURE (retryable)
//   - expired/invalid credential → TOKEN_EXPIRED (retryable after refresh)
//   - file absent                → MISSING_FILE (a signal, not a failure:
//     the orchestrator's bootstrap path branches on it)
//   - provider 5xx or 429        → DRIVE_API_ERROR (retryable)
//   - any other non-2xx          → DRIVE_API_ERROR (not retryable)
type Storage interface {
	// Find searches for the snapshot file by its fixed name, most recently
	// modified first. Returns (nil, nil) when no file exists.
	Find(ctx context.Context, token string) (*FileMetadata, error)

	// Download fetches the snapshot. When preferredFileID is non-empty it is
	// tried first; on MISSING_FILE for that id the backend falls back to a
	// search by name. MISSING_FILE is returned only when the search also
	// comes up empty.
	Download(ctx context.Context, token, preferredFileID string) (*Payload, error)

	// Upload writes the snapshot. An empty existingFileID creates a new
	// file; otherwise the file is updated in place.
	Upload(ctx context.Context, token string, payload []byte, existingFileID string) (*UploadResult, error)
}
