package models

// SyncStatus is the orchestrator's externally visible state.
type SyncStatus string

const (
	SyncStatusIdle    SyncStatus = "idle"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusError   SyncStatus = "error"
)

// SyncState is the process-wide sync bookkeeping, persisted in the replica's
// metadata table and rehydrated at startup. HasHydrated is process-local and
// never persisted.
type SyncState struct {
	IsAuthenticated bool       `json:"isAuthenticated"`
	AccessToken     string     `json:"accessToken,omitempty"`
	LastSyncAt      string     `json:"lastSyncAt,omitempty"`
	LastSyncStatus  SyncStatus `json:"lastSyncStatus"`
	RemoteFileID    string     `json:"remoteFileId,omitempty"`
	PendingChanges  bool       `json:"pendingChanges"`
	HasHydrated     bool       `json:"-"`
}

// DefaultSyncState is the state a fresh install starts from.
func DefaultSyncState() SyncState {
	return SyncState{LastSyncStatus: SyncStatusIdle}
}

// ClearSession drops authentication data, keeping sync metadata intact.
// Used on sign-out and on unrecoverable auth failures.
func (s *SyncState) ClearSession() {
	s.IsAuthenticated = false
	s.AccessToken = ""
}
