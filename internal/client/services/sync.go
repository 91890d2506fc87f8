// Package services contains the application services of the sync engine:
// the sync orchestrator, the auto-sync scheduler, the replica store facade,
// and the mutation services feeding the scheduler's triggers.
package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lexora-app/lexora-sync/internal/client/models"
	"github.com/lexora-app/lexora-sync/internal/export"
	"github.com/lexora-app/lexora-sync/internal/logging"
	"github.com/lexora-app/lexora-sync/internal/merge"
	"github.com/lexora-app/lexora-sync/internal/remote"
	"github.com/lexora-app/lexora-sync/internal/syncerr"
)

// Trigger is the reason code that caused a sync attempt.
type Trigger string

const (
	TriggerMutation  Trigger = "mutation"
	TriggerReview    Trigger = "review"
	TriggerStartup   Trigger = "startup"
	TriggerReconnect Trigger = "reconnect"
)

// Credentials is the slice of the credential manager the orchestrator needs.
type Credentials interface {
	GetToken(ctx context.Context, forceRefresh, interactive bool) (string, error)
	SignOut(ctx context.Context) error
}

// SyncOutcome reports a completed bidirectional sync.
type SyncOutcome struct {
	Merged         models.Snapshot
	UploadedFileID string
	Created        bool
}

// AutoSyncOutcome reports what an auto-triggered attempt did. DidSync false
// with a Reason is a normal outcome, not a failure.
type AutoSyncOutcome struct {
	Trigger      Trigger
	DidSync      bool
	Reason       string
	RemoteFileID string
}

// Status is the read model the UI layer renders.
type Status struct {
	IsReady         bool
	IsAuthenticated bool
	Status          models.SyncStatus
	PendingChanges  bool
	LastSyncAt      string
	IsBusy          bool
	LastError       string
}

// SyncService drives end-to-end sync attempts against the remote snapshot
// file. One mutex serializes every run, auto-triggered and user-invoked
// alike, so a manual sync can never interleave with an in-flight auto run
// between snapshot capture and replica replacement.
type SyncService struct {
	store  *ReplicaStore
	remote remote.Storage
	creds  Credentials
	online func() bool
	now    func() time.Time
	log    logging.Logger

	runMu sync.Mutex
	busy  atomic.Bool

	errMu   sync.Mutex
	lastErr string
}

func NewSyncService(store *ReplicaStore, storage remote.Storage, creds Credentials, online func() bool, log logging.Logger) *SyncService {
	if online == nil {
		online = func() bool { return true }
	}
	if log == nil {
		log = logging.Discard()
	}
	return &SyncService{
		store:  store,
		remote: storage,
		creds:  creds,
		online: online,
		now:    time.Now,
		log:    log,
	}
}

// Status returns the read model for rendering.
func (s *SyncService) Status() Status {
	state := s.store.State()
	s.errMu.Lock()
	lastErr := s.lastErr
	s.errMu.Unlock()
	return Status{
		IsReady:         s.store.Hydrated(),
		IsAuthenticated: state.IsAuthenticated,
		Status:          state.LastSyncStatus,
		PendingChanges:  state.PendingChanges,
		LastSyncAt:      state.LastSyncAt,
		IsBusy:          s.busy.Load(),
		LastError:       lastErr,
	}
}

// SignIn acquires a token interactively and records the session.
func (s *SyncService) SignIn(ctx context.Context) error {
	token, err := s.creds.GetToken(ctx, true, true)
	if err != nil {
		if _, uerr := s.store.UpdateState(ctx, func(st *models.SyncState) {
			st.ClearSession()
		}); uerr != nil {
			s.log.Warn(ctx, "failed to clear session after sign-in failure", "error", uerr)
		}
		return s.record(ctx, err)
	}
	_, err = s.store.UpdateState(ctx, func(st *models.SyncState) {
		st.IsAuthenticated = true
		st.AccessToken = token
	})
	return err
}

// SignOut revokes the token (bounded wait inside the credential manager)
// and clears the session locally regardless of the revoke outcome.
func (s *SyncService) SignOut(ctx context.Context) error {
	if err := s.creds.SignOut(ctx); err != nil {
		s.log.Warn(ctx, "sign-out revoke failed", "error", err)
	}
	_, err := s.store.UpdateState(ctx, func(st *models.SyncState) {
		st.ClearSession()
	})
	return err
}

// SyncNow runs a user-invoked bidirectional sync. The local changes are
// flagged pending first so a failed attempt is retried by a later trigger.
func (s *SyncService) SyncNow(ctx context.Context) (*SyncOutcome, error) {
	s.store.MarkPending(ctx)
	return s.runSerialized(ctx, func() (*SyncOutcome, error) {
		return s.runBidirectional(ctx, true)
	})
}

// AutoSync runs one scheduler-triggered attempt. Non-startup triggers are
// non-interactive: they never pop a consent prompt.
func (s *SyncService) AutoSync(ctx context.Context, trigger Trigger) (*AutoSyncOutcome, error) {
	if !s.store.Hydrated() {
		return nil, s.record(ctx, storeNotReady())
	}

	if trigger == TriggerMutation {
		s.store.MarkPending(ctx)
	}

	if !s.online() {
		s.store.MarkPending(ctx)
		s.setStatus(ctx, models.SyncStatusIdle)
		return nil, s.record(ctx, syncerr.Offline())
	}

	if trigger == TriggerStartup {
		return s.startupSync(ctx)
	}

	if !s.store.State().PendingChanges {
		return &AutoSyncOutcome{Trigger: trigger, DidSync: false, Reason: "no-pending-changes"}, nil
	}

	outcome, err := s.runSerialized(ctx, func() (*SyncOutcome, error) {
		return s.runBidirectional(ctx, false)
	})
	if err != nil {
		return nil, err
	}
	return &AutoSyncOutcome{
		Trigger:      trigger,
		DidSync:      true,
		RemoteFileID: outcome.UploadedFileID,
	}, nil
}

// ForceDownload pulls the remote snapshot, merges it into the replica and
// keeps the pending flag untouched: it enriches local data but is not a
// substitute for uploading pending local changes.
func (s *SyncService) ForceDownload(ctx context.Context) (models.Snapshot, error) {
	if !s.store.Hydrated() {
		return models.Snapshot{}, s.record(ctx, storeNotReady())
	}
	if !s.online() {
		s.store.MarkPending(ctx)
		return models.Snapshot{}, s.record(ctx, syncerr.Offline())
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.busy.Store(true)
	defer s.busy.Store(false)

	s.setStatus(ctx, models.SyncStatusSyncing)

	local, err := s.store.Snapshot(ctx)
	if err != nil {
		return models.Snapshot{}, s.fail(ctx, syncerr.From(err, "failed to read local snapshot"), false)
	}

	preferred := s.store.State().RemoteFileID
	payload, err := withTokenRetry(ctx, s.creds, true, func(ctx context.Context, token string) (*remote.Payload, error) {
		return s.remote.Download(ctx, token, preferred)
	})
	if err != nil {
		return models.Snapshot{}, s.fail(ctx, err, false)
	}

	remoteSnap, err := export.Decode(payload.JSON)
	if err != nil {
		return models.Snapshot{}, s.fail(ctx, err, false)
	}

	merged, err := merge.Merge(local, remoteSnap)
	if err != nil {
		return models.Snapshot{}, s.fail(ctx, err, false)
	}

	if err := s.store.Replace(ctx, merged); err != nil {
		return models.Snapshot{}, s.fail(ctx, syncerr.From(err, "failed to replace local snapshot"), false)
	}

	s.setMetadata(ctx, metadataUpdate{
		fileID:       payload.File.ID,
		modifiedTime: payload.File.ModifiedTime,
		status:       models.SyncStatusSuccess,
	})
	return merged, nil
}

// ForceUpload pushes the current local snapshot as-is, creating the remote
// file when the cached id turns out stale.
func (s *SyncService) ForceUpload(ctx context.Context) (*remote.UploadResult, error) {
	if !s.store.Hydrated() {
		return nil, s.record(ctx, storeNotReady())
	}
	if !s.online() {
		s.store.MarkPending(ctx)
		return nil, s.record(ctx, syncerr.Offline())
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.busy.Store(true)
	defer s.busy.Store(false)

	local, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, s.fail(ctx, syncerr.From(err, "failed to read local snapshot"), true)
	}

	result, err := s.uploadSnapshot(ctx, local, s.store.State().RemoteFileID, true)
	if err != nil {
		return nil, s.fail(ctx, err, true)
	}

	s.setMetadata(ctx, metadataUpdate{
		fileID:       result.File.ID,
		modifiedTime: result.File.ModifiedTime,
		status:       models.SyncStatusSuccess,
		clearPending: true,
	})
	return result, nil
}

// runSerialized takes the run mutex for the duration of fn.
func (s *SyncService) runSerialized(ctx context.Context, fn func() (*SyncOutcome, error)) (*SyncOutcome, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.busy.Store(true)
	defer s.busy.Store(false)
	return fn()
}

// runBidirectional is one orchestrator run: fetch-or-bootstrap the remote
// snapshot, merge, replace the replica, upload the result. Callers hold the
// run mutex.
func (s *SyncService) runBidirectional(ctx context.Context, interactive bool) (*SyncOutcome, error) {
	if !s.store.Hydrated() {
		return nil, s.record(ctx, storeNotReady())
	}
	if !s.online() {
		s.store.MarkPending(ctx)
		return nil, s.record(ctx, syncerr.Offline())
	}

	s.setStatus(ctx, models.SyncStatusSyncing)

	// Everything below works on this capture; local mutations accepted
	// while the merge is in flight are flagged pending and folded in by
	// the next run.
	local, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, s.fail(ctx, syncerr.From(err, "failed to read local snapshot"), true)
	}
	preferred := s.store.State().RemoteFileID

	payload, err := withTokenRetry(ctx, s.creds, interactive, func(ctx context.Context, token string) (*remote.Payload, error) {
		return s.remote.Download(ctx, token, preferred)
	})
	if err != nil {
		if !syncerr.HasCode(err, syncerr.CodeMissingFile) {
			return nil, s.fail(ctx, err, true)
		}
		// Bootstrap: no remote file yet, the local snapshot becomes it.
		result, uploadErr := s.uploadSnapshot(ctx, local, "", interactive)
		if uploadErr != nil {
			return nil, s.fail(ctx, uploadErr, true)
		}
		s.setMetadata(ctx, metadataUpdate{
			fileID:       result.File.ID,
			modifiedTime: result.File.ModifiedTime,
			status:       models.SyncStatusSuccess,
			clearPending: true,
		})
		s.log.Info(ctx, "bootstrapped remote snapshot", "fileId", result.File.ID)
		return &SyncOutcome{Merged: local, UploadedFileID: result.File.ID, Created: result.Created}, nil
	}

	remoteSnap, err := export.Decode(payload.JSON)
	if err != nil {
		return nil, s.fail(ctx, err, true)
	}

	merged, err := merge.Merge(local, remoteSnap)
	if err != nil {
		return nil, s.fail(ctx, err, true)
	}

	if err := s.store.Replace(ctx, merged); err != nil {
		return nil, s.fail(ctx, syncerr.From(err, "failed to replace local snapshot"), true)
	}

	result, err := s.uploadSnapshot(ctx, merged, payload.File.ID, interactive)
	if err != nil {
		return nil, s.fail(ctx, err, true)
	}

	modified := result.File.ModifiedTime
	if modified == "" {
		modified = payload.File.ModifiedTime
	}
	s.setMetadata(ctx, metadataUpdate{
		fileID:       result.File.ID,
		modifiedTime: modified,
		status:       models.SyncStatusSuccess,
		clearPending: true,
	})
	return &SyncOutcome{Merged: merged, UploadedFileID: result.File.ID, Created: result.Created}, nil
}

// startupSync is the best-effort boot sync: no prompts, no bootstrap, no
// pending-flag clearing, and a skip when the remote file has not changed
// since the last recorded sync.
func (s *SyncService) startupSync(ctx context.Context) (*AutoSyncOutcome, error) {
	state := s.store.State()
	if state.RemoteFileID == "" {
		return &AutoSyncOutcome{Trigger: TriggerStartup, DidSync: false, Reason: "remote-file-id-missing"}, nil
	}

	if _, err := s.creds.GetToken(ctx, false, false); err != nil {
		s.log.Debug(ctx, "startup sync skipped, not authenticated", "cause", err)
		return &AutoSyncOutcome{Trigger: TriggerStartup, DidSync: false, Reason: "not-authenticated"}, nil
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.busy.Store(true)
	defer s.busy.Store(false)

	s.setStatus(ctx, models.SyncStatusSyncing)

	payload, err := withTokenRetry(ctx, s.creds, false, func(ctx context.Context, token string) (*remote.Payload, error) {
		return s.remote.Download(ctx, token, state.RemoteFileID)
	})
	if err != nil {
		return nil, s.fail(ctx, err, false)
	}

	if skipStartupMerge(state.LastSyncAt, payload.File.ModifiedTime) {
		s.setMetadata(ctx, metadataUpdate{
			fileID:       payload.File.ID,
			modifiedTime: payload.File.ModifiedTime,
			status:       models.SyncStatusSuccess,
		})
		return &AutoSyncOutcome{
			Trigger:      TriggerStartup,
			DidSync:      false,
			Reason:       "already-up-to-date",
			RemoteFileID: payload.File.ID,
		}, nil
	}

	remoteSnap, err := export.Decode(payload.JSON)
	if err != nil {
		return nil, s.fail(ctx, err, false)
	}

	local, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, s.fail(ctx, syncerr.From(err, "failed to read local snapshot"), false)
	}

	merged, err := merge.Merge(local, remoteSnap)
	if err != nil {
		return nil, s.fail(ctx, err, false)
	}
	if err := s.store.Replace(ctx, merged); err != nil {
		return nil, s.fail(ctx, syncerr.From(err, "failed to replace local snapshot"), false)
	}

	s.setMetadata(ctx, metadataUpdate{
		fileID:       payload.File.ID,
		modifiedTime: payload.File.ModifiedTime,
		status:       models.SyncStatusSuccess,
	})
	return &AutoSyncOutcome{Trigger: TriggerStartup, DidSync: true, RemoteFileID: payload.File.ID}, nil
}

// uploadSnapshot encodes and uploads a snapshot. A stale id hint answered
// with MISSING_FILE falls back to creating a fresh file: the hint is a
// cache, never a source of truth.
func (s *SyncService) uploadSnapshot(ctx context.Context, snapshot models.Snapshot, fileID string, interactive bool) (*remote.UploadResult, error) {
	data, err := export.EncodeJSON(snapshot)
	if err != nil {
		return nil, err
	}

	result, err := withTokenRetry(ctx, s.creds, interactive, func(ctx context.Context, token string) (*remote.UploadResult, error) {
		return s.remote.Upload(ctx, token, data, fileID)
	})
	if err != nil && fileID != "" && syncerr.HasCode(err, syncerr.CodeMissingFile) {
		s.log.Warn(ctx, "cached remote file id is stale, creating a new file", "fileId", fileID)
		result, err = withTokenRetry(ctx, s.creds, interactive, func(ctx context.Context, token string) (*remote.UploadResult, error) {
			return s.remote.Upload(ctx, token, data, "")
		})
	}
	return result, err
}

type metadataUpdate struct {
	fileID       string
	modifiedTime string
	status       models.SyncStatus
	clearPending bool
}

func (s *SyncService) setMetadata(ctx context.Context, u metadataUpdate) {
	if _, err := s.store.UpdateState(ctx, func(st *models.SyncState) {
		if u.fileID != "" {
			st.RemoteFileID = u.fileID
		}
		if u.modifiedTime != "" {
			st.LastSyncAt = u.modifiedTime
		} else if u.status == models.SyncStatusSuccess {
			st.LastSyncAt = models.FormatTime(s.now())
		}
		st.LastSyncStatus = u.status
		if u.clearPending {
			st.PendingChanges = false
		}
	}); err != nil {
		s.log.Warn(ctx, "failed to persist sync metadata", "error", err)
	}
	if u.status == models.SyncStatusSuccess {
		s.errMu.Lock()
		s.lastErr = ""
		s.errMu.Unlock()
	}
}

func (s *SyncService) setStatus(ctx context.Context, status models.SyncStatus) {
	if _, err := s.store.UpdateState(ctx, func(st *models.SyncState) {
		st.LastSyncStatus = status
	}); err != nil {
		s.log.Warn(ctx, "failed to persist sync status", "error", err)
	}
}

// fail records a terminal attempt failure: status goes to error, pending
// changes are preserved (or set) when the attempt had local work to push.
func (s *SyncService) fail(ctx context.Context, err error, markPending bool) error {
	s.setStatus(ctx, models.SyncStatusError)
	if markPending {
		s.store.MarkPending(ctx)
	}
	return s.record(ctx, err)
}

// record remembers err as the last error for the read model and returns it.
func (s *SyncService) record(ctx context.Context, err error) error {
	classified := syncerr.From(err, "sync failed")
	s.errMu.Lock()
	s.lastErr = classified.Error()
	s.errMu.Unlock()
	s.log.Error(ctx, "sync attempt failed", "code", classified.Code, "retryable", classified.Retryable, "error", classified)
	return classified
}

func storeNotReady() error {
	return syncerr.Retryable(syncerr.CodeStoreNotReady, "local replica is still loading")
}

// skipStartupMerge reports whether the remote file is no newer than the
// last recorded sync, in which case the boot merge is pointless.
func skipStartupMerge(lastSyncAt, remoteModifiedTime string) bool {
	last, okLast := models.ParseTime(lastSyncAt)
	modified, okModified := models.ParseTime(remoteModifiedTime)
	if !okLast || !okModified {
		return false
	}
	return !modified.After(last)
}

// withTokenRetry runs op with a token, and on TOKEN_EXPIRED forces exactly
// one refresh and retries exactly once. A second expiry surfaces as-is.
func withTokenRetry[T any](ctx context.Context, creds Credentials, interactive bool, op func(ctx context.Context, token string) (T, error)) (T, error) {
	var zero T

	token, err := creds.GetToken(ctx, false, interactive)
	if err != nil {
		return zero, err
	}

	out, err := op(ctx, token)
	if err == nil || !syncerr.HasCode(err, syncerr.CodeTokenExpired) {
		return out, err
	}

	token, err = creds.GetToken(ctx, true, interactive)
	if err != nil {
		return zero, err
	}
	return op(ctx, token)
}
