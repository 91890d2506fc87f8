// Package export encodes and decodes the snapshot file format: one JSON
// document holding {collections, cards}. The upload path and the CLI
// export/import commands share these helpers so every payload that leaves
// the process has passed schema validation.
package export

import (
	"encoding/json"

	"github.com/lexora-app/lexora-sync/internal/client/models"
	"github.com/lexora-app/lexora-sync/internal/syncerr"
	"github.com/lexora-app/lexora-sync/internal/validation"
)

// EncodeJSON validates the snapshot and renders it as indented JSON.
func EncodeJSON(s models.Snapshot) ([]byte, error) {
	if err := validation.Struct(s); err != nil {
		return nil, err
	}
	if s.Collections == nil {
		s.Collections = []models.Collection{}
	}
	if s.Cards == nil {
		s.Cards = []models.Card{}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, syncerr.Wrap(syncerr.CodeUnknown, "failed to encode snapshot", err)
	}
	return data, nil
}

// Decode parses raw bytes into a validated snapshot. Broken JSON is
// CORRUPTED_JSON; well-formed JSON that violates the schema is
// VALIDATION_FAILED.
func Decode(raw []byte) (models.Snapshot, error) {
	var s models.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.Snapshot{}, syncerr.Wrap(syncerr.CodeCorruptedJSON, "snapshot file contains invalid JSON", err)
	}
	if err := validation.Struct(s); err != nil {
		return models.Snapshot{}, err
	}
	return s, nil
}
