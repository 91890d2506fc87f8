// Package merge reconciles two replica snapshots into one. The function is
// pure: no I/O, no clock, and the result depends only on the inputs, never
// on their array ordering.
//
// Policy:
//   - collections union by id; on conflict the most recently modified record
//     wins, and the local record is kept when the stamps are not comparable;
//   - cards union by id with last-writer-wins on updatedAt; an unparseable
//     stamp loses to a valid one, and when neither side parses (or the
//     stamps are equal) the remote record is kept;
//   - a card whose collection survived on neither side is dropped, not
//     reported as an error;
//   - the result is re-validated against the snapshot schema before being
//     returned, so a malformed remote payload that slipped through JSON
//     decoding cannot poison the replica.
package merge

import (
	"sort"

	"github.com/lexora-app/lexora-sync/internal/client/models"
	"github.com/lexora-app/lexora-sync/internal/validation"
)

// Merge reconciles the local and remote snapshots.
func Merge(local, remote models.Snapshot) (models.Snapshot, error) {
	collections := mergeCollections(local.Collections, remote.Collections)

	validIDs := make(map[string]struct{}, len(collections))
	for _, c := range collections {
		validIDs[c.ID] = struct{}{}
	}

	cards := mergeCards(local.Cards, remote.Cards)
	kept := cards[:0]
	for _, card := range cards {
		if _, ok := validIDs[card.CollectionID]; ok {
			kept = append(kept, card)
		}
	}

	merged := models.Snapshot{Collections: collections, Cards: kept}
	if err := validation.Struct(merged); err != nil {
		return models.Snapshot{}, err
	}
	return merged, nil
}

func mergeCollections(local, remote []models.Collection) []models.Collection {
	byID := make(map[string]models.Collection, len(local)+len(remote))

	for _, c := range local {
		byID[c.ID] = c
	}

	for _, incoming := range remote {
		current, ok := byID[incoming.ID]
		if !ok {
			byID[incoming.ID] = incoming
			continue
		}

		currentStamp, currentOK := models.ParseTime(current.UpdatedAt)
		incomingStamp, incomingOK := models.ParseTime(incoming.UpdatedAt)

		// Local record stays unless the remote one is demonstrably newer.
		if currentOK && incomingOK && incomingStamp.After(currentStamp) {
			byID[incoming.ID] = incoming
		}
	}

	out := make([]models.Collection, 0, len(byID))
	for _, c := range byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func mergeCards(local, remote []models.Card) []models.Card {
	byID := make(map[string]models.Card, len(local)+len(remote))

	for _, card := range local {
		byID[card.ID] = card
	}

	for _, incoming := range remote {
		current, ok := byID[incoming.ID]
		if !ok {
			byID[incoming.ID] = incoming
			continue
		}
		byID[incoming.ID] = newerCard(current, incoming)
	}

	out := make([]models.Card, 0, len(byID))
	for _, card := range byID {
		out = append(out, card)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// newerCard picks between a kept card and an incoming remote card sharing
// the same id. A valid updatedAt beats an unparseable one; with two valid
// stamps the greater wins; ties and double-unparseable cases keep the
// incoming record so the choice stays deterministic.
func newerCard(current, incoming models.Card) models.Card {
	currentStamp, currentOK := models.ParseTime(current.UpdatedAt)
	incomingStamp, incomingOK := models.ParseTime(incoming.UpdatedAt)

	switch {
	case currentOK && incomingOK:
		if currentStamp.After(incomingStamp) {
			return current
		}
		return incoming
	case currentOK:
		return current
	case incomingOK:
		return incoming
	default:
		return incoming
	}
}
