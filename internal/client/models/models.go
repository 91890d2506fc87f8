// Package models defines the entities the sync engine exchanges between the
// local replica and the remote snapshot file. Timestamps stay RFC 3339
// strings on the wire (the file format is shared with other clients) and are
// parsed lazily: a record with an unparseable stamp is still representable,
// and the merge policy decides what to do with it.
package models

import "time"

// Collection groups cards. It has no storage of its own, only an identity.
// UpdatedAt is stamped on rename so name conflicts between replicas resolve
// by recency; snapshots written before renames happened lack it.
type Collection struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	CreatedAt string `json:"createdAt" validate:"required"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Card is a single flashcard with its scheduling state. UpdatedAt is the
// sole conflict-resolution signal and must strictly increase on every local
// mutation of the card.
type Card struct {
	ID             string  `json:"id" validate:"required"`
	CollectionID   string  `json:"collectionId" validate:"required"`
	Front          string  `json:"front"`
	Back           string  `json:"back"`
	EaseFactor     float64 `json:"easeFactor" validate:"gte=1.3"`
	IntervalDays   int     `json:"intervalDays" validate:"gte=0"`
	Repetitions    int     `json:"repetitions" validate:"gte=0"`
	DueDate        string  `json:"dueDate" validate:"required"`
	LastReviewedAt string  `json:"lastReviewedAt,omitempty"`
	CreatedAt      string  `json:"createdAt" validate:"required"`
	UpdatedAt      string  `json:"updatedAt" validate:"required"`
}

// Snapshot is the full payload exchanged with remote storage and the unit
// the merge engine operates on.
type Snapshot struct {
	Collections []Collection `json:"collections" validate:"dive"`
	Cards       []Card       `json:"cards" validate:"dive"`
}

// ParseTime parses an RFC 3339 timestamp, reporting whether it was valid.
func ParseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatTime renders t in the wire format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NextTimestamp returns a stamp for a mutation of a record whose previous
// stamp is prev. The result is strictly greater than prev even when the
// clock has not advanced (or has gone backwards), preserving the
// last-writer-wins ordering invariant.
func NextTimestamp(prev string, now time.Time) string {
	candidate := now.UTC()
	if prevTime, ok := ParseTime(prev); ok && !candidate.After(prevTime) {
		candidate = prevTime.Add(time.Millisecond)
	}
	return FormatTime(candidate)
}
