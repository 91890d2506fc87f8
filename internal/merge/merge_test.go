package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexora-app/lexora-sync/internal/client/models"
	"github.com/lexora-app/lexora-sync/internal/syncerr"
)

func makeCard(id, collectionID, updatedAt string) models.Card {
	return models.Card{
		ID:           id,
		CollectionID: collectionID,
		Front:        "front " + id,
		Back:         "back " + id,
		EaseFactor:   2.5,
		DueDate:      "2026-01-01T00:00:00Z",
		CreatedAt:    "2026-01-01T00:00:00Z",
		UpdatedAt:    updatedAt,
	}
}

func makeCollection(id, name, updatedAt string) models.Collection {
	return models.Collection{
		ID:        id,
		Name:      name,
		CreatedAt: "2026-01-01T00:00:00Z",
		UpdatedAt: updatedAt,
	}
}

func TestMerge_UnionOfDisjointSnapshots(t *testing.T) {
	local := models.Snapshot{
		Collections: []models.Collection{makeCollection("col-a", "A", "")},
		Cards:       []models.Card{makeCard("card-1", "col-a", "2026-02-01T10:00:00Z")},
	}
	remote := models.Snapshot{
		Collections: []models.Collection{makeCollection("col-b", "B", "")},
		Cards:       []models.Card{makeCard("card-2", "col-b", "2026-02-01T11:00:00Z")},
	}

	merged, err := Merge(local, remote)
	require.NoError(t, err)

	assert.Len(t, merged.Collections, 2)
	assert.Len(t, merged.Cards, 2)
}

func TestMerge_CardLastWriterWins(t *testing.T) {
	tests := []struct {
		name            string
		localUpdatedAt  string
		remoteUpdatedAt string
		wantFront       string
	}{
		{name: "local newer", localUpdatedAt: "2026-02-01T12:00:00Z", remoteUpdatedAt: "2026-02-01T11:00:00Z", wantFront: "local"},
		{name: "remote newer", localUpdatedAt: "2026-02-01T11:00:00Z", remoteUpdatedAt: "2026-02-01T12:00:00Z", wantFront: "remote"},
		{name: "equal stamps keep remote", localUpdatedAt: "2026-02-01T12:00:00Z", remoteUpdatedAt: "2026-02-01T12:00:00Z", wantFront: "remote"},
		{name: "unparseable local loses", localUpdatedAt: "not-a-date", remoteUpdatedAt: "2026-02-01T12:00:00Z", wantFront: "remote"},
		{name: "unparseable remote loses", localUpdatedAt: "2026-02-01T12:00:00Z", remoteUpdatedAt: "garbage", wantFront: "local"},
		{name: "both unparseable keep remote", localUpdatedAt: "garbage", remoteUpdatedAt: "also-garbage", wantFront: "remote"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			localCard := makeCard("card-1", "col-a", tt.localUpdatedAt)
			localCard.Front = "local"
			remoteCard := makeCard("card-1", "col-a", tt.remoteUpdatedAt)
			remoteCard.Front = "remote"

			col := makeCollection("col-a", "A", "")
			merged, err := Merge(
				models.Snapshot{Collections: []models.Collection{col}, Cards: []models.Card{localCard}},
				models.Snapshot{Collections: []models.Collection{col}, Cards: []models.Card{remoteCard}},
			)
			require.NoError(t, err)
			require.Len(t, merged.Cards, 1)
			assert.Equal(t, tt.wantFront, merged.Cards[0].Front)
		})
	}
}

func TestMerge_CollectionConflicts(t *testing.T) {
	tests := []struct {
		name            string
		localUpdatedAt  string
		remoteUpdatedAt string
		wantName        string
	}{
		{name: "remote rename is newer", localUpdatedAt: "2026-02-01T10:00:00Z", remoteUpdatedAt: "2026-02-01T11:00:00Z", wantName: "remote"},
		{name: "local rename is newer", localUpdatedAt: "2026-02-01T11:00:00Z", remoteUpdatedAt: "2026-02-01T10:00:00Z", wantName: "local"},
		{name: "no stamps keep local", localUpdatedAt: "", remoteUpdatedAt: "", wantName: "local"},
		{name: "only remote stamped keeps local", localUpdatedAt: "", remoteUpdatedAt: "2026-02-01T11:00:00Z", wantName: "local"},
		{name: "equal stamps keep local", localUpdatedAt: "2026-02-01T11:00:00Z", remoteUpdatedAt: "2026-02-01T11:00:00Z", wantName: "local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, err := Merge(
				models.Snapshot{Collections: []models.Collection{makeCollection("col-a", "local", tt.localUpdatedAt)}},
				models.Snapshot{Collections: []models.Collection{makeCollection("col-a", "remote", tt.remoteUpdatedAt)}},
			)
			require.NoError(t, err)
			require.Len(t, merged.Collections, 1)
			assert.Equal(t, tt.wantName, merged.Collections[0].Name)
		})
	}
}

func TestMerge_DropsOrphanedCards(t *testing.T) {
	local := models.Snapshot{
		Collections: []models.Collection{makeCollection("col-a", "A", "")},
		Cards: []models.Card{
			makeCard("card-1", "col-a", "2026-02-01T10:00:00Z"),
			makeCard("card-2", "col-gone", "2026-02-01T10:00:00Z"),
		},
	}

	merged, err := Merge(local, models.Snapshot{})
	require.NoError(t, err)

	require.Len(t, merged.Cards, 1)
	assert.Equal(t, "card-1", merged.Cards[0].ID)
}

func TestMerge_DeterministicOrdering(t *testing.T) {
	colA := makeCollection("col-a", "A", "")
	colB := makeCollection("col-b", "B", "")
	cards := []models.Card{
		makeCard("card-3", "col-a", "2026-02-01T10:00:00Z"),
		makeCard("card-1", "col-b", "2026-02-01T10:00:00Z"),
		makeCard("card-2", "col-a", "2026-02-01T10:00:00Z"),
	}

	first, err := Merge(
		models.Snapshot{Collections: []models.Collection{colB, colA}, Cards: cards},
		models.Snapshot{},
	)
	require.NoError(t, err)

	// Same content presented in the opposite order produces the same result.
	second, err := Merge(
		models.Snapshot{},
		models.Snapshot{Collections: []models.Collection{colA, colB}, Cards: []models.Card{cards[2], cards[0], cards[1]}},
	)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "card-1", first.Cards[0].ID)
	assert.Equal(t, "card-2", first.Cards[1].ID)
	assert.Equal(t, "card-3", first.Cards[2].ID)
}

func TestMerge_Idempotent(t *testing.T) {
	local := models.Snapshot{
		Collections: []models.Collection{makeCollection("col-a", "A", "2026-02-01T10:00:00Z")},
		Cards:       []models.Card{makeCard("card-1", "col-a", "2026-02-01T10:00:00Z")},
	}
	remote := models.Snapshot{
		Collections: []models.Collection{makeCollection("col-a", "renamed", "2026-02-01T11:00:00Z")},
		Cards:       []models.Card{makeCard("card-1", "col-a", "2026-02-01T12:00:00Z")},
	}

	once, err := Merge(local, remote)
	require.NoError(t, err)

	twice, err := Merge(once, remote)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestMerge_RejectsInvalidResult(t *testing.T) {
	bad := makeCard("card-1", "col-a", "2026-02-01T10:00:00Z")
	bad.EaseFactor = 0.5

	_, err := Merge(
		models.Snapshot{Collections: []models.Collection{makeCollection("col-a", "A", "")}},
		models.Snapshot{Collections: []models.Collection{makeCollection("col-a", "A", "")}, Cards: []models.Card{bad}},
	)
	require.Error(t, err)
	assert.Equal(t, syncerr.CodeValidationFailed, syncerr.CodeOf(err))
}
