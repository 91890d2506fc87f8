package export

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexora-app/lexora-sync/internal/client/models"
	"github.com/lexora-app/lexora-sync/internal/syncerr"
)

func TestEncodeJSON_EmptySnapshotHasEmptyArrays(t *testing.T) {
	data, err := EncodeJSON(models.Snapshot{})
	require.NoError(t, err)

	// Other clients expect arrays, never null.
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, "[]", string(raw["collections"]))
	assert.JSONEq(t, "[]", string(raw["cards"]))
}

func TestEncodeJSON_RejectsInvalidSnapshot(t *testing.T) {
	s := models.Snapshot{
		Cards: []models.Card{{ID: "card-1"}},
	}

	_, err := EncodeJSON(s)
	require.Error(t, err)
	assert.Equal(t, syncerr.CodeValidationFailed, syncerr.CodeOf(err))
}

func TestDecode_RoundTrip(t *testing.T) {
	s := models.Snapshot{
		Collections: []models.Collection{{ID: "col-a", Name: "A", CreatedAt: "2026-01-01T00:00:00Z"}},
		Cards: []models.Card{{
			ID:           "card-1",
			CollectionID: "col-a",
			Front:        "question",
			Back:         "answer",
			EaseFactor:   2.5,
			DueDate:      "2026-01-02T00:00:00Z",
			CreatedAt:    "2026-01-01T00:00:00Z",
			UpdatedAt:    "2026-01-01T00:00:00Z",
		}},
	}

	data, err := EncodeJSON(s)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestDecode_BrokenJSONIsCorrupted(t *testing.T) {
	_, err := Decode([]byte("{not json"))

	require.Error(t, err)
	assert.Equal(t, syncerr.CodeCorruptedJSON, syncerr.CodeOf(err))
}

func TestDecode_SchemaViolationIsValidationFailure(t *testing.T) {
	_, err := Decode([]byte(`{"collections":[{"id":"","name":"A","createdAt":"2026-01-01T00:00:00Z"}],"cards":[]}`))

	require.Error(t, err)
	assert.Equal(t, syncerr.CodeValidationFailed, syncerr.CodeOf(err))
}

func TestDecode_LenientAboutTimestampFormat(t *testing.T) {
	// Unparseable stamps are a merge-policy concern, not a schema violation.
	raw := `{"collections":[{"id":"col-a","name":"A","createdAt":"2026-01-01T00:00:00Z"}],` +
		`"cards":[{"id":"card-1","collectionId":"col-a","front":"f","back":"b","easeFactor":2.5,` +
		`"intervalDays":0,"repetitions":0,"dueDate":"2026-01-02T00:00:00Z",` +
		`"createdAt":"2026-01-01T00:00:00Z","updatedAt":"not-a-date"}]}`

	got, err := Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "not-a-date", got.Cards[0].UpdatedAt)
}
