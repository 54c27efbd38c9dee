package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserTurnsFromHistory(t *testing.T) {
	r := Record{
		History: []HistoryEntry{{User: "first"}, {User: "second"}, {User: ""}},
		// Turns is ignored when history is present.
		Turns: []string{"legacy-a", "legacy-b"},
	}
	assert.Equal(t, []string{"first", "second"}, r.UserTurns())
}

func TestUserTurnsLegacyForm(t *testing.T) {
	r := Record{Turns: []string{"a", "b"}}
	assert.Equal(t, []string{"a", "b"}, r.UserTurns())
}

func TestUserTurnsUnderTwoIsFilterable(t *testing.T) {
	cases := []Record{
		{},
		{Turns: []string{"only one"}},
		{History: []HistoryEntry{{User: "only one"}}},
		{History: []HistoryEntry{{}, {}}},
	}
	for _, r := range cases {
		assert.Less(t, len(r.UserTurns()), 2)
	}
}

func TestCategoryOrDefault(t *testing.T) {
	assert.Equal(t, "math", Record{Category: "math", Task: "algebra"}.CategoryOrDefault())
	assert.Equal(t, "algebra", Record{Task: "algebra"}.CategoryOrDefault())
	assert.Equal(t, "unknown", Record{}.CategoryOrDefault())
}

func TestQuestionIDAcceptsNumberAndString(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"id": 101}`), &r))
	assert.Equal(t, QuestionID("101"), r.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id": "CM-7"}`), &r))
	assert.Equal(t, QuestionID("CM-7"), r.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"id": [1]}`), &r))
}
