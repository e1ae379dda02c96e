package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	for _, s := range Strategies {
		got, err := ParseStrategy(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStrategy("shotgun")
	require.Error(t, err)
	assert.Equal(t, ErrInvalidInput, KindOf(err))
}

func rowJSON(t *testing.T, g GeneratedRequest) map[string]any {
	t.Helper()
	data, err := json.Marshal(g)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestGeneratedRequestJSONPositionalSeed(t *testing.T) {
	row := rowJSON(t, GeneratedRequest{
		Content:    "GET /login HTTP/1.1",
		Provenance: SeedProvenance(),
	})

	assert.Equal(t, map[string]any{
		"request":     "GET /login HTTP/1.1",
		"placeholder": "original",
		"payload":     "",
		"position":    float64(0),
	}, row)
}

func TestGeneratedRequestJSONSniperRow(t *testing.T) {
	row := rowJSON(t, GeneratedRequest{
		Content:    "GET /login?user=admin HTTP/1.1",
		Provenance: SniperProvenance("admin", 2),
	})

	assert.Equal(t, "<<>>", row["placeholder"])
	assert.Equal(t, "admin", row["payload"])
	assert.Equal(t, float64(2), row["position"])
	assert.NotContains(t, row, "applied_to")
	assert.NotContains(t, row, "payloads")
	assert.NotContains(t, row, "strategy")
}

func TestGeneratedRequestJSONAppliedShapes(t *testing.T) {
	seed := rowJSON(t, GeneratedRequest{
		Content:    "seed",
		Provenance: AppliedSeedProvenance(),
	})
	assert.Equal(t, "original", seed["placeholder"])
	assert.Equal(t, "", seed["payload"])
	assert.Equal(t, []any{}, seed["applied_to"])
	assert.NotContains(t, seed, "position")

	row := rowJSON(t, GeneratedRequest{
		Content:    "row",
		Provenance: AppliedProvenance("x", []string{"user", "pass"}),
	})
	assert.NotContains(t, row, "placeholder")
	assert.Equal(t, "x", row["payload"])
	assert.Equal(t, []any{"user", "pass"}, row["applied_to"])
}

func TestGeneratedRequestJSONMappedShapes(t *testing.T) {
	seed := rowJSON(t, GeneratedRequest{
		Content:    "seed",
		Provenance: MappedSeedProvenance(),
	})
	assert.Equal(t, "original", seed["placeholder"])
	assert.Equal(t, map[string]any{}, seed["payloads"])
	assert.NotContains(t, seed, "payload")

	row := rowJSON(t, GeneratedRequest{
		Content:    "row",
		Provenance: MappedProvenance(map[string]string{"user": "a", "pass": "b"}),
	})
	assert.NotContains(t, row, "placeholder")
	assert.Equal(t, map[string]any{"user": "a", "pass": "b"}, row["payloads"])
}

func TestGeneratedRequestJSONMutatedRow(t *testing.T) {
	row := rowJSON(t, GeneratedRequest{
		Content:    "row",
		Provenance: MutationProvenance("<<USER>>", "admin", 1, "dictionary"),
	})
	assert.Equal(t, "<<USER>>", row["placeholder"])
	assert.Equal(t, "admin", row["payload"])
	assert.Equal(t, float64(1), row["position"])
	assert.Equal(t, "dictionary", row["strategy"])
}

func TestProvenanceSeedAndValues(t *testing.T) {
	assert.True(t, SeedProvenance().IsSeed())
	assert.True(t, MappedSeedProvenance().IsSeed())
	assert.False(t, SniperProvenance("x", 1).IsSeed())

	assert.Nil(t, SeedProvenance().Values())
	assert.Equal(t, []string{"x"}, SniperProvenance("x", 1).Values())
	assert.ElementsMatch(t, []string{"a", "b"},
		MappedProvenance(map[string]string{"u": "a", "p": "b"}).Values())
}

func TestNewCorpusRunDefaults(t *testing.T) {
	run := NewCorpusRun("tpl", nil, StrategySniper, nil, 3)
	assert.NotNil(t, run.Placeholders)
	assert.NotNil(t, run.PayloadSets)
	assert.Equal(t, 3, run.TotalRequests)
	assert.False(t, run.CreatedAt.IsZero())
}
