package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadValueUnmarshalBareString(t *testing.T) {
	var v PayloadValue
	require.NoError(t, json.Unmarshal([]byte(`"admin"`), &v))
	assert.Equal(t, "admin", v.Value)
	assert.Zero(t, v.Repeat)
	assert.Equal(t, "admin", v.Materialize())
}

func TestPayloadValueUnmarshalObject(t *testing.T) {
	var v PayloadValue
	require.NoError(t, json.Unmarshal([]byte(`{"value":"A","repeat":5}`), &v))
	assert.Equal(t, "AAAAA", v.Materialize())
}

func TestPayloadValueRepeatZeroKeepsLiteral(t *testing.T) {
	var v PayloadValue
	require.NoError(t, json.Unmarshal([]byte(`{"value":"once","repeat":0}`), &v))
	assert.Equal(t, "once", v.Materialize())
}

func TestPayloadValueUnmarshalRejectsOtherTypes(t *testing.T) {
	var v PayloadValue
	err := json.Unmarshal([]byte(`42`), &v)
	require.Error(t, err)
}

func TestPayloadValueMarshalRoundTrip(t *testing.T) {
	data, err := json.Marshal(Literal("plain"))
	require.NoError(t, err)
	assert.JSONEq(t, `"plain"`, string(data))

	data, err = json.Marshal(Repeated("A", 3))
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"A","repeat":3}`, string(data))
}

func TestMaterializeValues(t *testing.T) {
	got := MaterializeValues([]PayloadValue{
		Literal("x"),
		Repeated("ab", 2),
		Literal(""),
	})
	assert.Equal(t, []string{"x", "abab", ""}, got)
}

func TestMutationPlaceholderName(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"<<username>>", "username"},
		{"<<PASS>>", "PASS"},
		{"<token>", "token"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		m := Mutation{Token: tt.token}
		assert.Equal(t, tt.want, m.PlaceholderName())
	}
}
