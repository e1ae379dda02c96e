// -----------------------------------------------------------------------
// Payload Values - literal vs. repeat-construction payload variants
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"strings"
)

// PayloadValue is a payload in either of two forms: a literal string,
// or a repeat construction whose substitution is Value concatenated
// Count times. Callers submit either a bare JSON string or an object
// {"value": ..., "repeat": n}.
type PayloadValue struct {
	Value  string `json:"value"`
	Repeat int    `json:"repeat,omitempty"`
}

// Literal builds a plain payload value.
func Literal(s string) PayloadValue {
	return PayloadValue{Value: s}
}

// Repeated builds a repeat-construction payload value.
func Repeated(s string, n int) PayloadValue {
	return PayloadValue{Value: s, Repeat: n}
}

// Materialize resolves the value to the concrete substitution string:
// Value repeated Repeat times when Repeat > 0, the literal Value
// otherwise.
func (v PayloadValue) Materialize() string {
	if v.Repeat > 0 {
		return strings.Repeat(v.Value, v.Repeat)
	}
	return v.Value
}

// UnmarshalJSON accepts both the bare-string and the object form.
func (v *PayloadValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.Value = s
		v.Repeat = 0
		return nil
	}

	type alias PayloadValue
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return NewInvalidInput("payload value must be a string or {value, repeat}: %v", err)
	}
	*v = PayloadValue(obj)
	return nil
}

// MarshalJSON emits the bare-string form for literals so round-trips
// stay byte-compatible with caller input.
func (v PayloadValue) MarshalJSON() ([]byte, error) {
	if v.Repeat == 0 {
		return json.Marshal(v.Value)
	}
	type alias PayloadValue
	return json.Marshal(alias(v))
}

// MaterializeValues resolves a list of payload values in order.
func MaterializeValues(values []PayloadValue) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.Materialize()
	}
	return out
}

// Mutation describes one substitution token with its strategy label and
// the values to apply. Tokens are arbitrary caller-specified strings;
// the strategy label is provenance only and does not alter expansion.
type Mutation struct {
	Token    string         `json:"token" validate:"required"`
	Strategy string         `json:"strategy"`
	Values   []PayloadValue `json:"values"`
}

// PlaceholderName derives the declared placeholder name from a token by
// stripping the surrounding angle brackets, so "<<USER>>" names "USER".
func (m Mutation) PlaceholderName() string {
	return strings.Trim(m.Token, "<>")
}
