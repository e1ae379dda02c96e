// -----------------------------------------------------------------------
// Corpus Run - immutable record of one template expansion
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"time"
)

// Strategy identifies one of the five expansion algorithms.
type Strategy string

const (
	StrategySniper       Strategy = "sniper"
	StrategyBatteringRam Strategy = "battering_ram"
	StrategyPitchfork    Strategy = "pitchfork"
	StrategyClusterBomb  Strategy = "cluster_bomb"
	StrategyMutation     Strategy = "mutation"
)

// Strategies lists the declared strategies in catalog order, used for
// statistics buckets and validation messages.
var Strategies = []Strategy{
	StrategySniper,
	StrategyBatteringRam,
	StrategyPitchfork,
	StrategyClusterBomb,
	StrategyMutation,
}

// ParseStrategy validates a strategy tag from caller input.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySniper, StrategyBatteringRam, StrategyPitchfork, StrategyClusterBomb, StrategyMutation:
		return Strategy(s), nil
	}
	return "", NewInvalidInput("invalid strategy: %s", s)
}

// PayloadSet is an ordered list of substitution strings under a name.
type PayloadSet struct {
	Name     string   `json:"name"`
	Payloads []string `json:"payloads"`
}

// ProvenanceKind selects which field set of the Provenance union is
// meaningful and therefore which keys the row serializes.
type ProvenanceKind string

const (
	// ProvenancePositional carries placeholder, payload, and position.
	// Sniper rows and the seeded first row of positional strategies.
	ProvenancePositional ProvenanceKind = "positional"
	// ProvenanceMutated is positional plus the mutation strategy label.
	ProvenanceMutated ProvenanceKind = "mutated"
	// ProvenanceApplied carries the payload and the placeholder names it
	// was applied to. Battering Ram rows.
	ProvenanceApplied ProvenanceKind = "applied"
	// ProvenanceMapped carries a placeholder-to-payload map. Pitchfork
	// and Cluster Bomb rows.
	ProvenanceMapped ProvenanceKind = "mapped"
)

// Provenance records which substitution produced a generated request.
// It is a union: Kind names the shape, and only that shape's fields
// are populated. The seeded first row of every run carries the literal
// marker "original" in Placeholder.
type Provenance struct {
	Kind        ProvenanceKind    `json:"-"`
	Placeholder string            `json:"placeholder,omitempty"`
	Payload     string            `json:"payload,omitempty"`
	Position    int               `json:"position,omitempty"`
	AppliedTo   []string          `json:"applied_to,omitempty"`
	Payloads    map[string]string `json:"payloads,omitempty"`
	Strategy    string            `json:"strategy,omitempty"`
}

// SeedMarker is the Placeholder value of the seeded "original" row.
const SeedMarker = "original"

// SeedProvenance marks the unmodified-template row of positional runs.
func SeedProvenance() Provenance {
	return Provenance{Kind: ProvenancePositional, Placeholder: SeedMarker}
}

// SniperProvenance records one anonymous-placeholder substitution at a
// 1-based position.
func SniperProvenance(payload string, position int) Provenance {
	return Provenance{
		Kind:        ProvenancePositional,
		Placeholder: "<<>>",
		Payload:     payload,
		Position:    position,
	}
}

// MutationProvenance records one token substitution with its mutation
// strategy label.
func MutationProvenance(token, payload string, position int, strategy string) Provenance {
	return Provenance{
		Kind:        ProvenanceMutated,
		Placeholder: token,
		Payload:     payload,
		Position:    position,
		Strategy:    strategy,
	}
}

// AppliedProvenance records one payload applied to every placeholder
// at once.
func AppliedProvenance(payload string, appliedTo []string) Provenance {
	if appliedTo == nil {
		appliedTo = []string{}
	}
	return Provenance{Kind: ProvenanceApplied, Payload: payload, AppliedTo: appliedTo}
}

// AppliedSeedProvenance marks the unmodified-template row of a
// Battering Ram run.
func AppliedSeedProvenance() Provenance {
	return Provenance{Kind: ProvenanceApplied, Placeholder: SeedMarker, AppliedTo: []string{}}
}

// MappedProvenance records one placeholder-to-payload assignment.
func MappedProvenance(payloads map[string]string) Provenance {
	if payloads == nil {
		payloads = map[string]string{}
	}
	return Provenance{Kind: ProvenanceMapped, Payloads: payloads}
}

// MappedSeedProvenance marks the unmodified-template row of Pitchfork
// and Cluster Bomb runs.
func MappedSeedProvenance() Provenance {
	return Provenance{Kind: ProvenanceMapped, Placeholder: SeedMarker, Payloads: map[string]string{}}
}

// IsSeed reports whether this provenance belongs to the seeded row.
func (p Provenance) IsSeed() bool {
	return p.Placeholder == SeedMarker
}

// Values returns every payload string that went into the row,
// regardless of which shape populated it.
func (p Provenance) Values() []string {
	if len(p.Payloads) > 0 {
		values := make([]string, 0, len(p.Payloads))
		for _, v := range p.Payloads {
			values = append(values, v)
		}
		return values
	}
	if p.Payload != "" {
		return []string{p.Payload}
	}
	return nil
}

// GeneratedRequest is one row of a corpus run: the fully substituted
// request blob together with its provenance. Rows serialize flat, with
// the provenance keys of their shape alongside the request content.
//
// Ordinal is the zero-based storage position within the run. API-facing
// numbering (request_number in expansion responses, result ordinals) is
// 1-based; callers add the offset at the boundary.
type GeneratedRequest struct {
	ID         uint64     `json:"-" badgerhold:"key"`
	RunID      uint64     `json:"-" badgerhold:"index"`
	Ordinal    int        `json:"-"`
	Content    string     `json:"request"`
	Provenance Provenance `json:"-"`
}

// MarshalJSON flattens the provenance union into the row object. The
// emitted keys depend on the shape; zero values that belong to the
// shape (empty payload, position 0, empty maps) stay present.
func (g GeneratedRequest) MarshalJSON() ([]byte, error) {
	p := g.Provenance
	switch p.Kind {
	case ProvenanceApplied:
		applied := p.AppliedTo
		if applied == nil {
			applied = []string{}
		}
		return json.Marshal(struct {
			Request     string   `json:"request"`
			Placeholder string   `json:"placeholder,omitempty"`
			Payload     string   `json:"payload"`
			AppliedTo   []string `json:"applied_to"`
		}{g.Content, p.Placeholder, p.Payload, applied})
	case ProvenanceMapped:
		payloads := p.Payloads
		if payloads == nil {
			payloads = map[string]string{}
		}
		return json.Marshal(struct {
			Request     string            `json:"request"`
			Placeholder string            `json:"placeholder,omitempty"`
			Payloads    map[string]string `json:"payloads"`
		}{g.Content, p.Placeholder, payloads})
	case ProvenanceMutated:
		return json.Marshal(struct {
			Request     string `json:"request"`
			Placeholder string `json:"placeholder"`
			Payload     string `json:"payload"`
			Position    int    `json:"position"`
			Strategy    string `json:"strategy"`
		}{g.Content, p.Placeholder, p.Payload, p.Position, p.Strategy})
	default:
		return json.Marshal(struct {
			Request     string `json:"request"`
			Placeholder string `json:"placeholder"`
			Payload     string `json:"payload"`
			Position    int    `json:"position"`
		}{g.Content, p.Placeholder, p.Payload, p.Position})
	}
}

// CorpusRun is one expansion: a template, its declared placeholders,
// the strategy, and the payload sets that produced the generated
// sequence. Immutable after creation.
type CorpusRun struct {
	ID            uint64       `json:"id" badgerhold:"key"`
	Template      string       `json:"template"`
	Placeholders  []string     `json:"placeholders"`
	Strategy      Strategy     `json:"strategy" badgerhold:"index"`
	PayloadSets   []PayloadSet `json:"payload_sets"`
	TotalRequests int          `json:"total_requests"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// NewCorpusRun assembles the immutable run header. The store assigns
// the ID on save.
func NewCorpusRun(template string, placeholders []string, strategy Strategy, payloadSets []PayloadSet, total int) *CorpusRun {
	now := time.Now()
	if placeholders == nil {
		placeholders = []string{}
	}
	if payloadSets == nil {
		payloadSets = []PayloadSet{}
	}
	return &CorpusRun{
		Template:      template,
		Placeholders:  placeholders,
		Strategy:      strategy,
		PayloadSets:   payloadSets,
		TotalRequests: total,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CorpusStatistics aggregates corpus totals for the statistics endpoint.
type CorpusStatistics struct {
	TotalRuns      int            `json:"total_runs"`
	TotalGenerated int            `json:"total_generated"`
	ByStrategy     map[string]int `json:"by_strategy"`
}
