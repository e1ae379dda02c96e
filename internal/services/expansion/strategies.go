// -----------------------------------------------------------------------
// Expansion strategies - template substitution algorithms
// -----------------------------------------------------------------------

package expansion

import (
	"strings"

	"github.com/ternarybob/tento/internal/models"
)

// sniperToken is the fixed anonymous placeholder used by the sniper
// strategy. The other strategies substitute declared <<NAME>> tokens.
const sniperToken = "<<>>"

func placeholderToken(name string) string {
	return "<<" + name + ">>"
}

// Expand generates the full request sequence for one of the four
// declared-placeholder strategies. The first row is always the seed:
// the template with every placeholder occurrence replaced by the empty
// string. Output is deterministic for identical input.
func Expand(template string, placeholders []string, strategy models.Strategy, sets []models.PayloadSet, maxRequests int) ([]*models.GeneratedRequest, error) {
	total, err := expectedTotal(template, placeholders, strategy, sets)
	if err != nil {
		return nil, err
	}
	if maxRequests > 0 && total > maxRequests {
		return nil, models.NewInvalidInput("expansion would generate %d requests, exceeding the limit of %d", total, maxRequests)
	}

	switch strategy {
	case models.StrategySniper:
		return expandSniper(template, sets[0], total), nil
	case models.StrategyBatteringRam:
		return expandBatteringRam(template, placeholders, sets[0], total), nil
	case models.StrategyPitchfork:
		return expandPitchfork(template, placeholders, sets, total), nil
	case models.StrategyClusterBomb:
		return expandClusterBomb(template, placeholders, sets, total), nil
	}
	return nil, models.NewInvalidInput("invalid strategy: %s", strategy)
}

// expectedTotal validates the strategy's payload-set shape and computes
// the row count before any substitution happens, so a cross-product
// blowup is rejected without generating it.
func expectedTotal(template string, placeholders []string, strategy models.Strategy, sets []models.PayloadSet) (int, error) {
	switch strategy {
	case models.StrategySniper, models.StrategyBatteringRam:
		if len(sets) == 0 {
			return 0, models.NewInvalidInput("strategy %s requires at least one payload set", strategy)
		}
		if strategy == models.StrategySniper {
			return 1 + strings.Count(template, sniperToken)*len(sets[0].Payloads), nil
		}
		return 1 + len(sets[0].Payloads), nil

	case models.StrategyPitchfork, models.StrategyClusterBomb:
		if len(sets) != len(placeholders) {
			return 0, models.NewInvalidInput("strategy %s requires exactly one payload set per placeholder, got %d sets for %d placeholders",
				strategy, len(sets), len(placeholders))
		}
		if strategy == models.StrategyPitchfork {
			if len(sets) == 0 {
				return 0, models.NewInvalidInput("strategy pitchfork requires at least one payload set")
			}
			minSize := len(sets[0].Payloads)
			for _, set := range sets[1:] {
				if len(set.Payloads) < minSize {
					minSize = len(set.Payloads)
				}
			}
			return 1 + minSize, nil
		}
		product := 1
		for _, set := range sets {
			product *= len(set.Payloads)
		}
		return 1 + product, nil
	}
	return 0, models.NewInvalidInput("invalid strategy: %s", strategy)
}

// expandSniper substitutes each payload at each occurrence position of
// the anonymous token, blanking every other occurrence. Payload varies
// slowest, position fastest.
func expandSniper(template string, set models.PayloadSet, total int) []*models.GeneratedRequest {
	rows := make([]*models.GeneratedRequest, 0, total)
	rows = append(rows, &models.GeneratedRequest{
		Content:    strings.ReplaceAll(template, sniperToken, ""),
		Provenance: models.SeedProvenance(),
	})

	count := strings.Count(template, sniperToken)
	for _, payload := range set.Payloads {
		for position := 0; position < count; position++ {
			rows = append(rows, &models.GeneratedRequest{
				Content:    substituteAt(template, sniperToken, payload, position),
				Provenance: models.SniperProvenance(payload, position+1),
			})
		}
	}
	return rows
}

// substituteAt replaces the position-th occurrence of token with
// payload and blanks the remaining occurrences.
func substituteAt(template, token, payload string, position int) string {
	idx := -1
	start := 0
	for current := 0; ; current++ {
		pos := strings.Index(template[start:], token)
		if pos < 0 {
			break
		}
		pos += start
		if current == position {
			idx = pos
			break
		}
		start = pos + 1
	}

	result := template
	if idx >= 0 {
		result = template[:idx] + payload + template[idx+len(token):]
	}
	return strings.ReplaceAll(result, token, "")
}

// expandBatteringRam substitutes each payload at every declared
// placeholder simultaneously.
func expandBatteringRam(template string, placeholders []string, set models.PayloadSet, total int) []*models.GeneratedRequest {
	rows := make([]*models.GeneratedRequest, 0, total)
	rows = append(rows, &models.GeneratedRequest{
		Content:    blankPlaceholders(template, placeholders),
		Provenance: models.AppliedSeedProvenance(),
	})

	for _, payload := range set.Payloads {
		result := template
		for _, name := range placeholders {
			result = strings.ReplaceAll(result, placeholderToken(name), payload)
		}
		rows = append(rows, &models.GeneratedRequest{
			Content:    result,
			Provenance: models.AppliedProvenance(payload, placeholders),
		})
	}
	return rows
}

// expandPitchfork walks the aligned sets in parallel up to the
// smallest set's size.
func expandPitchfork(template string, placeholders []string, sets []models.PayloadSet, total int) []*models.GeneratedRequest {
	rows := make([]*models.GeneratedRequest, 0, total)
	rows = append(rows, &models.GeneratedRequest{
		Content:    blankPlaceholders(template, placeholders),
		Provenance: models.MappedSeedProvenance(),
	})

	for i := 0; i < total-1; i++ {
		result := template
		assigned := make(map[string]string, len(placeholders))
		for k, name := range placeholders {
			payload := sets[k].Payloads[i]
			result = strings.ReplaceAll(result, placeholderToken(name), payload)
			assigned[name] = payload
		}
		rows = append(rows, &models.GeneratedRequest{
			Content:    result,
			Provenance: models.MappedProvenance(assigned),
		})
	}
	return rows
}

// expandClusterBomb emits the full cross-product with the first
// placeholder varying slowest. An empty set zeroes the product, so
// only the seed row comes out.
func expandClusterBomb(template string, placeholders []string, sets []models.PayloadSet, total int) []*models.GeneratedRequest {
	rows := make([]*models.GeneratedRequest, 0, total)
	rows = append(rows, &models.GeneratedRequest{
		Content:    blankPlaceholders(template, placeholders),
		Provenance: models.MappedSeedProvenance(),
	})
	if total == 1 {
		return rows
	}

	indices := make([]int, len(sets))
	for {
		result := template
		assigned := make(map[string]string, len(placeholders))
		for k, name := range placeholders {
			payload := sets[k].Payloads[indices[k]]
			result = strings.ReplaceAll(result, placeholderToken(name), payload)
			assigned[name] = payload
		}
		rows = append(rows, &models.GeneratedRequest{
			Content:    result,
			Provenance: models.MappedProvenance(assigned),
		})

		// Odometer advance: the last set ticks fastest.
		k := len(indices) - 1
		for ; k >= 0; k-- {
			indices[k]++
			if indices[k] < len(sets[k].Payloads) {
				break
			}
			indices[k] = 0
		}
		if k < 0 {
			break
		}
	}
	return rows
}

// ExpandMutation generates one row per (mutation, value): only that
// mutation's token is substituted, all its occurrences at once, the
// other tokens left untouched. The seed blanks every token.
func ExpandMutation(template string, mutations []models.Mutation, maxRequests int) ([]*models.GeneratedRequest, error) {
	total := 1
	for _, m := range mutations {
		total += len(m.Values)
	}
	if maxRequests > 0 && total > maxRequests {
		return nil, models.NewInvalidInput("expansion would generate %d requests, exceeding the limit of %d", total, maxRequests)
	}

	seed := template
	for _, m := range mutations {
		seed = strings.ReplaceAll(seed, m.Token, "")
	}
	rows := make([]*models.GeneratedRequest, 0, total)
	rows = append(rows, &models.GeneratedRequest{
		Content:    seed,
		Provenance: models.SeedProvenance(),
	})

	for _, m := range mutations {
		for i, payload := range models.MaterializeValues(m.Values) {
			rows = append(rows, &models.GeneratedRequest{
				Content:    strings.ReplaceAll(template, m.Token, payload),
				Provenance: models.MutationProvenance(m.Token, payload, i+1, m.Strategy),
			})
		}
	}
	return rows, nil
}

func blankPlaceholders(template string, placeholders []string) string {
	result := template
	for _, name := range placeholders {
		result = strings.ReplaceAll(result, placeholderToken(name), "")
	}
	return result
}
