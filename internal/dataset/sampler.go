/*
PURPOSE:
  Reduces the full corpus to a reproducible, category-balanced subset.

REQUIREMENTS:
  User-specified:
  - Disabled sampling returns the input unchanged.
  - Group records by category (category field, then task, then "unknown").
  - For each category, reseed a PRNG with the configured seed before drawing,
    then draw questions_per_category without replacement. The per-category
    reseed is intentional: the same draw is reproduced per category
    regardless of category iteration order.
  - A category with fewer records than the quota contributes all of them and
    emits a warning.
  - Shuffle the combined result before returning.

  Implementation-discovered:
  - The shuffle also uses a generator freshly reseeded with the same seed, so
    both the selected-ID sets and the final order are fully deterministic for
    a given (records, quota, seed) triple.
  - Categories are iterated in sorted order for stable logs.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine, internal/cli
  - Uses: internal/config, internal/model, internal/output

ERROR HANDLING:
  - None: undersized categories are a warning, not an error.

IMPLEMENTATION RULES:
  - math/rand with explicit sources; never the global generator.
  - Draw via rand.Perm over category indices (without replacement).

USAGE:
  subset := dataset.Sample(records, cfg.Sampling)

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/dataset/loader.go

MAINTENANCE:
  - Keep the reseed points stable; downstream analysis depends on runs being
    comparable across machines.
*/

package dataset

import (
	"math/rand"
	"sort"

	"github.com/samber/lo"

	"github.com/lcarvalho/mtbench-runner/internal/config"
	"github.com/lcarvalho/mtbench-runner/internal/model"
	"github.com/lcarvalho/mtbench-runner/internal/output"
)

// Sample applies category-balanced sampling. With sampling disabled the
// input is returned as-is.
func Sample(records []model.Record, sc config.SamplingConfig) []model.Record {
	if !sc.Enabled {
		return records
	}

	byCategory := lo.GroupBy(records, func(r model.Record) string {
		return r.CategoryOrDefault()
	})

	categories := lo.Keys(byCategory)
	sort.Strings(categories)

	var sampled []model.Record
	for _, cat := range categories {
		group := byCategory[cat]

		if len(group) < sc.QuestionsPerCategory {
			output.Logger.Warn("Category below sampling quota, taking all records",
				"category", cat, "have", len(group), "want", sc.QuestionsPerCategory)
			sampled = append(sampled, group...)
			continue
		}

		// Reseed per category so the draw does not depend on how many
		// categories were visited before this one.
		rng := rand.New(rand.NewSource(sc.RandomSeed))
		for _, idx := range rng.Perm(len(group))[:sc.QuestionsPerCategory] {
			sampled = append(sampled, group[idx])
		}
	}

	// Fresh reseed for the final shuffle keeps output order reproducible
	// independent of the last category draw.
	rng := rand.New(rand.NewSource(sc.RandomSeed))
	rng.Shuffle(len(sampled), func(i, j int) {
		sampled[i], sampled[j] = sampled[j], sampled[i]
	})

	output.Logger.Info("Sampled dataset",
		"categories", len(categories), "selected", len(sampled), "seed", sc.RandomSeed)
	return sampled
}
