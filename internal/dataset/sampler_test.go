package dataset

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcarvalho/mtbench-runner/internal/config"
	"github.com/lcarvalho/mtbench-runner/internal/model"
	"github.com/lcarvalho/mtbench-runner/internal/output"
)

// captureLogs routes the package logger into a buffer for the duration of
// the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var logs bytes.Buffer
	output.SetLogger(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() {
		output.SetLogger(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	})
	return &logs
}

func makeRecords(category string, n int) []model.Record {
	var out []model.Record
	for i := 0; i < n; i++ {
		out = append(out, model.Record{
			ID:       model.QuestionID(fmt.Sprintf("%s-%d", category, i)),
			Category: category,
			Turns:    []string{"first question", "second question"},
		})
	}
	return out
}

func selectedIDs(records []model.Record) map[string][]string {
	byCat := map[string][]string{}
	for _, r := range records {
		byCat[r.CategoryOrDefault()] = append(byCat[r.CategoryOrDefault()], string(r.ID))
	}
	return byCat
}

func TestSampleDisabledReturnsInputUnchanged(t *testing.T) {
	records := makeRecords("math", 7)
	got := Sample(records, config.SamplingConfig{Enabled: false, QuestionsPerCategory: 2, RandomSeed: 1})
	assert.Equal(t, records, got)
}

func TestSampleDeterminism(t *testing.T) {
	records := append(makeRecords("math", 20), makeRecords("writing", 15)...)
	sc := config.SamplingConfig{Enabled: true, QuestionsPerCategory: 5, RandomSeed: 42}

	first := Sample(append([]model.Record(nil), records...), sc)
	second := Sample(append([]model.Record(nil), records...), sc)

	require.Len(t, first, 10)
	assert.Equal(t, selectedIDs(first), selectedIDs(second))
	// The shuffle reseeds too, so even the order is reproducible.
	assert.Equal(t, first, second)
}

func TestSamplePerCategoryDrawIgnoresOtherCategories(t *testing.T) {
	math := makeRecords("math", 20)
	sc := config.SamplingConfig{Enabled: true, QuestionsPerCategory: 5, RandomSeed: 42}

	alone := Sample(append([]model.Record(nil), math...), sc)
	mixed := Sample(append(makeRecords("writing", 9), math...), sc)

	// The math draw must be identical whether or not other categories exist.
	assert.ElementsMatch(t, selectedIDs(alone)["math"], selectedIDs(mixed)["math"])
}

func TestSampleUndersizedCategoryTakesAllAndWarns(t *testing.T) {
	logs := captureLogs(t)

	records := append(makeRecords("math", 10), makeRecords("tiny", 3)...)
	sc := config.SamplingConfig{Enabled: true, QuestionsPerCategory: 5, RandomSeed: 7}

	got := Sample(records, sc)

	ids := selectedIDs(got)
	assert.Len(t, ids["math"], 5)
	assert.ElementsMatch(t, []string{"tiny-0", "tiny-1", "tiny-2"}, ids["tiny"])

	// The short category warns; the full one does not.
	assert.Contains(t, logs.String(), "below sampling quota")
	assert.Contains(t, logs.String(), "category=tiny")
	assert.NotContains(t, logs.String(), "category=math")
}

func TestSampleThreeCategoryScenario(t *testing.T) {
	logs := captureLogs(t)

	// 10/3/1 records with a quota of 5: 5 + 3 + 1 = 9 selected.
	records := makeRecords("reasoning", 10)
	records = append(records, makeRecords("coding", 3)...)
	records = append(records, makeRecords("roleplay", 1)...)

	got := Sample(records, config.SamplingConfig{Enabled: true, QuestionsPerCategory: 5, RandomSeed: 42})

	require.Len(t, got, 9)
	ids := selectedIDs(got)
	assert.Len(t, ids["reasoning"], 5)
	assert.Len(t, ids["coding"], 3)
	assert.Len(t, ids["roleplay"], 1)

	// Both undersized categories warn; the full one stays quiet.
	assert.Contains(t, logs.String(), "category=coding")
	assert.Contains(t, logs.String(), "category=roleplay")
	assert.NotContains(t, logs.String(), "category=reasoning")
}

func TestSampleDrawsWithoutReplacement(t *testing.T) {
	records := makeRecords("math", 8)
	got := Sample(records, config.SamplingConfig{Enabled: true, QuestionsPerCategory: 6, RandomSeed: 3})

	ids := lo.Map(got, func(r model.Record, _ int) string { return string(r.ID) })
	assert.Len(t, lo.Uniq(ids), len(ids))
}
