/*
PURPOSE:
  Defines the core data structures used throughout MTBench Runner.
  These models represent dataset records, server timing payloads, and the
  per-turn metric rows that end up in the report.

REQUIREMENTS:
  User-specified:
  - One metric row per completed turn (model, threads, question, category,
    turn number, ttft/tpot/throughput, token counts).
  - Dataset records may store turns as a flat list or as a history of
    {user, ...} objects; both must normalize to an ordered list of user
    utterances.

  Implementation-discovered:
  - Need JSON tags matching the llama.cpp /completion payload exactly
    (prompt_ms, predicted_ms, predicted_n, predicted_per_second, ...).
  - Records with fewer than two user turns are filtered, not errored.

ARCHITECTURE INTEGRATION:
  - Used by: internal/dataset, internal/engine, internal/metrics,
    internal/output
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs plus normalization accessors).

IMPLEMENTATION RULES:
  - Keep structs simple and public.
  - Timing fields stay float64 milliseconds as reported by the server; no
    conversion to time.Duration at this layer.

USAGE:
  turns := record.UserTurns()
  row := model.TurnMetric{...}

SELF-HEALING INSTRUCTIONS:
  - If llama.cpp renames timing fields, update Timings tags and the
    metrics deriver.

RELATED FILES:
  - internal/metrics/derive.go
  - internal/output/csv.go

MAINTENANCE:
  - Update when adding new metrics to capture.
*/

package model

import (
	"encoding/json"
	"fmt"
)

// QuestionID tolerates both the numeric and string id forms seen across
// MT-Bench-101 corpus revisions.
type QuestionID string

// UnmarshalJSON accepts `"q-12"` as well as `12`.
func (q *QuestionID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*q = QuestionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("question id must be a string or number: %w", err)
	}
	*q = QuestionID(n.String())
	return nil
}

// HistoryEntry is one exchange in the "history" form of a dataset record.
// Only the user side matters for replay; other keys are ignored.
type HistoryEntry struct {
	User string `json:"user"`
}

// Record is one raw conversation entry from the MT-Bench-101 JSONL corpus,
// prior to turn normalization.
type Record struct {
	ID       QuestionID     `json:"id"`
	Category string         `json:"category"`
	Task     string         `json:"task"`
	Turns    []string       `json:"turns"`
	History  []HistoryEntry `json:"history"`
}

// UserTurns extracts the ordered user utterances. The "history" form wins
// when present; entries without a user field are dropped.
func (r Record) UserTurns() []string {
	if r.History != nil {
		var turns []string
		for _, h := range r.History {
			if h.User != "" {
				turns = append(turns, h.User)
			}
		}
		return turns
	}
	return r.Turns
}

// CategoryOrDefault resolves the grouping key: explicit category, then the
// task field, then "unknown".
func (r Record) CategoryOrDefault() string {
	if r.Category != "" {
		return r.Category
	}
	if r.Task != "" {
		return r.Task
	}
	return "unknown"
}

// Timings is the server-reported timing block from a /completion response.
// The payload carries more fields than these; only the consumed ones are
// mapped.
type Timings struct {
	PromptN            int     `json:"prompt_n"`
	PromptMs           float64 `json:"prompt_ms"`
	PredictedN         int     `json:"predicted_n"`
	PredictedMs        float64 `json:"predicted_ms"`
	PredictedPerSecond float64 `json:"predicted_per_second"`
}

// TurnMetric is one report row: the derived metrics for a single turn of a
// single question against a single model.
type TurnMetric struct {
	ModelName       string  `json:"model_name"`
	Threads         int     `json:"threads"`
	QuestionID      string  `json:"question_id"`
	Category        string  `json:"category"`
	Turn            int     `json:"turn"`
	TTFTMs          float64 `json:"ttft_ms"`
	TPOTMs          float64 `json:"tpot_ms"`
	TokensPerSec    float64 `json:"tokens_per_sec"`
	PromptTokens    int     `json:"prompt_tokens"`
	GeneratedTokens int     `json:"generated_tokens"`
}

// Derived is the metric subset computed from a Timings block, before it is
// joined with run context (model, question, turn) into a TurnMetric.
type Derived struct {
	TTFTMs          float64
	TPOTMs          float64
	TokensPerSec    float64
	PromptTokens    int
	GeneratedTokens int
}

// String implements a compact log form for progress output.
func (d Derived) String() string {
	return fmt.Sprintf("%.2f T/s | %d tokens | ttft %.2fms", d.TokensPerSec, d.GeneratedTokens, d.TTFTMs)
}
