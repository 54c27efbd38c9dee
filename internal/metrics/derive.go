/*
PURPOSE:
  Converts raw llama.cpp timing payloads into normalized per-turn metrics.

REQUIREMENTS:
  User-specified:
  - ttft_ms = prompt_ms (prompt processing as the time-to-first-token proxy).
  - tpot_ms = predicted_ms / predicted_n when predicted_n > 0, else 0.
  - tokens_per_sec = server-reported predicted_per_second, except the
    degenerate immediate-stop case: exactly 1 token generated in under 1ms is
    capped at 100 T/s, because the server's rate there is a
    division-by-near-zero artifact, not real throughput.
  - prompt_tokens / generated_tokens = prompt_n / predicted_n, 0 when absent.

  Implementation-discovered:
  - The cap is a two-part condition; it is NOT a general clamp on fast
    completions.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Consumes/produces: internal/model types.

ERROR HANDLING:
  - None: every timings block derives to something, degenerate inputs yield
    zeros rather than errors.

IMPLEMENTATION RULES:
  - Pure function, no I/O.

USAGE:
  d := metrics.Derive(resp.Timings)

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Revisit DegenerateCapTPS if single-token completions start being
    interesting in their own right.
*/

package metrics

import "github.com/lcarvalho/mtbench-runner/internal/model"

// DegenerateCapTPS bounds the reported throughput when the server emitted a
// single token near-instantly (typically an immediate end-of-sequence).
const DegenerateCapTPS = 100.0

// Derive computes the per-turn metric set from a server timings block.
func Derive(t model.Timings) model.Derived {
	tps := t.PredictedPerSecond
	if t.PredictedN == 1 && t.PredictedMs < 1.0 {
		tps = min(tps, DegenerateCapTPS)
	}

	var tpot float64
	if t.PredictedN > 0 {
		tpot = t.PredictedMs / float64(t.PredictedN)
	}

	return model.Derived{
		TTFTMs:          t.PromptMs,
		TPOTMs:          tpot,
		TokensPerSec:    tps,
		PromptTokens:    t.PromptN,
		GeneratedTokens: t.PredictedN,
	}
}
