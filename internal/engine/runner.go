/*
PURPOSE:
  High-level runner that orchestrates the benchmark sweep.
  Loops through Models -> Records -> Turns and writes metric rows.

REQUIREMENTS:
  User-specified:
  - Per model: start the server, replay every record's two turns, stop the
    server before the next model starts (single live process slot).
  - Turn numbering is always 1 then 2; a failed turn 1 abandons the whole
    record with no rows at all; a failed turn 2 keeps the turn-1 row.
  - Records without two derivable user turns are filtered, not errors.
  - Rows are written incrementally so a killed sweep loses nothing already
    measured.

  Implementation-discovered:
  - Server stop must run even when the record loop bails out early; done via
    defer inside a per-model closure.
  - Rows go through a small RowWriter interface so the loop can be tested
    against an in-memory sink.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: internal/dataset, internal/server, internal/metrics,
    internal/output

ERROR HANDLING:
  - Dataset failures abort the run. Server readiness failures skip the
    model. Completion failures skip the turn/record. Everything is logged
    with model/question/turn context.

IMPLEMENTATION RULES:
  - Sequential, single client; no parallel model evaluation.

USAGE:
  err := engine.Run(cfg)

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/client.go
  - internal/server/supervisor.go

MAINTENANCE:
  - Update iteration logic if parallelism is ever introduced.
*/

package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/lcarvalho/mtbench-runner/internal/config"
	"github.com/lcarvalho/mtbench-runner/internal/dataset"
	"github.com/lcarvalho/mtbench-runner/internal/metrics"
	"github.com/lcarvalho/mtbench-runner/internal/model"
	"github.com/lcarvalho/mtbench-runner/internal/output"
	"github.com/lcarvalho/mtbench-runner/internal/server"
)

// RowWriter is the report sink seen by the benchmark loop.
type RowWriter interface {
	Write(model.TurnMetric) error
}

// multiSink fans a row out to every configured sink.
type multiSink []RowWriter

func (m multiSink) Write(row model.TurnMetric) error {
	for _, w := range m {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Run executes the full benchmark sweep: load, sample, then evaluate every
// configured model in order.
func Run(ctx context.Context, cfg *config.Config) error {
	records, err := dataset.Load(cfg)
	if err != nil {
		return err
	}
	records = dataset.Sample(records, cfg.Sampling)

	csvw, err := output.NewCSVWriter(cfg.OutputCSV)
	if err != nil {
		return err
	}
	defer csvw.Close()

	sinks := multiSink{csvw}
	if cfg.OutputJSONL != "" {
		jw, err := output.NewJSONLWriter(cfg.OutputJSONL)
		if err != nil {
			return err
		}
		defer jw.Close()
		sinks = append(sinks, jw)
	}

	runID := uuid.NewString()
	output.Logger.Info("Starting benchmark sweep",
		"run_id", runID, "models", len(cfg.Models), "records", len(records))

	client := NewClient(cfg)
	sup := server.NewSupervisor(cfg)

	for _, mc := range cfg.Models {
		handle, err := sup.Start(ctx, mc.Path, cfg.Threads)
		if err != nil {
			output.Logger.Error("Skipping model: server failed to start",
				"run_id", runID, "model", mc.Name, "error", err)
			continue
		}

		func() {
			defer sup.Stop(handle)
			RunModel(ctx, cfg, client, mc, records, sinks)
		}()
	}

	output.Logger.Info("Benchmark sweep complete", "run_id", runID, "output", cfg.OutputCSV)
	return nil
}

// RunModel replays every record's two turns against an already-running
// server and writes one metric row per completed turn.
func RunModel(ctx context.Context, cfg *config.Config, client *Client, mc config.ModelConfig, records []model.Record, sink RowWriter) {
	for _, rec := range records {
		turns := rec.UserTurns()
		if len(turns) < 2 {
			// Filtering rule, not an error.
			continue
		}
		question1, question2 := turns[0], turns[1]
		category := rec.CategoryOrDefault()

		// --- Turn 1 ---
		output.Logger.Info("Running turn", "model", mc.Name, "question", rec.ID, "category", category, "turn", 1)
		resp1, err := client.Complete(ctx, FirstTurnPrompt(question1))
		if err != nil {
			output.Logger.Error("Turn failed, abandoning record",
				"model", mc.Name, "question", rec.ID, "turn", 1, "error", err)
			continue
		}

		d1 := metrics.Derive(resp1.Timings)
		writeRow(sink, mc, cfg.Threads, rec, 1, d1)

		// --- Turn 2 ---
		// Context is rebuilt from the raw source utterances, never from the
		// formatted turn-1 prompt.
		prompt2 := SecondTurnPrompt(question1, resp1.Content, question2)
		output.Logger.Info("Running turn", "model", mc.Name, "question", rec.ID, "category", category, "turn", 2)
		resp2, err := client.Complete(ctx, prompt2)
		if err != nil {
			output.Logger.Error("Turn failed",
				"model", mc.Name, "question", rec.ID, "turn", 2, "error", err)
			continue
		}

		d2 := metrics.Derive(resp2.Timings)
		writeRow(sink, mc, cfg.Threads, rec, 2, d2)
	}
}

func writeRow(sink RowWriter, mc config.ModelConfig, threads int, rec model.Record, turn int, d model.Derived) {
	row := model.TurnMetric{
		ModelName:       mc.Name,
		Threads:         threads,
		QuestionID:      string(rec.ID),
		Category:        rec.CategoryOrDefault(),
		Turn:            turn,
		TTFTMs:          d.TTFTMs,
		TPOTMs:          d.TPOTMs,
		TokensPerSec:    d.TokensPerSec,
		PromptTokens:    d.PromptTokens,
		GeneratedTokens: d.GeneratedTokens,
	}

	if err := sink.Write(row); err != nil {
		output.Logger.Error("Failed to write metric row",
			"model", mc.Name, "question", rec.ID, "turn", turn, "error", err)
		return
	}

	output.Logger.Info("Turn complete",
		"model", mc.Name, "question", rec.ID, "turn", turn, "metrics", d.String())
}
