/*
PURPOSE:
  Writes per-turn benchmark rows to a CSV file.
  Ensures data integrity by flushing writes immediately.

REQUIREMENTS:
  User-specified:
  - Fixed column set: model_name, threads, question_id, category, turn,
    ttft_ms, tpot_ms, tokens_per_sec, prompt_tokens, generated_tokens.
  - One header row, then one row per successfully completed turn, written
    incrementally as the run progresses.

  Implementation-discovered:
  - File is opened once for the whole run and appended to sequentially.
  - Original behavior overwrites any previous report at the same path.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Consumes: internal/model.TurnMetric

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write (critical for crash resilience: a killed run
    still leaves every completed turn on disk).
  - Mutex-guarded; the engine is sequential today but the writer should not
    assume that.

USAGE:
  w, err := output.NewCSVWriter("results.csv")
  w.Write(row)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - If the CSV format changes, update header and record conversion together.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update Write() mapping when TurnMetric changes.
*/

package output

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"

	"github.com/lcarvalho/mtbench-runner/internal/model"
)

// Header is the fixed report column set.
var Header = []string{
	"model_name", "threads", "question_id", "category", "turn",
	"ttft_ms", "tpot_ms", "tokens_per_sec", "prompt_tokens", "generated_tokens",
}

// CSVWriter handles writing metric rows to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates a new CSVWriter and writes the header row.
// It overwrites the file if it exists.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()

	return &CSVWriter{
		file:   f,
		writer: w,
	}, nil
}

// Write writes a single metric row. It is thread-safe.
func (cw *CSVWriter) Write(m model.TurnMetric) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	record := []string{
		m.ModelName,
		strconv.Itoa(m.Threads),
		m.QuestionID,
		m.Category,
		strconv.Itoa(m.Turn),
		strconv.FormatFloat(m.TTFTMs, 'f', -1, 64),
		strconv.FormatFloat(m.TPOTMs, 'f', -1, 64),
		strconv.FormatFloat(m.TokensPerSec, 'f', -1, 64),
		strconv.Itoa(m.PromptTokens),
		strconv.Itoa(m.GeneratedTokens),
	}

	if err := cw.writer.Write(record); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close closes the underlying file.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	return cw.file.Close()
}
