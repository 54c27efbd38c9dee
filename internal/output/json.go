/*
PURPOSE:
  Writes metric rows to a JSON Lines file (NDJSON).
  Optional mirror of the CSV report for machine parsing.

REQUIREMENTS:
  User-specified:
  - CSV is the primary report; JSONL is opt-in via config.

  Implementation-discovered:
  - JSON Lines is better for streaming/logging than a single large array
    (append-friendly).

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Consumes: internal/model.TurnMetric

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/json.NewEncoder.
  - Thread-safe.

USAGE:
  w, err := output.NewJSONLWriter("results.jsonl")
  w.Write(row)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - None specific.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update if we switch to plain JSON array (not recommended for streaming).
*/

package output

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/lcarvalho/mtbench-runner/internal/model"
)

// JSONLWriter handles writing metric rows to a JSON Lines file.
type JSONLWriter struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONLWriter creates a new JSONLWriter.
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	return &JSONLWriter{
		file:    f,
		encoder: json.NewEncoder(f),
	}, nil
}

// Write writes a single metric row as a JSON line.
func (jw *JSONLWriter) Write(m model.TurnMetric) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	return jw.encoder.Encode(m)
}

// Close closes the underlying file.
func (jw *JSONLWriter) Close() error {
	return jw.file.Close()
}
