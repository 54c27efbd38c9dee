/*
PURPOSE:
  Fetches, caches, and parses the MT-Bench-101 benchmark corpus.

REQUIREMENTS:
  User-specified:
  - If the local cache file is absent, fetch the remote corpus via HTTP GET
    and write the raw response text verbatim to the cache path.
  - On fetch failure, nothing is written: no partial cache file may be left
    behind.
  - Parse the cache as newline-delimited JSON, skipping blank lines.
  - A malformed JSON line is a fatal parse error (corpus corruption), not
    something to skip silently.

  Implementation-discovered:
  - Download into memory first; only a fully successful response body touches
    disk.
  - Some corpus lines exceed bufio.Scanner's default token size; the buffer
    must be raised.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine, internal/cli
  - Uses: internal/config, internal/model, internal/output

ERROR HANDLING:
  - Fetch and parse failures are fatal-to-dataset: the caller aborts the run.

IMPLEMENTATION RULES:
  - Use net/http with a bounded timeout for the fetch.
  - Normalization into turns happens downstream; Load returns raw records.

USAGE:
  records, err := dataset.Load(cfg)

SELF-HEALING INSTRUCTIONS:
  - If the corpus moves, only mt_bench_url in the config changes.

RELATED FILES:
  - internal/dataset/sampler.go
  - internal/model/types.go

MAINTENANCE:
  - Update if the corpus switches away from JSONL.
*/

package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/lcarvalho/mtbench-runner/internal/config"
	"github.com/lcarvalho/mtbench-runner/internal/model"
	"github.com/lcarvalho/mtbench-runner/internal/output"
)

// fetchClient bounds the corpus download. The file is a few MB; a minute is
// generous.
var fetchClient = &http.Client{Timeout: 60 * time.Second}

// Load returns the full ordered corpus, downloading it to the local cache
// first if needed.
func Load(cfg *config.Config) ([]model.Record, error) {
	if _, err := os.Stat(cfg.LocalDataFile); os.IsNotExist(err) {
		if err := fetch(cfg.MTBenchURL, cfg.LocalDataFile); err != nil {
			output.Logger.Error("Failed to download dataset", "url", cfg.MTBenchURL, "error", err)
			return nil, err
		}
	}

	records, err := parseFile(cfg.LocalDataFile)
	if err != nil {
		return nil, err
	}

	output.Logger.Info("Loaded MT-Bench-101 prompts", "count", len(records), "file", cfg.LocalDataFile)
	return records, nil
}

// fetch downloads the corpus into memory and writes it to path only on full
// success, preserving the no-partial-cache guarantee.
func fetch(url, path string) error {
	output.Logger.Info("Downloading dataset...", "url", url)

	resp, err := fetchClient.Get(url)
	if err != nil {
		return fmt.Errorf("dataset fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dataset fetch failed: bad status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("dataset fetch failed reading body: %w", err)
	}

	if err := os.WriteFile(path, body, 0644); err != nil {
		return fmt.Errorf("failed to write dataset cache %s: %w", path, err)
	}

	output.Logger.Info("Download complete", "file", path, "bytes", len(body))
	return nil
}

// parseFile reads newline-delimited JSON records from path. Blank lines are
// skipped; a malformed line aborts the parse.
func parseFile(path string) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset cache %s: %w", path, err)
	}
	defer f.Close()

	var records []model.Record
	scanner := bufio.NewScanner(f)
	// Long multi-turn prompts blow past the default 64KiB token limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec model.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("corrupt dataset: invalid JSON at %s:%d: %w", path, lineNo, err)
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset cache %s: %w", path, err)
	}

	return records, nil
}
